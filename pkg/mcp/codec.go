package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// NewRequest builds a JSON-RPC request with a numeric id and marshalled
// params. This delegates to the MCP SDK's jsonrpc package for the wire
// representation.
func NewRequest(id int64, method string, params any) (*jsonrpc.Request, error) {
	reqID, err := jsonrpc.MakeID(float64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to make request id: %w", err)
	}

	var raw json.RawMessage
	if params != nil {
		raw, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
	}

	return &jsonrpc.Request{ID: reqID, Method: method, Params: raw}, nil
}

// EncodeMessage serializes a JSON-RPC message to its wire format.
func EncodeMessage(msg jsonrpc.Message) ([]byte, error) {
	return jsonrpc.EncodeMessage(msg)
}

// DecodeResponse deserializes wire data and asserts it is a response.
func DecodeResponse(data []byte) (*jsonrpc.Response, error) {
	msg, err := jsonrpc.DecodeMessage(data)
	if err != nil {
		return nil, err
	}
	resp, ok := msg.(*jsonrpc.Response)
	if !ok {
		return nil, fmt.Errorf("expected response, got %T", msg)
	}
	return resp, nil
}
