// Package mcp provides the JSON-RPC message types and payload shapes used
// to talk to the AgentCore MCP Gateway, plus helpers for unwrapping the
// Lambda proxy envelope nested inside tool-call results.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MethodToolsCall invokes a gateway tool.
const MethodToolsCall = "tools/call"

// MethodToolsList lists the gateway's tools.
const MethodToolsList = "tools/list"

// CallParams is the params payload of a tools/call request.
type CallParams struct {
	// Name is the namespaced tool name ("<target>___<tool>").
	Name string `json:"name"`

	// Arguments holds the tool arguments; always present, possibly empty.
	Arguments map[string]any `json:"arguments"`
}

// CallResult is the result payload of a tools/call response.
type CallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ContentItem is one entry of a tool result's content list.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ListToolsResult is the result payload of a tools/list response.
type ListToolsResult struct {
	Tools      []ToolInfo `json:"tools"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ToolInfo describes one gateway tool.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// DisplayName strips the target namespace prefix for display.
func (t ToolInfo) DisplayName() string {
	if idx := strings.LastIndex(t.Name, "___"); idx >= 0 {
		return t.Name[idx+3:]
	}
	return t.Name
}

// ProxyBody is the decoded Lambda envelope body carried inside a gateway
// tool result. Exactly one of Data/Error is set, gated by Success.
type ProxyBody struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// proxyEnvelope is the transport wrapper around ProxyBody: the Lambda
// returns {statusCode, body, headers} and the gateway passes it through
// as the text content of the tool result.
type proxyEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// ErrNoContent indicates a tool result with no text content to unwrap.
var ErrNoContent = errors.New("no text content in tool result")

// ParseProxyBody unwraps the doubly-nested Lambda response from a gateway
// tool result: the first text content item holds the Lambda envelope JSON,
// whose body field holds the ProxyBody JSON.
func ParseProxyBody(result *CallResult) (*ProxyBody, error) {
	for _, item := range result.Content {
		if item.Type != "text" {
			continue
		}

		var env proxyEnvelope
		if err := json.Unmarshal([]byte(item.Text), &env); err != nil {
			return nil, fmt.Errorf("failed to parse proxy envelope: %w", err)
		}

		var body ProxyBody
		if err := json.Unmarshal([]byte(env.Body), &body); err != nil {
			return nil, fmt.Errorf("failed to parse proxy body: %w", err)
		}
		return &body, nil
	}
	return nil, ErrNoContent
}
