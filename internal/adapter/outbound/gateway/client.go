// Package gateway provides a SigV4-signed MCP client for invoking tools
// exposed through an AgentCore gateway endpoint.
package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/Knowledge-Gate/kbgate/pkg/mcp"
)

// signingService is the service name AgentCore gateways expect in the
// SigV4 credential scope.
const signingService = "bedrock-agentcore"

// maxResponseBodySize is the maximum response body size from the gateway.
// Prevents OOM from an unbounded response.
const maxResponseBodySize = 10 * 1024 * 1024 // 10MB

// Client invokes MCP methods over HTTP against a gateway endpoint,
// signing each request with SigV4.
type Client struct {
	endpoint   string
	region     string
	creds      aws.CredentialsProvider
	signer     *v4.Signer
	httpClient *http.Client

	nextID atomic.Int64
}

// Option is a functional option for configuring Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout for the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client for the given gateway MCP endpoint.
func NewClient(endpoint, region string, creds aws.CredentialsProvider, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		region:   region,
		creds:    creds,
		signer:   v4.NewSigner(),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CallTool invokes tools/call for the named tool and returns the parsed
// proxy body from the first text content item.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.ProxyBody, error) {
	params := mcp.CallParams{Name: name, Arguments: arguments}

	var result mcp.CallResult
	if err := c.rpc(ctx, mcp.MethodToolsCall, params, &result); err != nil {
		return nil, err
	}

	body, err := mcp.ParseProxyBody(&result)
	if err != nil {
		return nil, fmt.Errorf("parse tool result: %w", err)
	}
	return body, nil
}

// ListTools invokes tools/list and returns the gateway's tool inventory.
func (c *Client) ListTools(ctx context.Context) ([]mcp.ToolInfo, error) {
	var result mcp.ListToolsResult
	if err := c.rpc(ctx, mcp.MethodToolsList, struct{}{}, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// rpc sends one signed JSON-RPC request and decodes the result into out.
func (c *Client) rpc(ctx context.Context, method string, params any, out any) error {
	id := c.nextID.Add(1)

	msg, err := mcp.NewRequest(id, method, params)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	payload, err := mcp.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if err := c.sign(ctx, req, payload); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway status %d: %s", resp.StatusCode, string(respBody))
	}

	rpcResp, err := mcp.DecodeResponse(respBody)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		var rpcErr *jsonrpc.Error
		if errors.As(rpcResp.Error, &rpcErr) {
			return fmt.Errorf("gateway error %d: %s", rpcErr.Code, rpcErr.Message)
		}
		return fmt.Errorf("gateway error: %w", rpcResp.Error)
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// sign resolves credentials and applies the SigV4 signature headers to req.
func (c *Client) sign(ctx context.Context, req *http.Request, payload []byte) error {
	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("resolve credentials: %w", err)
	}

	sum := sha256.Sum256(payload)
	payloadHash := hex.EncodeToString(sum[:])

	return c.signer.SignHTTP(ctx, creds, req, payloadHash, signingService, c.region, time.Now().UTC())
}
