package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// The shared HTTP transport keeps idle connections in the background.
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func testCreds() credentials.StaticCredentialsProvider {
	return credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", "")
}

// toolCallResponse builds the doubly-nested gateway wire response: a
// JSON-RPC result whose text content carries the Lambda envelope.
func toolCallResponse(t *testing.T, statusCode int, body map[string]any) []byte {
	t.Helper()
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	envelopeJSON, err := json.Marshal(map[string]any{
		"statusCode": statusCode,
		"body":       string(bodyJSON),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	wire, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"result": map[string]any{
			"content": []map[string]any{{"type": "text", "text": string(envelopeJSON)}},
		},
	})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return wire
}

func TestCallTool(t *testing.T) {
	var gotAuth, gotDate, gotMethod string
	var gotRequest map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotDate = r.Header.Get("X-Amz-Date")
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotRequest)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(toolCallResponse(t, 200, map[string]any{
			"success": true,
			"data":    map[string]any{"answer": "forty-two"},
		}))
	}))
	defer server.Close()

	client := NewClient(server.URL, "us-west-2", testCreds())

	body, err := client.CallTool(context.Background(), "KnowledgeBaseProxyTarget___retrieve_and_generate", map[string]any{
		"query": "what is the answer",
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}

	if !body.Success {
		t.Errorf("Success = false: %s", body.Error)
	}
	if got := body.Data["answer"]; got != "forty-two" {
		t.Errorf("Data[answer] = %v", got)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256") {
		t.Errorf("Authorization = %q, want SigV4 signature", gotAuth)
	}
	if !strings.Contains(gotAuth, "us-west-2/bedrock-agentcore/aws4_request") {
		t.Errorf("Authorization scope = %q, want bedrock-agentcore in us-west-2", gotAuth)
	}
	if gotDate == "" {
		t.Error("X-Amz-Date header missing")
	}

	if gotRequest["method"] != "tools/call" {
		t.Errorf("rpc method = %v, want tools/call", gotRequest["method"])
	}
	params := gotRequest["params"].(map[string]any)
	if params["name"] != "KnowledgeBaseProxyTarget___retrieve_and_generate" {
		t.Errorf("params.name = %v", params["name"])
	}
}

func TestCallToolIncrementsRequestID(t *testing.T) {
	var ids []float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		ids = append(ids, req["id"].(float64))
		_, _ = w.Write(toolCallResponse(t, 200, map[string]any{"success": true, "data": map[string]any{}}))
	}))
	defer server.Close()

	client := NewClient(server.URL, "us-west-2", testCreds())
	for range 3 {
		if _, err := client.CallTool(context.Background(), "t", nil); err != nil {
			t.Fatalf("CallTool() error = %v", err)
		}
	}

	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("request ids = %v, want [1 2 3]", ids)
	}
}

func TestListTools(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["method"] != "tools/list" {
			t.Errorf("rpc method = %v, want tools/list", req["method"])
		}

		wire, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]any{
				"tools": []map[string]any{
					{"name": "KnowledgeBaseProxyTarget___query_knowledge_base", "description": "Search"},
					{"name": "KnowledgeBaseProxyTarget___list_sources"},
				},
			},
		})
		_, _ = w.Write(wire)
	}))
	defer server.Close()

	client := NewClient(server.URL, "us-west-2", testCreds())

	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(tools))
	}
	if got := tools[0].DisplayName(); got != "query_knowledge_base" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestCallToolGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wire, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]any{"code": -32601, "message": "unknown method"},
		})
		_, _ = w.Write(wire)
	}))
	defer server.Close()

	client := NewClient(server.URL, "us-west-2", testCreds())

	_, err := client.CallTool(context.Background(), "t", nil)
	if err == nil {
		t.Fatal("CallTool() error = nil, want gateway error")
	}
	if !strings.Contains(err.Error(), "unknown method") {
		t.Errorf("error = %v, want the gateway message", err)
	}
}

func TestCallToolHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, "us-west-2", testCreds())

	_, err := client.CallTool(context.Background(), "t", nil)
	if err == nil {
		t.Fatal("CallTool() error = nil, want status error")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error = %v, want status 403 mentioned", err)
	}
}

func TestWithTimeout(t *testing.T) {
	client := NewClient("https://example.com/mcp", "us-west-2", testCreds(),
		WithTimeout(5*time.Second))
	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.httpClient.Timeout)
	}
}
