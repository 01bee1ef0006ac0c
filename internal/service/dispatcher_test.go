package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Knowledge-Gate/kbgate/internal/config"
	"github.com/Knowledge-Gate/kbgate/internal/domain/envelope"
	"github.com/Knowledge-Gate/kbgate/internal/domain/guard"
	"github.com/Knowledge-Gate/kbgate/internal/domain/kb"
	"github.com/Knowledge-Gate/kbgate/internal/domain/tool"
)

// fakeRetriever records the last request and returns canned items.
type fakeRetriever struct {
	lastReq kb.RetrieveRequest
	items   []kb.RetrievedItem
	err     error
}

func (f *fakeRetriever) Retrieve(_ context.Context, req kb.RetrieveRequest) ([]kb.RetrievedItem, error) {
	f.lastReq = req
	return f.items, f.err
}

// fakeGenerator records the last request and returns a canned generation.
type fakeGenerator struct {
	lastReq kb.GenerateRequest
	gen     *kb.Generation
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, req kb.GenerateRequest) (*kb.Generation, error) {
	f.lastReq = req
	return f.gen, f.err
}

// fakeCatalog returns canned sources and detail.
type fakeCatalog struct {
	sources []kb.SourceSummary
	detail  *kb.Detail
	err     error
}

func (f *fakeCatalog) ListSources(context.Context) ([]kb.SourceSummary, error) {
	return f.sources, f.err
}

func (f *fakeCatalog) Describe(context.Context) (*kb.Detail, error) {
	return f.detail, f.err
}

// recordingObserver captures dispatch outcomes.
type recordingObserver struct {
	toolName string
	outcome  string
	calls    int
}

func (r *recordingObserver) Observe(toolName, outcome string, _ time.Duration) {
	r.toolName = toolName
	r.outcome = outcome
	r.calls++
}

func testSettings() Settings {
	return Settings{
		KnowledgeBaseID:   "KB123",
		ModelARN:          "arn:aws:bedrock:us-west-2::foundation-model/anthropic.claude-3-sonnet-20240229-v1:0",
		DefaultMaxResults: 5,
		DefaultMaxTokens:  2048,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(r *fakeRetriever, g *fakeGenerator, c *fakeCatalog, opts ...Option) *Dispatcher {
	if r == nil {
		r = &fakeRetriever{}
	}
	if g == nil {
		g = &fakeGenerator{}
	}
	if c == nil {
		c = &fakeCatalog{}
	}
	return NewDispatcher(testSettings(), r, g, c, testLogger(), opts...)
}

func decodeBody(t *testing.T, resp envelope.Response) envelope.Payload {
	t.Helper()
	payload, err := envelope.Decode(resp)
	if err != nil {
		t.Fatalf("failed to decode envelope body: %v", err)
	}
	return payload
}

func TestDispatchQuery(t *testing.T) {
	retriever := &fakeRetriever{
		items: []kb.RetrievedItem{
			{
				Content: "Sellers must register before listing.",
				Score:   0.87654321,
				Location: map[string]any{
					"type":       "S3",
					"s3Location": map[string]any{"uri": "s3://kb/docs/sellers.pdf"},
				},
				Metadata: map[string]any{"department": "compliance"},
			},
		},
	}
	d := newTestDispatcher(retriever, nil, nil)

	resp := d.Dispatch(context.Background(), tool.Event{
		"tool_name":  "query_knowledge_base",
		"tool_input": map[string]any{"query": "seller requirements", "max_results": float64(3)},
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200; body %s", resp.StatusCode, resp.Body)
	}
	if retriever.lastReq.MaxResults != 3 {
		t.Errorf("MaxResults = %d, want 3", retriever.lastReq.MaxResults)
	}

	payload := decodeBody(t, resp)
	if !payload.Success {
		t.Fatalf("Success = false: %s", payload.Error)
	}
	if got := payload.Data["count"]; got != float64(1) {
		t.Errorf("count = %v, want 1", got)
	}
	if got := payload.Data["knowledge_base_id"]; got != "KB123" {
		t.Errorf("knowledge_base_id = %v, want KB123", got)
	}

	results := payload.Data["results"].([]any)
	doc := results[0].(map[string]any)
	if got := doc["score"]; got != 0.8765 {
		t.Errorf("score = %v, want 0.8765", got)
	}
	if got := doc["location"]; got != "s3://kb/docs/sellers.pdf" {
		t.Errorf("location = %v, want s3 uri", got)
	}
}

func TestDispatchQueryClampsMaxResults(t *testing.T) {
	retriever := &fakeRetriever{}
	d := newTestDispatcher(retriever, nil, nil)

	d.Dispatch(context.Background(), tool.Event{
		"tool_name":  "query_knowledge_base",
		"tool_input": map[string]any{"query": "x", "max_results": float64(999)},
	})

	if retriever.lastReq.MaxResults != 25 {
		t.Errorf("MaxResults = %d, want 25", retriever.lastReq.MaxResults)
	}
}

func TestDispatchQueryDefaultsMaxResults(t *testing.T) {
	retriever := &fakeRetriever{}
	d := newTestDispatcher(retriever, nil, nil)

	d.Dispatch(context.Background(), tool.Event{
		"tool_name":  "query_knowledge_base",
		"tool_input": map[string]any{"query": "x"},
	})

	if retriever.lastReq.MaxResults != 5 {
		t.Errorf("MaxResults = %d, want default 5", retriever.lastReq.MaxResults)
	}
}

func TestDispatchQueryEmptyQuery(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
	}{
		{"missing", map[string]any{}},
		{"empty", map[string]any{"query": ""}},
		{"whitespace", map[string]any{"query": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher(nil, nil, nil)
			resp := d.Dispatch(context.Background(), tool.Event{
				"tool_name":  "query_knowledge_base",
				"tool_input": tt.input,
			})

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("StatusCode = %d, want 400", resp.StatusCode)
			}
			payload := decodeBody(t, resp)
			if payload.Error != "The 'query' parameter is required and cannot be empty" {
				t.Errorf("Error = %q", payload.Error)
			}
		})
	}
}

func TestDispatchQueryFaults(t *testing.T) {
	tests := []struct {
		name       string
		kind       kb.FaultKind
		wantPrefix string
	}{
		{"invalid", kb.FaultInvalid, "Invalid request: "},
		{"not found", kb.FaultNotFound, "Knowledge base not found: "},
		{"unknown", kb.FaultUnknown, "Failed to retrieve from knowledge base: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := &fakeRetriever{err: &kb.Fault{Kind: tt.kind, Message: "upstream detail"}}
			d := newTestDispatcher(retriever, nil, nil)

			resp := d.Dispatch(context.Background(), tool.Event{
				"tool_name":  "query_knowledge_base",
				"tool_input": map[string]any{"query": "x"},
			})

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("StatusCode = %d, want 400", resp.StatusCode)
			}
			payload := decodeBody(t, resp)
			if !strings.HasPrefix(payload.Error, tt.wantPrefix) {
				t.Errorf("Error = %q, want prefix %q", payload.Error, tt.wantPrefix)
			}
		})
	}
}

func TestDispatchGenerate(t *testing.T) {
	generator := &fakeGenerator{
		gen: &kb.Generation{
			Answer: "US and CN marketplaces differ in registration.",
			Citations: []kb.Citation{
				{
					Content:  strings.Repeat("長い引用テキスト", 100),
					Location: map[string]any{"s3Location": map[string]any{"uri": "s3://kb/docs/guide.pdf"}},
				},
			},
		},
	}
	d := newTestDispatcher(nil, generator, nil)

	resp := d.Dispatch(context.Background(), tool.Event{
		"name":  "retrieve_and_generate",
		"input": map[string]any{"query": "how do marketplaces differ", "max_tokens": float64(512)},
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200; body %s", resp.StatusCode, resp.Body)
	}
	if generator.lastReq.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512", generator.lastReq.MaxTokens)
	}
	if generator.lastReq.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want default 0.7", generator.lastReq.Temperature)
	}

	payload := decodeBody(t, resp)
	if got := payload.Data["citation_count"]; got != float64(1) {
		t.Errorf("citation_count = %v, want 1", got)
	}
	if got := payload.Data["model"]; got != "anthropic.claude-3-sonnet-20240229-v1:0" {
		t.Errorf("model = %v, want trailing ARN segment", got)
	}

	citations := payload.Data["citations"].([]any)
	content := citations[0].(map[string]any)["content"].(string)
	if got := len([]rune(content)); got != citationContentLimit+3 {
		t.Errorf("citation content length = %d runes, want %d plus ellipsis", got, citationContentLimit)
	}
}

func TestDispatchGenerateClampsMaxTokens(t *testing.T) {
	generator := &fakeGenerator{gen: &kb.Generation{Answer: "ok"}}
	d := newTestDispatcher(nil, generator, nil)

	d.Dispatch(context.Background(), tool.Event{
		"name":  "retrieve_and_generate",
		"input": map[string]any{"query": "x", "max_tokens": float64(100000)},
	})

	if generator.lastReq.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096", generator.lastReq.MaxTokens)
	}
}

func TestDispatchGenerateDefaults(t *testing.T) {
	generator := &fakeGenerator{gen: &kb.Generation{Answer: "ok"}}
	d := newTestDispatcher(nil, generator, nil)

	d.Dispatch(context.Background(), tool.Event{
		"name":  "retrieve_and_generate",
		"input": map[string]any{"query": "x", "temperature": 0.2},
	})

	if generator.lastReq.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want default 2048", generator.lastReq.MaxTokens)
	}
	if generator.lastReq.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", generator.lastReq.Temperature)
	}
}

func TestDispatchGenerateThrottled(t *testing.T) {
	generator := &fakeGenerator{err: &kb.Fault{Kind: kb.FaultThrottled, Message: "rate exceeded"}}
	d := newTestDispatcher(nil, generator, nil)

	resp := d.Dispatch(context.Background(), tool.Event{
		"name":  "retrieve_and_generate",
		"input": map[string]any{"query": "x"},
	})

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("StatusCode = %d, want 429", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	if payload.Error != "Service is busy, please try again in a moment" {
		t.Errorf("Error = %q", payload.Error)
	}
}

func TestDispatchListSources(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	catalog := &fakeCatalog{
		sources: []kb.SourceSummary{
			{ID: "ds-1", Name: "policies", Status: "AVAILABLE", UpdatedAt: &updated},
			{ID: "ds-2", Name: "faq", Status: "AVAILABLE"},
		},
	}
	d := newTestDispatcher(nil, nil, catalog)

	resp := d.Dispatch(context.Background(), tool.Event{"tool_name": "list_sources"})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200; body %s", resp.StatusCode, resp.Body)
	}
	payload := decodeBody(t, resp)
	if got := payload.Data["count"]; got != float64(2) {
		t.Errorf("count = %v, want 2", got)
	}

	sources := payload.Data["sources"].([]any)
	first := sources[0].(map[string]any)
	if got := first["updated_at"]; got != "2026-03-01T12:00:00Z" {
		t.Errorf("updated_at = %v, want RFC3339 UTC", got)
	}
	second := sources[1].(map[string]any)
	if got := second["updated_at"]; got != nil {
		t.Errorf("missing updated_at = %v, want nil", got)
	}
}

func TestDispatchInfo(t *testing.T) {
	created := time.Date(2025, 11, 20, 8, 30, 0, 0, time.UTC)
	catalog := &fakeCatalog{
		detail: &kb.Detail{
			ID:                "KB123",
			Name:              "marketplace-kb",
			Status:            "ACTIVE",
			CreatedAt:         &created,
			StorageType:       "OPENSEARCH_SERVERLESS",
			EmbeddingModelARN: "arn:aws:bedrock:us-west-2::foundation-model/amazon.titan-embed-text-v2:0",
		},
	}
	d := newTestDispatcher(nil, nil, catalog)

	resp := d.Dispatch(context.Background(), tool.Event{"name": "get_knowledge_base_info"})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200; body %s", resp.StatusCode, resp.Body)
	}
	payload := decodeBody(t, resp)
	if got := payload.Data["embedding_model"]; got != "amazon.titan-embed-text-v2:0" {
		t.Errorf("embedding_model = %v, want trailing ARN segment", got)
	}
	if got := payload.Data["created_at"]; got != "2025-11-20T08:30:00Z" {
		t.Errorf("created_at = %v, want RFC3339 UTC", got)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	observer := &recordingObserver{}
	d := newTestDispatcher(nil, nil, nil, WithObserver(observer))

	resp := d.Dispatch(context.Background(), tool.Event{"tool_name": "frobnicate"})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d, want 400", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	for _, valid := range tool.All() {
		if !strings.Contains(payload.Error, string(valid)) {
			t.Errorf("error %q does not list %q", payload.Error, valid)
		}
	}
	if observer.toolName != "unresolved" || observer.outcome != "client_error" {
		t.Errorf("observer saw (%q, %q), want (unresolved, client_error)", observer.toolName, observer.outcome)
	}
}

func TestDispatchObserverOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		generator   *fakeGenerator
		wantOutcome string
	}{
		{"success", &fakeGenerator{gen: &kb.Generation{Answer: "ok"}}, "success"},
		{"throttled", &fakeGenerator{err: &kb.Fault{Kind: kb.FaultThrottled}}, "throttled"},
		{"client error", &fakeGenerator{err: &kb.Fault{Kind: kb.FaultInvalid, Message: "bad"}}, "client_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer := &recordingObserver{}
			d := newTestDispatcher(nil, tt.generator, nil, WithObserver(observer))

			d.Dispatch(context.Background(), tool.Event{
				"name":  "retrieve_and_generate",
				"input": map[string]any{"query": "x"},
			})

			if observer.outcome != tt.wantOutcome {
				t.Errorf("outcome = %q, want %q", observer.outcome, tt.wantOutcome)
			}
			if observer.toolName != "retrieve_and_generate" {
				t.Errorf("toolName = %q, want retrieve_and_generate", observer.toolName)
			}
		})
	}
}

func TestDispatchGuardDenies(t *testing.T) {
	g, err := guard.New([]config.AccessRuleConfig{
		{Name: "block-external", Condition: `user.role == "external"`, Action: "deny"},
	})
	if err != nil {
		t.Fatalf("guard.New() error = %v", err)
	}
	d := newTestDispatcher(nil, nil, nil, WithGuard(g))

	resp := d.Dispatch(context.Background(), tool.Event{
		"tool_name":    "list_sources",
		"user_context": map[string]any{"role": "external"},
	})

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("StatusCode = %d, want 403", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	if !strings.Contains(payload.Error, "block-external") {
		t.Errorf("Error = %q, want rule name mentioned", payload.Error)
	}
}

func TestDispatchGuardAllows(t *testing.T) {
	g, err := guard.New([]config.AccessRuleConfig{
		{Name: "block-external", Condition: `user.role == "external"`, Action: "deny"},
	})
	if err != nil {
		t.Fatalf("guard.New() error = %v", err)
	}
	catalog := &fakeCatalog{}
	d := newTestDispatcher(nil, nil, catalog, WithGuard(g))

	resp := d.Dispatch(context.Background(), tool.Event{
		"tool_name":    "list_sources",
		"user_context": map[string]any{"role": "internal"},
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200; body %s", resp.StatusCode, resp.Body)
	}
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	d := newTestDispatcher(&fakeRetriever{}, nil, nil)
	// A nil generator in the table would be a nil map entry, so force a
	// panic through a retriever that explodes.
	d.retriever = panickyRetriever{}

	resp := d.Dispatch(context.Background(), tool.Event{
		"tool_name":  "query_knowledge_base",
		"tool_input": map[string]any{"query": "x"},
	})

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("StatusCode = %d, want 500", resp.StatusCode)
	}
	payload := decodeBody(t, resp)
	if payload.Success {
		t.Error("Success = true, want false")
	}
}

type panickyRetriever struct{}

func (panickyRetriever) Retrieve(context.Context, kb.RetrieveRequest) ([]kb.RetrievedItem, error) {
	panic("retriever exploded")
}
