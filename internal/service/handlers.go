package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Knowledge-Gate/kbgate/internal/domain/envelope"
	"github.com/Knowledge-Gate/kbgate/internal/domain/kb"
	"github.com/Knowledge-Gate/kbgate/internal/domain/tool"
)

const (
	// maxRetrieveResults caps max_results regardless of what the caller asks.
	maxRetrieveResults = 25

	// maxGenerateTokens caps max_tokens regardless of what the caller asks.
	maxGenerateTokens = 4096

	// defaultTemperature applies when the caller passes no temperature.
	defaultTemperature = 0.7

	// citationContentLimit is the display truncation for citation excerpts.
	citationContentLimit = 500

	errEmptyQuery = "The 'query' parameter is required and cannot be empty"
)

// handleQuery performs semantic search over the knowledge base.
func (d *Dispatcher) handleQuery(ctx context.Context, call tool.Call) envelope.Response {
	logger := d.loggerFrom(ctx)

	query := strings.TrimSpace(stringArg(call.Input, "query", ""))
	maxResults := clampMax(intArg(call.Input, "max_results", d.settings.DefaultMaxResults), maxRetrieveResults)
	filter := mapArg(call.Input, "filter")

	if query == "" {
		return envelope.Failure(errEmptyQuery)
	}

	logger.Info("querying knowledge base", "query_fp", queryFingerprint(query), "max_results", maxResults, "filtered", filter != nil)

	items, err := d.retriever.Retrieve(ctx, kb.RetrieveRequest{
		Query:      query,
		MaxResults: maxResults,
		Filter:     filter,
	})
	if err != nil {
		switch kb.KindOf(err) {
		case kb.FaultInvalid:
			return envelope.Failure("Invalid request: " + err.Error())
		case kb.FaultNotFound:
			return envelope.Failure("Knowledge base not found: " + err.Error())
		default:
			logger.Error("failed to retrieve from knowledge base", "error", err)
			return envelope.Failure("Failed to retrieve from knowledge base: " + err.Error())
		}
	}

	results := make([]map[string]any, 0, len(items))
	for _, item := range items {
		results = append(results, map[string]any{
			"content":  item.Content,
			"score":    roundScore(item.Score),
			"location": tool.DisplayLocation(item.Location),
			"metadata": orEmpty(item.Metadata),
		})
	}

	d.emitRetrieveEval(logger, query, filter, maxResults, results, call.UserContext)

	return envelope.Success(map[string]any{
		"results":           results,
		"count":             len(results),
		"query":             query,
		"knowledge_base_id": d.settings.KnowledgeBaseID,
	})
}

// handleGenerate answers a question with retrieval-augmented generation.
func (d *Dispatcher) handleGenerate(ctx context.Context, call tool.Call) envelope.Response {
	logger := d.loggerFrom(ctx)

	query := strings.TrimSpace(stringArg(call.Input, "query", ""))
	modelARN := stringArg(call.Input, "model_arn", d.settings.ModelARN)
	maxTokens := clampMax(intArg(call.Input, "max_tokens", d.settings.DefaultMaxTokens), maxGenerateTokens)
	temperature := floatArg(call.Input, "temperature", defaultTemperature)

	if query == "" {
		return envelope.Failure(errEmptyQuery)
	}

	logger.Info("retrieve and generate", "query_fp", queryFingerprint(query), "max_tokens", maxTokens)

	gen, err := d.generator.Generate(ctx, kb.GenerateRequest{
		Query:       query,
		ModelARN:    modelARN,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		switch kb.KindOf(err) {
		case kb.FaultInvalid:
			return envelope.Failure("Invalid request: " + err.Error())
		case kb.FaultThrottled:
			return envelope.FailureWithStatus("Service is busy, please try again in a moment", http.StatusTooManyRequests)
		default:
			logger.Error("failed to generate response", "error", err)
			return envelope.Failure("Failed to generate response: " + err.Error())
		}
	}

	citations := make([]map[string]any, 0, len(gen.Citations))
	for _, c := range gen.Citations {
		citations = append(citations, map[string]any{
			"content":  truncate(c.Content, citationContentLimit),
			"location": tool.DisplayLocation(c.Location),
			"metadata": orEmpty(c.Metadata),
		})
	}

	model := kb.TrailingSegment(modelARN)
	d.emitGenerateEval(logger, query, model, gen.Answer, citations, call.UserContext)

	return envelope.Success(map[string]any{
		"answer":         gen.Answer,
		"citations":      citations,
		"citation_count": len(citations),
		"query":          query,
		"model":          model,
	})
}

// handleListSources lists the data sources connected to the knowledge base.
func (d *Dispatcher) handleListSources(ctx context.Context, call tool.Call) envelope.Response {
	logger := d.loggerFrom(ctx)
	logger.Info("listing data sources")

	summaries, err := d.catalog.ListSources(ctx)
	if err != nil {
		logger.Error("failed to list sources", "error", err)
		return envelope.Failure("Failed to list sources: " + err.Error())
	}

	sources := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		sources = append(sources, map[string]any{
			"id":          s.ID,
			"name":        s.Name,
			"status":      s.Status,
			"updated_at":  isoOrNil(s.UpdatedAt),
			"description": s.Description,
		})
	}

	return envelope.Success(map[string]any{
		"knowledge_base_id": d.settings.KnowledgeBaseID,
		"sources":           sources,
		"count":             len(sources),
	})
}

// handleInfo returns the knowledge base configuration.
func (d *Dispatcher) handleInfo(ctx context.Context, call tool.Call) envelope.Response {
	logger := d.loggerFrom(ctx)
	logger.Info("getting knowledge base info")

	detail, err := d.catalog.Describe(ctx)
	if err != nil {
		logger.Error("failed to get knowledge base info", "error", err)
		return envelope.Failure("Failed to get knowledge base info: " + err.Error())
	}

	return envelope.Success(map[string]any{
		"id":              detail.ID,
		"name":            detail.Name,
		"description":     detail.Description,
		"status":          detail.Status,
		"created_at":      isoOrNil(detail.CreatedAt),
		"updated_at":      isoOrNil(detail.UpdatedAt),
		"storage_type":    detail.StorageType,
		"embedding_model": kb.TrailingSegment(detail.EmbeddingModelARN),
	})
}

// orEmpty substitutes an empty mapping for nil metadata so the payload
// always carries the key.
func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// isoOrNil renders a timestamp in ISO-8601 UTC, or nil when absent.
func isoOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
