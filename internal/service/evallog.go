package service

import (
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
)

// Evaluation pipelines downstream of CloudWatch consume one structured
// EVAL_DATA record per external call: the query, a bounded slice of the
// returned documents or citations, and the caller's user context. Queries
// are additionally fingerprinted so records can be deduplicated and joined
// without logging raw text twice.

// evalDocumentLimit bounds how many documents/citations one record carries.
const evalDocumentLimit = 5

// evalContentLimit truncates document content inside eval records.
const evalContentLimit = 1000

// queryFingerprint returns a stable 64-bit hash of the query text.
func queryFingerprint(query string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(query))
}

// emitRetrieveEval logs the evaluation record for a retrieval call.
func (d *Dispatcher) emitRetrieveEval(logger *slog.Logger, query string, filter map[string]any, maxResults int, results []map[string]any, userContext map[string]any) {
	logger.Info("EVAL_DATA",
		"event_type", "knowledge_base_retrieve",
		"tool_name", "query_knowledge_base",
		"query", query,
		"query_fp", queryFingerprint(query),
		"filters", filter,
		"max_results", maxResults,
		"document_count", len(results),
		"documents", evalDocuments(results),
		"user_context", userContext,
	)
}

// emitGenerateEval logs the evaluation record for a generation call.
func (d *Dispatcher) emitGenerateEval(logger *slog.Logger, query, model, answer string, citations []map[string]any, userContext map[string]any) {
	logger.Info("EVAL_DATA",
		"event_type", "knowledge_base_rag",
		"tool_name", "retrieve_and_generate",
		"query", query,
		"query_fp", queryFingerprint(query),
		"model", model,
		"answer", answer,
		"citation_count", len(citations),
		"citations", evalDocuments(citations),
		"user_context", userContext,
	)
}

// evalDocuments projects result entries down to the fields evaluators use,
// bounded in count and content length.
func evalDocuments(entries []map[string]any) []map[string]any {
	limit := len(entries)
	if limit > evalDocumentLimit {
		limit = evalDocumentLimit
	}

	docs := make([]map[string]any, 0, limit)
	for _, e := range entries[:limit] {
		content, _ := e["content"].(string)
		doc := map[string]any{
			"content": truncate(content, evalContentLimit),
			"source":  e["location"],
		}
		if score, ok := e["score"]; ok {
			doc["score"] = score
		}
		docs = append(docs, doc)
	}
	return docs
}
