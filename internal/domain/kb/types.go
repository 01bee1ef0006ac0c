// Package kb contains domain types for the knowledge-base collaborators:
// retrieval results, generated answers, source summaries, and the fault
// taxonomy used to map upstream errors onto envelope responses.
package kb

import "time"

// RetrieveRequest asks for the top MaxResults documents matching Query.
type RetrieveRequest struct {
	Query      string
	MaxResults int

	// Filter is an optional metadata filter, passed through from the
	// caller in the gateway's mapping form (operator -> operand).
	Filter map[string]any
}

// RetrievedItem is one ranked document from a retrieval call.
type RetrievedItem struct {
	Content  string
	Score    float64
	Location map[string]any
	Metadata map[string]any
}

// GenerateRequest asks for a grounded answer to Query.
type GenerateRequest struct {
	Query       string
	ModelARN    string
	MaxTokens   int
	Temperature float64
}

// Citation is one referenced source excerpt backing a generated answer.
type Citation struct {
	Content  string
	Location map[string]any
	Metadata map[string]any
}

// Generation is the result of a retrieve-and-generate call.
type Generation struct {
	Answer    string
	Citations []Citation
}

// SourceSummary describes one data source connected to the knowledge base.
type SourceSummary struct {
	ID          string
	Name        string
	Status      string
	UpdatedAt   *time.Time
	Description string
}

// Detail describes the knowledge base configuration.
type Detail struct {
	ID                string
	Name              string
	Description       string
	Status            string
	CreatedAt         *time.Time
	UpdatedAt         *time.Time
	StorageType       string
	EmbeddingModelARN string
}

// TrailingSegment returns the part of an ARN or path after the last "/".
// Used to display model identifiers without the ARN prefix.
func TrailingSegment(arn string) string {
	for i := len(arn) - 1; i >= 0; i-- {
		if arn[i] == '/' {
			return arn[i+1:]
		}
	}
	return arn
}
