// Package outbound defines the ports the service layer uses to reach the
// knowledge-base collaborators. Adapters implement these against the
// Bedrock APIs; tests implement them with fakes.
package outbound

import (
	"context"

	"github.com/Knowledge-Gate/kbgate/internal/domain/kb"
)

// Retriever performs semantic search over the knowledge base.
type Retriever interface {
	Retrieve(ctx context.Context, req kb.RetrieveRequest) ([]kb.RetrievedItem, error)
}

// Generator answers a query with retrieval-augmented generation.
type Generator interface {
	Generate(ctx context.Context, req kb.GenerateRequest) (*kb.Generation, error)
}

// Catalog exposes the knowledge base's data-source listing and descriptor.
type Catalog interface {
	ListSources(ctx context.Context) ([]kb.SourceSummary, error)
	Describe(ctx context.Context) (*kb.Detail, error)
}
