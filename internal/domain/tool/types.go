// Package tool contains domain types for tool-call normalization and dispatch.
package tool

// Name identifies one of the fixed set of tools the proxy exposes.
type Name string

const (
	// NameQueryKnowledgeBase performs semantic search over the knowledge base.
	NameQueryKnowledgeBase Name = "query_knowledge_base"

	// NameRetrieveAndGenerate answers a question with retrieval-augmented
	// generation, returning citations for the grounding documents.
	NameRetrieveAndGenerate Name = "retrieve_and_generate"

	// NameListSources lists the data sources connected to the knowledge base.
	NameListSources Name = "list_sources"

	// NameGetKnowledgeBaseInfo returns the knowledge base configuration.
	NameGetKnowledgeBaseInfo Name = "get_knowledge_base_info"
)

// IsValid returns true if the name is one of the four known tools.
func (n Name) IsValid() bool {
	switch n {
	case NameQueryKnowledgeBase, NameRetrieveAndGenerate, NameListSources, NameGetKnowledgeBaseInfo:
		return true
	default:
		return false
	}
}

// All returns every valid tool name, in a stable order.
func All() []Name {
	return []Name{
		NameQueryKnowledgeBase,
		NameRetrieveAndGenerate,
		NameListSources,
		NameGetKnowledgeBaseInfo,
	}
}

// Event is the raw invocation payload from the gateway runtime.
// The gateway is inconsistent about framing, so the key set is open;
// Resolve turns an Event into a Call.
type Event map[string]any

// Call is a normalized tool invocation produced by Resolve.
type Call struct {
	// Name is the resolved tool identifier. Always one of the four valid
	// tools when Resolve returns without error.
	Name Name

	// Input holds the tool arguments. Never nil.
	Input map[string]any

	// UserContext is an opaque caller-identity mapping passed through
	// unchanged for access-compliance evaluation. Nil when absent.
	UserContext map[string]any

	// SessionID is an opaque session identifier from the gateway.
	// Carried for logging only; handlers do not use it.
	SessionID string
}
