// Package bedrockkb adapts the knowledge-base ports onto the Bedrock agent
// APIs: bedrock-agent-runtime for retrieval and generation, bedrock-agent
// for the source catalog.
package bedrockkb

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	smithydocument "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"

	"github.com/Knowledge-Gate/kbgate/internal/domain/kb"
)

// generationTopP is fixed; the gateway contract exposes only temperature.
const generationTopP = 0.9

// RuntimeAPI is the slice of the bedrock-agent-runtime client the adapter
// uses. Satisfied by *bedrockagentruntime.Client and by test fakes.
type RuntimeAPI interface {
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// Runtime implements outbound.Retriever and outbound.Generator against one
// knowledge base.
type Runtime struct {
	client          RuntimeAPI
	knowledgeBaseID string
	logger          *slog.Logger
}

// NewRuntime creates a runtime adapter bound to knowledgeBaseID.
func NewRuntime(client RuntimeAPI, knowledgeBaseID string, logger *slog.Logger) *Runtime {
	return &Runtime{client: client, knowledgeBaseID: knowledgeBaseID, logger: logger}
}

// Retrieve performs a vector search and maps the results into domain items.
func (r *Runtime) Retrieve(ctx context.Context, req kb.RetrieveRequest) ([]kb.RetrievedItem, error) {
	vector := &types.KnowledgeBaseVectorSearchConfiguration{
		NumberOfResults: aws.Int32(int32(req.MaxResults)),
	}
	if req.Filter != nil {
		filter, err := buildFilter(req.Filter)
		if err != nil {
			return nil, &kb.Fault{Kind: kb.FaultInvalid, Message: err.Error(), Err: err}
		}
		vector.Filter = filter
	}

	out, err := r.client.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(r.knowledgeBaseID),
		RetrievalQuery:  &types.KnowledgeBaseQuery{Text: aws.String(req.Query)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: vector,
		},
	})
	if err != nil {
		return nil, classify("retrieve", err)
	}

	items := make([]kb.RetrievedItem, 0, len(out.RetrievalResults))
	for _, res := range out.RetrievalResults {
		item := kb.RetrievedItem{
			Score:    aws.ToFloat64(res.Score),
			Location: locationMap(res.Location),
			Metadata: metadataMap(res.Metadata),
		}
		if res.Content != nil {
			item.Content = aws.ToString(res.Content.Text)
		}
		items = append(items, item)
	}

	r.logger.Debug("retrieved documents", "count", len(items))
	return items, nil
}

// Generate runs retrieve-and-generate and maps the answer plus flattened
// citation references into a domain generation.
func (r *Runtime) Generate(ctx context.Context, req kb.GenerateRequest) (*kb.Generation, error) {
	out, err := r.client.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{Text: aws.String(req.Query)},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(r.knowledgeBaseID),
				ModelArn:        aws.String(req.ModelARN),
				GenerationConfiguration: &types.GenerationConfiguration{
					InferenceConfig: &types.InferenceConfig{
						TextInferenceConfig: &types.TextInferenceConfig{
							MaxTokens:   aws.Int32(int32(req.MaxTokens)),
							Temperature: aws.Float32(float32(req.Temperature)),
							TopP:        aws.Float32(generationTopP),
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, classify("retrieve_and_generate", err)
	}

	gen := &kb.Generation{}
	if out.Output != nil {
		gen.Answer = aws.ToString(out.Output.Text)
	}

	// Citation groups are flattened: the gateway contract exposes one
	// entry per retrieved reference, not per group.
	for _, citation := range out.Citations {
		for _, ref := range citation.RetrievedReferences {
			c := kb.Citation{
				Location: locationMap(ref.Location),
				Metadata: metadataMap(ref.Metadata),
			}
			if ref.Content != nil {
				c.Content = aws.ToString(ref.Content.Text)
			}
			gen.Citations = append(gen.Citations, c)
		}
	}

	r.logger.Debug("generated answer", "citations", len(gen.Citations))
	return gen, nil
}

// locationMap converts a typed retrieval location into the tagged mapping
// form the domain's location extractor consumes. Unrecognized variants
// keep their tag so the extractor's fallback rendering stays informative.
func locationMap(loc *types.RetrievalResultLocation) map[string]any {
	if loc == nil {
		return map[string]any{}
	}

	m := map[string]any{}
	if loc.S3Location != nil {
		m["s3Location"] = map[string]any{"uri": aws.ToString(loc.S3Location.Uri)}
	}
	if loc.WebLocation != nil {
		m["webLocation"] = map[string]any{"url": aws.ToString(loc.WebLocation.Url)}
	}
	if loc.ConfluenceLocation != nil {
		m["confluenceLocation"] = map[string]any{"url": aws.ToString(loc.ConfluenceLocation.Url)}
	}
	if loc.SalesforceLocation != nil {
		m["salesforceLocation"] = map[string]any{"url": aws.ToString(loc.SalesforceLocation.Url)}
	}
	if loc.SharePointLocation != nil {
		m["sharePointLocation"] = map[string]any{"url": aws.ToString(loc.SharePointLocation.Url)}
	}
	if loc.CustomDocumentLocation != nil {
		m["customDocumentLocation"] = map[string]any{"id": aws.ToString(loc.CustomDocumentLocation.Id)}
	}
	return m
}

// metadataMap decodes smithy document metadata into plain JSON values.
func metadataMap(metadata map[string]smithydocument.Interface) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	m := make(map[string]any, len(metadata))
	for k, doc := range metadata {
		var v any
		if err := doc.UnmarshalSmithyDocument(&v); err != nil {
			continue
		}
		m[k] = v
	}
	return m
}
