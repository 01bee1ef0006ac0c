package bedrockkb

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"

	"github.com/Knowledge-Gate/kbgate/internal/domain/kb"
)

// AgentAPI is the slice of the bedrock-agent control-plane client the
// catalog adapter uses.
type AgentAPI interface {
	ListDataSources(ctx context.Context, params *bedrockagent.ListDataSourcesInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.ListDataSourcesOutput, error)
	GetKnowledgeBase(ctx context.Context, params *bedrockagent.GetKnowledgeBaseInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetKnowledgeBaseOutput, error)
}

// Catalog implements outbound.Catalog against one knowledge base.
type Catalog struct {
	client          AgentAPI
	knowledgeBaseID string
	logger          *slog.Logger
}

// NewCatalog creates a catalog adapter bound to knowledgeBaseID.
func NewCatalog(client AgentAPI, knowledgeBaseID string, logger *slog.Logger) *Catalog {
	return &Catalog{client: client, knowledgeBaseID: knowledgeBaseID, logger: logger}
}

// ListSources returns every data source connected to the knowledge base,
// following pagination.
func (c *Catalog) ListSources(ctx context.Context) ([]kb.SourceSummary, error) {
	var sources []kb.SourceSummary
	var nextToken *string

	for {
		out, err := c.client.ListDataSources(ctx, &bedrockagent.ListDataSourcesInput{
			KnowledgeBaseId: aws.String(c.knowledgeBaseID),
			NextToken:       nextToken,
		})
		if err != nil {
			return nil, classify("list_data_sources", err)
		}

		for _, s := range out.DataSourceSummaries {
			sources = append(sources, kb.SourceSummary{
				ID:          aws.ToString(s.DataSourceId),
				Name:        aws.ToString(s.Name),
				Status:      string(s.Status),
				UpdatedAt:   s.UpdatedAt,
				Description: aws.ToString(s.Description),
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	c.logger.Debug("listed data sources", "count", len(sources))
	return sources, nil
}

// Describe returns the knowledge base descriptor.
func (c *Catalog) Describe(ctx context.Context) (*kb.Detail, error) {
	out, err := c.client.GetKnowledgeBase(ctx, &bedrockagent.GetKnowledgeBaseInput{
		KnowledgeBaseId: aws.String(c.knowledgeBaseID),
	})
	if err != nil {
		return nil, classify("get_knowledge_base", err)
	}

	detail := &kb.Detail{}
	if base := out.KnowledgeBase; base != nil {
		detail.ID = aws.ToString(base.KnowledgeBaseId)
		detail.Name = aws.ToString(base.Name)
		detail.Description = aws.ToString(base.Description)
		detail.Status = string(base.Status)
		detail.CreatedAt = base.CreatedAt
		detail.UpdatedAt = base.UpdatedAt
		if base.StorageConfiguration != nil {
			detail.StorageType = string(base.StorageConfiguration.Type)
		}
		if cfg := base.KnowledgeBaseConfiguration; cfg != nil && cfg.VectorKnowledgeBaseConfiguration != nil {
			detail.EmbeddingModelARN = aws.ToString(cfg.VectorKnowledgeBaseConfiguration.EmbeddingModelArn)
		}
	}
	return detail, nil
}
