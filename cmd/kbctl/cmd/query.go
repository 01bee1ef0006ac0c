package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var queryMaxResults int

var queryCmd = &cobra.Command{
	Use:   "query <search terms>",
	Short: "Search the knowledge base",
	Long: `Search the knowledge base and print matching document chunks with
relevance scores and source locations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryMaxResults, "max-results", "n", 5, "maximum number of results")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newGatewayClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	fmt.Printf("Searching: %q (max results: %d)\n\n", query, queryMaxResults)

	body, err := client.CallTool(cmd.Context(), targetName(cfg, "query_knowledge_base"), map[string]any{
		"query":       query,
		"max_results": queryMaxResults,
	})
	if err != nil {
		return err
	}
	if !body.Success {
		return fmt.Errorf("query failed: %s", body.Error)
	}

	results, _ := body.Data["results"].([]any)
	fmt.Printf("Found %d documents:\n\n", len(results))

	for i, r := range results {
		doc, ok := r.(map[string]any)
		if !ok {
			continue
		}
		score, _ := doc["score"].(float64)
		fmt.Printf("[%d] Score: %.4f\n", i+1, score)
		fmt.Printf("    Source: %v\n", doc["location"])

		if meta := metadataLine(doc["metadata"]); meta != "" {
			fmt.Printf("    Metadata: %s\n", meta)
		}

		content, _ := doc["content"].(string)
		fmt.Printf("    Content: %s\n\n", preview(content, 200))
	}

	recordHistory(cmd.Context(), cfg, "query", query, "")
	return nil
}

// metadataLine renders document metadata as "k=v, k=v", skipping the
// x-amz bookkeeping keys Bedrock attaches to every chunk.
func metadataLine(metadata any) string {
	m, ok := metadata.(map[string]any)
	if !ok {
		return ""
	}
	var pairs []string
	for k, v := range m {
		if strings.HasPrefix(k, "x-amz") {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(pairs, ", ")
}

// preview truncates s to at most n runes with an ellipsis.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
