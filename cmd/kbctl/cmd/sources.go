package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "list-sources",
	Short: "List the knowledge base's data sources",
	Args:  cobra.NoArgs,
	RunE:  runListSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runListSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newGatewayClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	body, err := client.CallTool(cmd.Context(), targetName(cfg, "list_sources"), map[string]any{})
	if err != nil {
		return err
	}
	if !body.Success {
		return fmt.Errorf("list-sources failed: %s", body.Error)
	}

	sources, _ := body.Data["sources"].([]any)
	fmt.Printf("Knowledge Base: %v\n", body.Data["knowledge_base_id"])
	fmt.Printf("Data Sources: %d\n\n", len(sources))

	for _, s := range sources {
		src, ok := s.(map[string]any)
		if !ok {
			continue
		}
		fmt.Printf("- %v\n", src["name"])
		fmt.Printf("  ID: %v\n", src["id"])
		fmt.Printf("  Status: %v\n", src["status"])
		if updated, ok := src["updated_at"].(string); ok && updated != "" {
			fmt.Printf("  Updated: %s\n", updated)
		}
		fmt.Println()
	}
	return nil
}
