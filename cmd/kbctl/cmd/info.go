package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "kb-info",
	Short: "Show knowledge base details",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newGatewayClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	body, err := client.CallTool(cmd.Context(), targetName(cfg, "get_knowledge_base_info"), map[string]any{})
	if err != nil {
		return err
	}
	if !body.Success {
		return fmt.Errorf("kb-info failed: %s", body.Error)
	}

	fields := []struct {
		label string
		key   string
	}{
		{"ID", "id"},
		{"Name", "name"},
		{"Description", "description"},
		{"Status", "status"},
		{"Created", "created_at"},
		{"Updated", "updated_at"},
		{"Storage", "storage_type"},
		{"Embedding model", "embedding_model"},
	}
	for _, f := range fields {
		v := body.Data[f.key]
		if v == nil || v == "" {
			continue
		}
		fmt.Printf("%-16s %v\n", f.label+":", v)
	}
	return nil
}
