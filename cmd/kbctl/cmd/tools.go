package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// descriptionLimit bounds tool descriptions in the listing.
const descriptionLimit = 70

var toolsCmd = &cobra.Command{
	Use:   "list-tools",
	Short: "List the tools exposed by the gateway",
	Args:  cobra.NoArgs,
	RunE:  runListTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runListTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newGatewayClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	tools, err := client.ListTools(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Found %d tools:\n\n", len(tools))
	for _, t := range tools {
		fmt.Printf("- %s\n", t.DisplayName())
		if t.Description != "" {
			fmt.Printf("  %s\n", preview(t.Description, descriptionLimit))
		}
		fmt.Println()
	}
	return nil
}
