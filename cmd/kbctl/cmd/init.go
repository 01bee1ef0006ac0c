package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Knowledge-Gate/kbgate/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a kbgate.yaml in the current directory with the default
configuration. Edit gateway.url before using the gateway commands.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing kbgate.yaml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	const path = "kbgate.yaml"

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists; use --force to overwrite", path)
		}
	}

	cfg := config.Config{
		Gateway: config.GatewayConfig{
			URL:          "https://<gateway-id>.gateway.bedrock-agentcore.us-west-2.amazonaws.com/mcp",
			TargetPrefix: defaultTargetPrefix,
			HistoryDB:    "kbctl-history.db",
		},
	}
	cfg.SetDefaults()

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Edit gateway.url to point at your gateway MCP endpoint.")
	return nil
}
