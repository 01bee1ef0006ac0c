// Package cmd provides the CLI commands for kbctl.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"github.com/Knowledge-Gate/kbgate/internal/adapter/outbound/gateway"
	"github.com/Knowledge-Gate/kbgate/internal/adapter/outbound/history"
	"github.com/Knowledge-Gate/kbgate/internal/config"
)

// defaultTargetPrefix is the gateway target namespace used when the config
// does not set one. Gateway targets expose tools as "<target>___<tool>".
const defaultTargetPrefix = "KnowledgeBaseProxyTarget___"

var cfgFile string
var gatewayURL string

var rootCmd = &cobra.Command{
	Use:   "kbctl",
	Short: "kbctl - Knowledge Base Gateway CLI",
	Long: `kbctl is a client for a Bedrock AgentCore MCP gateway fronting a
knowledge-base proxy. It signs every request with SigV4 using your
ambient AWS credentials.

Quick start:
  1. Create a config file: kbctl init
  2. Search: kbctl query "seller requirements for US"
  3. Ask:    kbctl ask "How do marketplaces differ?"

Configuration:
  Config is loaded from kbgate.yaml in the current directory,
  $HOME/.kbgate/, or /etc/kbgate/.

  Environment variables can override config values with the KBGATE_ prefix.
  Example: KBGATE_GATEWAY_URL=https://...amazonaws.com/mcp

Commands:
  query         Search the knowledge base
  ask           Ask a question answered from the knowledge base (RAG)
  list-sources  List the knowledge base's data sources
  kb-info       Show knowledge base details
  list-tools    List the tools exposed by the gateway
  history       Show recent queries
  init          Write a starter config file
  version       Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./kbgate.yaml)")
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway-url", "", "gateway MCP endpoint (overrides config)")
}

func initConfig() {
	config.InitViper(cfgFile)
}

// loadConfig loads the configuration and applies CLI flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if gatewayURL != "" {
		cfg.Gateway.URL = gatewayURL
	}
	if cfg.Gateway.TargetPrefix == "" {
		cfg.Gateway.TargetPrefix = defaultTargetPrefix
	}
	return cfg, nil
}

// newGatewayClient builds a signed MCP client from the configuration.
func newGatewayClient(ctx context.Context, cfg *config.Config) (*gateway.Client, error) {
	if cfg.Gateway.URL == "" {
		return nil, fmt.Errorf("no gateway URL configured; set gateway.url in kbgate.yaml or pass --gateway-url")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS credentials: %w", err)
	}

	timeout, err := time.ParseDuration(cfg.Gateway.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway timeout %q: %w", cfg.Gateway.Timeout, err)
	}

	client := gateway.NewClient(cfg.Gateway.URL, cfg.Region, awsCfg.Credentials,
		gateway.WithTimeout(timeout))
	return client, nil
}

// targetName prepends the gateway target namespace to a tool name.
func targetName(cfg *config.Config, tool string) string {
	return cfg.Gateway.TargetPrefix + tool
}

// recordHistory appends an entry to the local history database if one is
// configured. History failures never fail the command.
func recordHistory(ctx context.Context, cfg *config.Config, command, query, answer string) {
	if cfg.Gateway.HistoryDB == "" {
		return
	}
	store, err := history.Open(cfg.Gateway.HistoryDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open history database: %v\n", err)
		return
	}
	defer func() { _ = store.Close() }()

	if err := store.Record(ctx, command, query, answer); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record history: %v\n", err)
	}
}
