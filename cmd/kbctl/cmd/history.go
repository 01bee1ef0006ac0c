package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Knowledge-Gate/kbgate/internal/adapter/outbound/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent queries",
	Long: `Show recent queries from the local history database. History is
recorded only when gateway.history_db is set in the config.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Gateway.HistoryDB == "" {
		return fmt.Errorf("history is disabled; set gateway.history_db in kbgate.yaml")
	}

	store, err := history.Open(cfg.Gateway.HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No history yet.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("[%s] %s: %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Command, e.Query)
		if e.Answer != "" {
			fmt.Printf("    %s\n", preview(e.Answer, 120))
		}
	}
	return nil
}
