package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askMaxTokens int

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question answered from the knowledge base (RAG)",
	Long: `Ask a question. The proxy retrieves relevant passages from the
knowledge base and generates an answer with citations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askMaxTokens, "max-tokens", "t", 1024, "maximum tokens in the generated answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newGatewayClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	fmt.Printf("Question: %q\nGenerating answer...\n\n", question)

	body, err := client.CallTool(cmd.Context(), targetName(cfg, "retrieve_and_generate"), map[string]any{
		"query":      question,
		"max_tokens": askMaxTokens,
	})
	if err != nil {
		return err
	}
	if !body.Success {
		return fmt.Errorf("ask failed: %s", body.Error)
	}

	answer, _ := body.Data["answer"].(string)
	if answer == "" {
		answer = "No answer generated"
	}

	rule := strings.Repeat("=", 60)
	fmt.Println(rule)
	fmt.Println("ANSWER")
	fmt.Println(rule)
	fmt.Println(answer)
	fmt.Println()

	printCitations(body.Data["citations"])

	recordHistory(cmd.Context(), cfg, "ask", question, answer)
	return nil
}

// printCitations lists each distinct citation source once, by final path
// segment.
func printCitations(citations any) {
	list, ok := citations.([]any)
	if !ok || len(list) == 0 {
		return
	}

	fmt.Printf("Sources (%d citations):\n", len(list))
	seen := map[string]bool{}
	for _, c := range list {
		citation, ok := c.(map[string]any)
		if !ok {
			continue
		}
		loc, _ := citation["location"].(string)
		if loc == "" || seen[loc] {
			continue
		}
		seen[loc] = true
		if idx := strings.LastIndex(loc, "/"); idx >= 0 {
			loc = loc[idx+1:]
		}
		fmt.Printf("  - %s\n", loc)
	}
}
