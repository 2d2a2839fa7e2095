package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var querySources bool

var queryCmd = &cobra.Command{
	Use:   "query [book-id] [question]",
	Short: "Ask a question about an analyzed book",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().BoolVarP(&querySources, "sources", "s", false, "print the passages used as context")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	answerer, err := a.Answerer(apiKey)
	if err != nil {
		return err
	}
	ans, err := answerer.Answer(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ans.Answer)
	if querySources {
		for i, s := range ans.Sources {
			fmt.Fprintf(out, "\n--- source %d ---\n%s\n", i+1, s)
		}
	}
	return nil
}
