// Package cli is the offline command line front end. It runs the same
// pipeline as the server, in-process.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/bookgraph/internal/app"
	"github.com/OFFIS-RIT/bookgraph/internal/util"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger/console"
)

// newApp builds the dependencies of a command. Tests replace it.
var newApp = func(ctx context.Context) (*app.App, error) {
	return app.New(ctx, app.ConfigFromEnv(), app.Options{})
}

var (
	apiKey  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "bookgraph",
	Short:         "Analyze books into character graphs",
	Long:          `Extracts characters and their relationships from a book, stores the graph and answers questions about the book.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		util.LoadEnv()
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
			Debug:  verbose || util.GetEnvBool("DEBUG", false),
			Output: cmd.ErrOrStderr(),
		}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "model API key, overrides AI_CHAT_KEY and AI_EMBED_KEY")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
