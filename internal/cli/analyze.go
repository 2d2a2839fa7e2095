package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/bookgraph/internal/pipeline"
	"github.com/OFFIS-RIT/bookgraph/internal/storage"
	"github.com/OFFIS-RIT/bookgraph/pkg/loader"
)

var analyzeTitle string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a .pdf or .txt book",
	Long: `Copies the book into storage, builds its retrieval index and its
character graph, and records it in the catalogue.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeTitle, "title", "t", "", "book title (default: file name)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	filename := filepath.Base(args[0])
	if _, err := loader.DetectFormat(filename); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Blobs.Put(ctx, storage.UploadKey(filename), data); err != nil {
		return err
	}

	pl, _, err := a.Pipeline(apiKey)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	progress := pipeline.ProgressFunc(func(percent int, message string) {
		fmt.Fprintf(out, "[%3d%%] %s\n", percent, message)
	})

	res, err := pl.Analyze(ctx, pipeline.Request{
		BookID:  loader.BookID(filename),
		Title:   analyzeTitle,
		FileKey: filename,
	}, progress)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	fmt.Fprintf(out, "[100%%] Analysis complete.\n")
	fmt.Fprintf(out, "Book:   %s\nNodes:  %d\nEdges:  %d\nGraph:  %s\n", res.BookID, res.Nodes, res.Edges, res.GraphPath)
	return nil
}
