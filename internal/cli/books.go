package cli

import (
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List analyzed books",
	Args:  cobra.NoArgs,
	RunE:  runBooks,
}

func init() {
	rootCmd.AddCommand(booksCmd)
}

func runBooks(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	books, err := a.Books.All(ctx)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No books analyzed yet.")
		return nil
	}

	ids := make([]string, 0, len(books))
	for id := range books {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tGRAPH\tANALYZED")
	for _, id := range ids {
		b := books[id]
		analyzed := time.Unix(0, int64(b.Timestamp*float64(time.Second))).Format(time.DateTime)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Title, b.GraphFile, analyzed)
	}
	return w.Flush()
}
