package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var (
		count  int
		offset int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the document collection",
		Long: `Runs a natural-language query against the document collection and
prints the matching passages with their relevance scores.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			c, err := root.client().Search(cmd.Context(), query, SearchOptions{Count: count, Offset: offset})
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(c, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal results: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}
			RenderPassages(cmd.OutOrStdout(), c)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of passages (0 uses the server default)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of results to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}
