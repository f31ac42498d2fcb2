package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Runs a ranked query against the index",
		Long: `Ranks the pages matching <query> and prints one page of results.
Filters such as domain:, content_type: and size:>10kb are honoured.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if page < 1 {
				return fmt.Errorf("--page must be >= 1")
			}
			res, err := appInstance.NewSearcher().Search(cmd.Context(), strings.Join(args, " "), page-1)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d results for %q (page %d)\n", res.Total, res.Query, page)
			for i, r := range res.Results {
				fmt.Fprintf(out, "\n%d. %s\n   %s\n   %s, %d bytes, score %.4f\n   %s\n",
					(page-1)*res.PageSize+i+1, r.Title, r.URL, r.ContentType, r.Size, r.Score, r.Preview)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "result page, starting at 1")
	return cmd
}
