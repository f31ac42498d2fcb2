package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Prints index size and the number of pages due for a recrawl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			st, err := appInstance.Store().IndexStatus(cmd.Context(), appInstance.Config().Crawler.RecrawlAfter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "domains:     %d\n", st.Domains)
			fmt.Fprintf(out, "pages:       %d\n", st.Pages)
			fmt.Fprintf(out, "need update: %d\n", st.NeedUpdate)
			return nil
		},
	}
}
