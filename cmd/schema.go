package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Creates or upgrades the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := appInstance.Store().EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			appInstance.Logger().Info("schema is up to date")
			return nil
		},
	}
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <pattern>",
		Short: "Deletes pages whose URL matches a SQL LIKE pattern",
		Long: `Deletes every page whose URL matches <pattern> together with its links,
for example: purge 'gemini://spam.example/%'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			n, err := appInstance.Store().Purge(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			appInstance.Logger().Info("pages purged", zap.String("pattern", args[0]), zap.Int64("deleted", n))
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d pages\n", n)
			return nil
		},
	}
}
