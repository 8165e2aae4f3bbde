package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pokedex/internal/jsonl"
)

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the catalog to a JSON Lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, release, err := a.openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			n, err := jsonl.Export(cmd.Context(), repo, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d pokemon to %s\n", n, args[0])
			return nil
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load pokemon from a JSON Lines file",
		Long: "Insert every valid line of the file. Numbers already in the catalog\n" +
			"are skipped, as are malformed or invalid lines.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, release, err := a.openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			res, err := jsonl.Import(cmd.Context(), repo, args[0], a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, skipped %d existing, %d invalid\n",
				res.Imported, res.Skipped, res.Invalid)
			return nil
		},
	}
}
