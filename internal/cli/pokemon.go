package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pokedex/internal/service"
)

func (a *app) newCreateCmd() *cobra.Command {
	var req service.CreateRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a pokemon to the catalog",
		Example: "  pokedex create --number 25 --name Pikachu --types Electric\n" +
			"  pokedex create --number 6 --name Charizard --types Fire,Flying",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				res, err := svc.Create(ctx, req)
				if err != nil {
					return err
				}
				return a.printPokemon(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVar(&req.Number, "number", 0, "pokemon number (1-898)")
	cmd.Flags().StringVar(&req.Name, "name", "", "pokemon name")
	cmd.Flags().StringSliceVar(&req.Types, "types", nil, "comma-separated pokemon types")
	return cmd
}

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <number>",
		Short: "Show one pokemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumberArg(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				res, err := svc.FetchOne(ctx, number)
				if err != nil {
					return err
				}
				return a.printPokemon(cmd.OutOrStdout(), res)
			})
		},
	}
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every pokemon in number order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				all, err := svc.FetchAll(ctx)
				if err != nil {
					return err
				}
				return a.printPokemons(cmd.OutOrStdout(), all)
			})
		},
	}
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <number>",
		Short: "Remove a pokemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumberArg(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				if err := svc.Delete(ctx, number); err != nil {
					return err
				}
				if !a.flags.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted pokemon %d\n", number)
				}
				return nil
			})
		},
	}
}

// parseNumberArg rejects non-integer arguments as bad requests.
func parseNumberArg(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("number %q: %w", arg, service.ErrBadRequest)
	}
	return n, nil
}

func (a *app) printPokemon(w io.Writer, p service.PokemonResponse) error {
	if a.flags.jsonMode {
		return writeJSON(w, p)
	}
	return writeText(w, p)
}

func (a *app) printPokemons(w io.Writer, all []service.PokemonResponse) error {
	if a.flags.jsonMode {
		return writeJSON(w, all)
	}
	for i, p := range all {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := writeText(w, p); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeText(w io.Writer, p service.PokemonResponse) error {
	typesJSON, err := json.Marshal(p.Types)
	if err != nil {
		return fmt.Errorf("marshal types: %w", err)
	}
	_, err = fmt.Fprintf(w, "Number: %d\nName: %s\nTypes: %s\n", p.Number, p.Name, typesJSON)
	return err
}
