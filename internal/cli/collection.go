package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewCollectionCmd creates the 'collection' command group.
func NewCollectionCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"col"},
		Short:   "Create and list your collections",
	}
	cmd.AddCommand(newCollectionCreateCmd(g))
	cmd.AddCommand(newCollectionListCmd(g))
	return cmd
}

func newCollectionCreateCmd(g *Globals) *cobra.Command {
	var description string
	var games []string
	var force bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Save a collection of your games",
		Long: `Save a collection of games you own. The collection is embedded right away
so later duplicate checks see it.

Creation is refused when a similar collection already exists, unless --force
is given.`,
		Example: `  game-curator collection create "Cozy Nights" -d "Slow, warm games" -g stardew,spiritfarer`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				if !force {
					dup, err := app.Curator.CheckDuplicateCollection(ctx, userID, name, description, 0)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: duplicate check skipped: %v\n", err)
					} else if dup.IsDuplicate {
						best := dup.SimilarCollections[0]
						return fmt.Errorf("similar to existing collection %q (%s, %s similar); use --force to create anyway",
							best.Name, best.ID, formatPercent(best.Similarity))
					}
				}

				c, err := app.Curator.CreateCollection(ctx, userID, name, description, games)
				if err != nil {
					return err
				}
				if g.JSON {
					return writeJSON(cmd, c)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created collection %s (%s) with %d games\n", c.Name, c.ID, len(c.GameIDs))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Collection description")
	cmd.Flags().StringSliceVarP(&games, "games", "g", nil, "Comma-separated game ids")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the duplicate check")
	return cmd
}

func newCollectionListCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				cols, err := app.Store.ListCollections(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to list collections: %w", err)
				}
				if g.JSON {
					return writeJSON(cmd, cols)
				}
				if len(cols) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No collections yet.")
					return nil
				}
				rows := make([][]string, 0, len(cols))
				for _, c := range cols {
					cover := ""
					if c.CoverURL != "" {
						cover = "yes"
					}
					rows = append(rows, []string{
						c.ID,
						truncate(c.Name, 40),
						strconv.Itoa(len(c.GameIDs)),
						cover,
						truncate(strings.TrimSpace(c.Description), 40),
					})
				}
				printTable(cmd,
					[]string{"ID", "Name", "Games", "Cover", "Description"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft})
				return nil
			})
		},
	}
	return cmd
}
