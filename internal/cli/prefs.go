package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/khanglvm/game-curator/internal/embedding"
)

// NewEmbedCmd creates the 'embed' command group.
func NewEmbedCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Manage game embeddings",
	}
	cmd.AddCommand(newEmbedBackfillCmd(g))
	return cmd
}

func newEmbedBackfillCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed every game in your library that has no vector yet",
		Long: `Embed the games in your library that are missing a stored vector.

Games are sent in batches of embedding.batch_size; a failed batch is counted
and the job continues with the next one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				missing, err := app.Store.GamesMissingEmbeddings(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to list games without embeddings: %w", err)
				}

				var res embedding.JobResult
				if len(missing) > 0 {
					res = app.Pipeline.Backfill(ctx, missing)
				}
				if g.JSON {
					return writeJSON(cmd, res)
				}
				if len(missing) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Every game already has an embedding.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d games: %d embedded, %d failed\n",
					res.Processed, res.Generated, res.Errors)
				if res.Errors > 0 {
					return fmt.Errorf("%d games could not be embedded", res.Errors)
				}
				return nil
			})
		},
	}
	return cmd
}

// NewPrefsCmd creates the 'prefs' command group.
func NewPrefsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"preferences"},
		Short:   "Inspect and refresh learned taste signals",
	}
	cmd.AddCommand(newPrefsRefreshCmd(g))
	cmd.AddCommand(newPrefsListCmd(g))
	return cmd
}

func newPrefsRefreshCmd(g *Globals) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-derive taste signals from your library",
		Long: `Re-derive taste signals (genre affinity, long playtime, franchises,
favorites, completed games) and store one vector per signal.

Signals younger than 7 days are kept unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				entries, err := app.Store.GetLibrary(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to load library: %w", err)
				}
				n, err := app.Learner.Refresh(ctx, userID, entries, force)
				if err != nil {
					return fmt.Errorf("failed to refresh preferences: %w", err)
				}
				if g.JSON {
					return writeJSON(cmd, map[string]int{"updated": n})
				}
				if n == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Preferences are up to date.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d taste signals\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Refresh even when signals are recent")
	return cmd
}

func newPrefsListCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored taste signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				prefs, err := app.Learner.Preferences(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to load preferences: %w", err)
				}
				if g.JSON {
					return writeJSON(cmd, prefs)
				}
				if len(prefs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No taste signals yet. Run 'game-curator prefs refresh'.")
					return nil
				}
				rows := make([][]string, 0, len(prefs))
				for _, p := range prefs {
					rows = append(rows, []string{
						p.Type,
						strconv.FormatFloat(p.Confidence, 'f', 2, 64),
						strconv.Itoa(p.SampleSize),
						p.UpdatedAt.Format("2006-01-02 15:04"),
					})
				}
				printTable(cmd,
					[]string{"Signal", "Confidence", "Games", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft})
				return nil
			})
		},
	}
	return cmd
}
