package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/game-curator/internal/benchmark"
)

// NewBenchmarkCmd creates the 'benchmark' command.
func NewBenchmarkCmd(g *Globals) *cobra.Command {
	var theme string

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare prompt size with and without sampling",
		Long: `Render the collection-suggestion prompt for your whole library and for the
sampled subset, then compare estimated input tokens and cost at the model
your settings route to. Nothing is sent to a provider.`,
		Example: `  game-curator benchmark
  game-curator benchmark --theme "short games" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				p, err := app.Curator.PreviewCollectionsPrompt(ctx, userID, theme)
				if err != nil {
					return err
				}
				result := benchmark.Compare(p.Model, string(p.Strategy),
					benchmark.Prompt{Games: p.FullGames, Text: p.FullPrompt},
					benchmark.Prompt{Games: p.SampledGames, Text: p.SampledPrompt})

				if g.JSON {
					return writeJSON(cmd, result)
				}
				fmt.Fprint(cmd.OutOrStdout(), benchmark.FormatResult(result))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&theme, "theme", "t", "", "Theme used for semantic sampling")
	return cmd
}
