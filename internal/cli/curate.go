package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/khanglvm/game-curator/internal/routing"
)

// NewSuggestCmd creates the 'suggest' command group.
func NewSuggestCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Ask the model for collections or the next game to play",
	}
	cmd.AddCommand(newSuggestCollectionsCmd(g))
	cmd.AddCommand(newSuggestNextCmd(g))
	return cmd
}

func newSuggestCollectionsCmd(g *Globals) *cobra.Command {
	var theme string

	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"c"},
		Short:   "Propose themed collections from your library",
		Long: `Propose 3 to 5 themed collections built from your own library.

With --theme, semantic search narrows the library to the most relevant games
before the model sees it. Suggestions are not saved; use 'collection create'
to keep one.`,
		Example: `  game-curator suggest collections --user alice
  game-curator suggest collections --theme "short cozy games"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				res, err := app.Curator.SuggestCollections(ctx, userID, theme)
				if err != nil {
					return err
				}
				if g.JSON {
					return writeJSON(cmd, res)
				}

				out := cmd.OutOrStdout()
				for i, c := range res.Collections {
					fmt.Fprintf(out, "%d. %s\n", i+1, colorize(out, text.Bold, c.Name))
					if c.Description != "" {
						fmt.Fprintf(out, "   %s\n", c.Description)
					}
					fmt.Fprintf(out, "   Games: %s\n", strings.Join(c.GameNames, ", "))
					if c.Reasoning != "" {
						fmt.Fprintf(out, "   Why:   %s\n", c.Reasoning)
					}
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "Model: %s  Sampling: %s  Cost: %s\n", res.Model, res.Strategy, formatUSD(res.Cost))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&theme, "theme", "t", "", "Free-text theme to focus the suggestions")
	return cmd
}

func newSuggestNextCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next [what you are in the mood for]",
		Short: "Pick the next game to play from your backlog",
		Example: `  game-curator suggest next
  game-curator suggest next "something under 10 hours"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				res, err := app.Curator.SuggestNextGame(ctx, userID, input)
				if err != nil {
					return err
				}
				if g.JSON {
					return writeJSON(cmd, res)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Play next: %s\n", colorize(out, text.Bold, res.Suggestion.GameName))
				if res.Suggestion.EstimatedHours != nil {
					fmt.Fprintf(out, "Estimated: %sh\n", strconv.FormatFloat(*res.Suggestion.EstimatedHours, 'f', -1, 64))
				}
				if res.Suggestion.Reasoning != "" {
					fmt.Fprintf(out, "\n%s\n\n", res.Suggestion.Reasoning)
				}
				fmt.Fprintf(out, "Model: %s  Sampling: %s  Cost: %s\n", res.Model, res.Strategy, formatUSD(res.Cost))
				return nil
			})
		},
	}
	return cmd
}

// NewCoverCmd creates the 'cover' command.
func NewCoverCmd(g *Globals) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "cover <collection-id>",
		Short: "Generate cover art for a collection",
		Long: `Generate cover art for one of your collections and store its URL.

Name and description default to the stored collection.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				n, d := name, description
				if n == "" || d == "" {
					c, err := app.Store.GetCollection(ctx, userID, args[0])
					if err == nil {
						if n == "" {
							n = c.Name
						}
						if d == "" {
							d = c.Description
						}
					}
				}

				res, err := app.Curator.GenerateCollectionCover(ctx, userID, n, d, args[0])
				if err != nil {
					return err
				}
				if g.JSON {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cover: %s\nModel: %s  Cost: %s\n", res.ImageURL, res.Model, formatUSD(res.Cost))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Collection name used in the prompt")
	cmd.Flags().StringVar(&description, "description", "", "Collection description used in the prompt")
	return cmd
}

// NewDupCmd creates the 'dup' command.
func NewDupCmd(g *Globals) *cobra.Command {
	var description string
	var minSimilarity float64

	cmd := &cobra.Command{
		Use:   "dup <name>",
		Short: "Check a proposed collection against your existing ones",
		Args:  cobra.ExactArgs(1),
		Example: `  game-curator dup "Cozy Farming" --description "Relaxing farm sims"
  game-curator dup "Soulslikes" --min-similarity 0.9`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				res, err := app.Curator.CheckDuplicateCollection(ctx, userID, args[0], description, minSimilarity)
				if err != nil {
					return err
				}
				if g.JSON {
					return writeJSON(cmd, res)
				}

				out := cmd.OutOrStdout()
				if !res.IsDuplicate {
					fmt.Fprintln(out, colorize(out, text.FgGreen, "No similar collections found."))
					return nil
				}
				fmt.Fprintln(out, colorize(out, text.FgYellow, "Possible duplicate of:"))
				rows := make([][]string, 0, len(res.SimilarCollections))
				for _, c := range res.SimilarCollections {
					rows = append(rows, []string{c.ID, c.Name, formatPercent(c.Similarity)})
				}
				printTable(cmd, []string{"ID", "Name", "Similarity"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Proposed collection description")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "Similarity threshold (default 0.85)")
	return cmd
}

// NewCostCmd creates the 'cost' command.
func NewCostCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost [task]",
		Short: "Estimate the cost of a task with your model settings",
		Long: `Estimate the USD cost of one run of a task. Without a task every task is
estimated. Tasks: collection_suggestions, next_game, cover_image.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks := []routing.TaskType{
				routing.TaskCollectionSuggestions,
				routing.TaskNextGame,
				routing.TaskCoverImage,
			}
			if len(args) == 1 {
				task := routing.TaskType(args[0])
				if !task.Valid() {
					return fmt.Errorf("unknown task %q (want collection_suggestions, next_game or cover_image)", args[0])
				}
				tasks = []routing.TaskType{task}
			}

			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				rows := make([][]string, 0, len(tasks))
				var estimates []interface{}
				for _, task := range tasks {
					est, err := app.Curator.EstimateCost(ctx, userID, task)
					if err != nil {
						return err
					}
					estimates = append(estimates, est)
					rows = append(rows, []string{string(est.Task), est.Model, rateCard(est.Model), formatUSD(est.USD)})
				}
				if g.JSON {
					return writeJSON(cmd, estimates)
				}
				printTable(cmd, []string{"Task", "Model", "Rate", "Estimate"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
				return nil
			})
		},
	}
	return cmd
}

// rateCard describes the price table entry used for model.
func rateCard(model string) string {
	p, ok := routing.PriceFor(model)
	switch {
	case !ok:
		return "unlisted"
	case p.PerImage > 0:
		return fmt.Sprintf("$%.3f/image", p.PerImage)
	default:
		return fmt.Sprintf("$%.2f in / $%.2f out per 1M", p.InputPerMillion, p.OutputPerMillion)
	}
}
