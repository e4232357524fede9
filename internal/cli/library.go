package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/search"
)

// NewLibraryCmd creates the 'library' command group.
func NewLibraryCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "library",
		Aliases: []string{"lib"},
		Short:   "Import and list the games in your library",
	}
	cmd.AddCommand(newLibraryImportCmd(g))
	cmd.AddCommand(newLibraryListCmd(g))
	return cmd
}

func newLibraryImportCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.json|->",
		Short: "Import library entries from a JSON file",
		Long: `Import library entries from a JSON array. Each element has a "game" object
(id and name required) and optional status, rating, playtimeMinutes,
completionPct and favorite fields. Existing entries are updated.

Use "-" to read from stdin.`,
		Example: `  game-curator library import games.json --user alice
  cat games.json | game-curator library import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readEntries(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				n, err := importEntries(ctx, app, userID, entries)
				if err != nil {
					return err
				}
				if g.JSON {
					return writeJSON(cmd, map[string]int{"imported": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d games for %s\n", n, userID)
				fmt.Fprintln(cmd.OutOrStdout(), "Run 'game-curator embed backfill' to index them for semantic search.")
				return nil
			})
		},
	}
	return cmd
}

// readEntries decodes a JSON array of entries from path, or stdin for "-".
func readEntries(stdin io.Reader, path string) ([]library.Entry, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read library file: %w", err)
	}

	var entries []library.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid library file: %w", err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Game.ID) == "" || strings.TrimSpace(e.Game.Name) == "" {
			return nil, fmt.Errorf("entry %d: game id and name are required", i)
		}
		if e.Rating != nil && (*e.Rating < 1 || *e.Rating > 10) {
			return nil, fmt.Errorf("entry %d (%s): rating must be between 1 and 10", i, e.Game.Name)
		}
	}
	return entries, nil
}

// importEntries writes entries for userID and drops the cached snapshot.
func importEntries(ctx context.Context, app *App, userID string, entries []library.Entry) (int, error) {
	for i, e := range entries {
		e.UserID = userID
		e.Status = library.ParseStatus(string(e.Status))
		if err := app.Store.UpsertLibraryEntry(ctx, e); err != nil {
			return i, fmt.Errorf("failed to import %s: %w", e.Game.Name, err)
		}
	}
	app.Curator.InvalidateLibrary(ctx, userID)
	return len(entries), nil
}

func newLibraryListCmd(g *Globals) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the games in your library",
		Example: `  game-curator library list
  game-curator library ls --status backlog --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []library.Status
			if status != "" {
				for _, s := range strings.Split(status, ",") {
					st := library.Status(strings.ToLower(strings.TrimSpace(s)))
					if !st.Valid() {
						return fmt.Errorf("unknown status %q", s)
					}
					statuses = append(statuses, st)
				}
			}

			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				entries, err := app.Store.GetLibrary(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to load library: %w", err)
				}
				games := library.FilterStatus(library.Summarize(entries), statuses...)

				if g.JSON {
					return writeJSON(cmd, games)
				}
				if len(games) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No games found.")
					fmt.Fprintln(cmd.OutOrStdout(), "Run 'game-curator library import <file>' to add some.")
					return nil
				}

				rows := make([][]string, 0, len(games))
				for _, gm := range games {
					rating := ""
					if gm.Rating != nil {
						rating = strconv.Itoa(*gm.Rating)
					}
					rows = append(rows, []string{
						gm.ID,
						truncate(gm.Name, 40),
						string(gm.Status),
						rating,
						strconv.FormatFloat(gm.PlaytimeHours, 'f', 1, 64),
						truncate(strings.Join(gm.Genres, ", "), 30),
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Library of %s (%d games):\n", userID, len(games))
				printTable(cmd,
					[]string{"ID", "Name", "Status", "Rating", "Hours", "Genres"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft})
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Comma-separated statuses to include")
	return cmd
}

// NewSearchCmd creates the 'search' command.
func NewSearchCmd(g *Globals) *cobra.Command {
	var limit int
	var minSimilarity float64
	var keyword bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search your library by meaning or keywords",
		Long: `Search your library. By default the query is embedded and matched by
cosine similarity; --keyword uses the BM25 index instead, which needs no
embedding provider.`,
		Example: `  game-curator search "atmospheric exploration"
  game-curator search roguelike --keyword`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				var results []search.Result
				var err error
				if keyword {
					results, err = keywordSearch(ctx, app, userID, text, limit)
				} else {
					results, err = app.Searcher.Search(ctx, search.Query{
						Text:          text,
						UserID:        userID,
						Limit:         limit,
						MinSimilarity: minSimilarity,
					})
				}
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}

				if g.JSON {
					return writeJSON(cmd, results)
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
					return nil
				}
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.EntityID, truncate(r.Label, 50), strconv.FormatFloat(r.Similarity, 'f', 3, 64)})
				}
				printTable(cmd, []string{"ID", "Name", "Score"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0.3, "Minimum cosine similarity for semantic search")
	cmd.Flags().BoolVarP(&keyword, "keyword", "k", false, "Use keyword (BM25) search")
	return cmd
}

func keywordSearch(ctx context.Context, app *App, userID, text string, limit int) ([]search.Result, error) {
	entries, err := app.Store.GetLibrary(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := app.Keyword.IndexLibrary(userID, entries); err != nil {
		return nil, err
	}
	return app.Keyword.Search(userID, text, limit, nil)
}
