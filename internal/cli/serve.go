package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/game-curator/internal/cache"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/mcp"
)

// sweepInterval is how often expired in-memory cache entries are dropped.
const sweepInterval = 5 * time.Minute

// NewServeCmd creates the 'serve' command for running the MCP server.
//
// The server exposes the curation operations as 5 tools via stdio transport:
// suggest_collections, suggest_next_game, generate_collection_cover,
// check_duplicate_collection, estimate_cost.
func NewServeCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio transport)",
		Long: `Start the game-curator MCP server using stdio transport.

The server exposes 5 tools to AI clients:
  • suggest_collections        - Propose themed collections from the library
  • suggest_next_game          - Pick the next game to play
  • generate_collection_cover  - Draw cover art for a collection
  • check_duplicate_collection - Find collections close to a proposed one
  • estimate_cost              - Estimate the spend of one run of a task

Tool calls without a userId act on the --user library.`,
		Example: `  # Run directly
  game-curator serve --user alice

  # Add to Claude Code
  claude mcp add game-curator -- game-curator serve --user alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(commandContext(cmd), g)
		},
	}

	return cmd
}

// runServe starts the MCP server and shuts down on SIGINT/SIGTERM/SIGQUIT
// or when stdin closes.
func runServe(parent context.Context, g *Globals) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	app, err := openApp(ctx, g)
	if err != nil {
		return err
	}
	defer app.Close()

	log := logging.Component("serve")
	server := mcp.NewServer(app.Curator, g.defaultUser())

	if app.Memory != nil {
		go sweepLoop(ctx, app.Memory, sweepInterval)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
		return nil
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// sweepLoop periodically drops expired entries from the memory backend.
func sweepLoop(ctx context.Context, m *cache.MemoryBackend, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logging.Debug().Int("removed", n).Msg("Swept expired cache entries")
			}
		}
	}
}
