package cli

import (
	"github.com/spf13/cobra"

	"github.com/khanglvm/game-curator/internal/version"
)

// NewRootCmd builds the game-curator command tree.
func NewRootCmd() *cobra.Command {
	g := &Globals{}

	root := &cobra.Command{
		Use:   "game-curator",
		Short: "AI curation for your game library",
		Long: `game-curator suggests themed collections, picks the next game to play and
draws collection covers from your own game library.

Semantic retrieval keeps prompts small: only the games relevant to a request
are sent to the model, with keyword and quota sampling as fallbacks when
embeddings are unavailable.`,
		Version:       version.Current().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Configuration file path (default ~/.game-curator/config.yaml)")
	root.PersistentFlags().StringVarP(&g.UserID, "user", "u", "", "Library owner (default $"+UserEnvVar+")")
	root.PersistentFlags().BoolVarP(&g.JSON, "json", "j", false, "Output as JSON")

	root.AddCommand(NewInitCmd(g))
	root.AddCommand(NewServeCmd(g))
	root.AddCommand(NewSuggestCmd(g))
	root.AddCommand(NewCoverCmd(g))
	root.AddCommand(NewDupCmd(g))
	root.AddCommand(NewCostCmd(g))
	root.AddCommand(NewLibraryCmd(g))
	root.AddCommand(NewCollectionCmd(g))
	root.AddCommand(NewSearchCmd(g))
	root.AddCommand(NewEmbedCmd(g))
	root.AddCommand(NewPrefsCmd(g))
	root.AddCommand(NewSettingsCmd(g))
	root.AddCommand(NewActivityCmd(g))
	root.AddCommand(NewBenchmarkCmd(g))
	root.AddCommand(NewVersionCmd(g))

	return root
}
