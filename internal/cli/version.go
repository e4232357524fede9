package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/game-curator/internal/version"
)

// NewVersionCmd creates the 'version' command
func NewVersionCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the current version, commit hash, and build date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Current()
			if g.JSON {
				return writeJSON(cmd, info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:  %s\n", info.Version)
			fmt.Fprintf(out, "Commit:   %s\n", info.Commit)
			fmt.Fprintf(out, "Built:    %s\n", info.Date)
			return nil
		},
	}

	return cmd
}
