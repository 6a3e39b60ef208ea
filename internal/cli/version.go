package cli

import (
	"runtime"

	"chalk-cli/internal/config"

	"github.com/spf13/cobra"
)

// Overridden at release time via -ldflags "-X chalk-cli/internal/cli.version=...".
var (
	version = "dev"
	commit  = "none"
)

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(app.CfgFile)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, cfg, map[string]any{"data": map[string]any{
				"version": version,
				"commit":  commit,
				"go":      runtime.Version(),
			}})
		},
	}
}
