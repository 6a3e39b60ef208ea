package cli

import (
	"errors"
	"strings"

	"chalk-cli/internal/api"
	"chalk-cli/internal/config"
	"chalk-cli/internal/logging"
	"chalk-cli/internal/store"

	"github.com/spf13/cobra"
)

var errDoctorIssuesFound = errors.New("doctor found errors")

func newDoctorCmd(app *App) *cobra.Command {
	var fail bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check config, platform reachability and the local state db",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(app.CfgFile)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()

			checks := map[string]any{}
			issues := 0

			// Config presence.
			missing := []string{}
			if cfg.Server.URL == "" {
				missing = append(missing, "server.url")
			}
			if cfg.Server.Token == "" {
				missing = append(missing, "server.token")
			}
			if resolveCourse(app, cfg) == "" {
				missing = append(missing, "course")
			}
			if len(missing) > 0 {
				checks["config"] = "missing: " + strings.Join(missing, ", ")
				issues++
			} else {
				checks["config"] = "ok"
			}

			// Platform reachability; skipped when the URL is unset.
			if cfg.Server.URL == "" {
				checks["platform"] = "skipped (no server.url)"
			} else {
				client, err := api.NewClient(logging.Nop(), api.Options{
					BaseURL: cfg.Server.URL,
					Token:   cfg.Server.Token,
					Timeout: cfg.Server.Timeout,
				})
				if err != nil {
					checks["platform"] = err.Error()
					issues++
				} else if err := client.Ping(ctx); err != nil {
					checks["platform"] = err.Error()
					issues++
				} else {
					checks["platform"] = "ok"
				}
			}

			// Local state db.
			report := store.Store{Path: cfg.StatePath}.Doctor(ctx)
			checks["state"] = report
			if report.HasErrors() {
				issues++
			}

			if err := writeOut(cmd, app, cfg, map[string]any{
				"data": checks,
				"meta": map[string]any{"issues": issues},
			}); err != nil {
				return err
			}
			if fail && issues > 0 {
				return errDoctorIssuesFound
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fail, "fail", false, "Exit non-zero when issues are found")
	return cmd
}
