package cli

import (
	"fmt"
	"strings"

	"chalk-cli/internal/config"
	"chalk-cli/internal/format"
	"chalk-cli/internal/logging"
	"chalk-cli/internal/store"
	"chalk-cli/internal/tui"

	"github.com/spf13/cobra"
)

// App carries the persistent flags every subcommand reads. Flag values
// override the config file and CHALK_* environment variables.
type App struct {
	CfgFile string
	Course  string
	Format  string
	Pretty  bool
	Offline bool
	Drafts  bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "chalk",
		Short:        "Course outline authoring CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive outline editor
  chalk --course course-123

  # Scriptable commands
  chalk projects list
  chalk lessons add --project proj-abc --title "Intro"
  chalk lessons mv lesson-x --to proj-def

  # Work from the last pulled snapshot, no network
  chalk pull && chalk outline --offline
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.CfgFile, "config", "", "Config file (default: ~/.config/chalk/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.Course, "course", "", "Course id (overrides config/CHALK_COURSE)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (json|yaml)")
	cmd.PersistentFlags().BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().BoolVar(&app.Offline, "offline", false, "Read from the last pulled snapshot instead of the server")
	cmd.PersistentFlags().BoolVar(&app.Drafts, "drafts", false, "Include draft lessons in listings")

	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newLessonsCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newStepsCmd(app))
	cmd.AddCommand(newOutlineCmd(app))
	cmd.AddCommand(newPullCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

func runTUI(app *App) error {
	cfg, err := config.Load(app.CfgFile)
	if err != nil {
		return err
	}
	courseID := resolveCourse(app, cfg)
	if courseID == "" {
		return errNoCourse
	}

	// The TUI owns the terminal, so logs must go to a file or nowhere.
	log := logging.Nop()
	if cfg.Log.File != "" {
		if log, err = logging.NewFile(cfg.Log.Mode, cfg.Log.Level, cfg.Log.File); err != nil {
			return err
		}
	}
	defer log.Sync()

	// The editor always wants draft lessons on screen.
	co, err := newCoordinator(cfg, log, courseID, true)
	if err != nil {
		return err
	}
	return tui.Run(co, store.Store{Path: cfg.StatePath}, log, courseID)
}

func resolveCourse(app *App, cfg config.Config) string {
	if v := strings.TrimSpace(app.Course); v != "" {
		return v
	}
	return cfg.Course
}

func outputFormat(app *App, cfg config.Config) string {
	if v := strings.TrimSpace(app.Format); v != "" {
		return v
	}
	if cfg.Output.Format != "" {
		return cfg.Output.Format
	}
	return "json"
}

func writeOut(cmd *cobra.Command, app *App, cfg config.Config, v any) error {
	return format.Write(cmd.OutOrStdout(), v, outputFormat(app, cfg), app.Pretty)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
