package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harshul/jumpstart/internal/blueprint"
	"github.com/harshul/jumpstart/internal/browser"
	"github.com/harshul/jumpstart/internal/doctor"
	"github.com/harshul/jumpstart/internal/launcher"
	"github.com/harshul/jumpstart/internal/logging"
	"github.com/harshul/jumpstart/internal/orchestrator"
	"github.com/harshul/jumpstart/internal/ports"
	"github.com/harshul/jumpstart/internal/readiness"
	"github.com/harshul/jumpstart/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Start the dev servers of a generated project",
	Long: `The run command reads the .jumpstart.yaml file of a project (default: the
current directory) and starts its development servers.

It will:
- Find a free port for each server, asking you when the default is taken
- Start the React frontend and the Express backend with PORT set
- Open the frontend in your browser once it answers
- Stop every server when you press Ctrl+C`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	addServeFlags(runCmd.Flags())
	runCmd.Flags().String("frontend", "", "Frontend framework (React, Vanilla JS)")
	runCmd.Flags().Bool("backend", false, "Start the Express backend")
	runCmd.Flags().Int("frontend-port", 0, "Preferred frontend port (default 3000)")
	runCmd.Flags().Int("backend-port", 0, "Preferred backend port (default 5000)")
}

// addServeFlags registers the flags shared by every command that starts the
// dev servers.
func addServeFlags(fs *pflag.FlagSet) {
	fs.String("readiness", "", "How to decide the frontend is up: probe (poll its port) or delay (wait 5s)")
	fs.Bool("no-browser", false, "Do not open the browser")
	fs.BoolP("yes", "y", false, "Accept suggested ports without asking")
}

func runRun(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve project directory: %w", err)
	}

	bp, err := blueprint.Load(dir)
	switch {
	case errors.Is(err, blueprint.ErrNotFound):
		ui.Warn(fmt.Sprintf("No %s in %s; using defaults.", blueprint.FileName, dir))
		bp = blueprint.Blueprint{Name: filepath.Base(dir)}
	case err != nil:
		return fmt.Errorf("failed to read configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("frontend") {
		bp.Frontend, _ = flags.GetString("frontend")
	}
	if flags.Changed("backend") {
		bp.Backend, _ = flags.GetBool("backend")
	}
	if flags.Changed("frontend-port") {
		bp.Services.Frontend.Port, _ = flags.GetInt("frontend-port")
	}
	if flags.Changed("backend-port") {
		bp.Services.Backend.Port, _ = flags.GetInt("backend-port")
	}

	cfg, err := bp.Config(dir)
	if err != nil {
		return err
	}
	return serve(cmd, bp, cfg)
}

// serve runs the orchestrator for cfg until the command's context is
// cancelled.
func serve(cmd *cobra.Command, bp blueprint.Blueprint, cfg orchestrator.Config) error {
	flags := cmd.Flags()
	if flags.Changed("readiness") {
		bp.Readiness, _ = flags.GetString("readiness")
	}
	mode, err := bp.Mode()
	if err != nil {
		return fmt.Errorf("%w: %v", orchestrator.ErrInvalidConfig, err)
	}
	if noBrowser, _ := flags.GetBool("no-browser"); noBrowser {
		cfg.OpenBrowser = false
	}
	yes, _ := flags.GetBool("yes")

	preflight(cfg)

	o, err := newOrchestrator(cfg, mode, yes)
	if err != nil {
		return err
	}
	logging.Info("CLI", "run %s: serving %s", o.RunID(), cfg.ProjectName)
	return o.Run(cmd.Context())
}

func newOrchestrator(cfg orchestrator.Config, mode readiness.Mode, yes bool) (*orchestrator.Orchestrator, error) {
	interactive := isTerminal(os.Stdin)

	var prompter ports.Prompter = ui.NewLinePrompter(os.Stdin, ui.Output())
	if yes {
		prompter = &ui.AutoPrompter{}
	}
	negotiator := ports.NewNegotiator(ports.NewProbe(), prompter)
	negotiator.Describe = ports.DescribeOccupant

	l := launcher.New()
	// Without a terminal there is no job control to deliver Ctrl+C to the
	// children, so give them their own group and signal it on shutdown.
	l.NewProcessGroup = !interactive

	return orchestrator.New(cfg, orchestrator.Options{
		Resolver: negotiator,
		Launcher: l,
		Waiter:   readiness.New(mode),
		Opener:   browser.NewSystemOpener(),
	})
}

// preflight warns about problems that would make a service fail to start.
func preflight(cfg orchestrator.Config) {
	d := doctor.Diagnose(cfg.Specs())
	if !d.Node.Installed {
		ui.Warn("Node.js was not found. " + d.Node.Hint)
	}
	// Missing folders are reported by the orchestrator when it reaches them.
	for _, s := range d.Services {
		if s.DirExists && s.Problem() != "" {
			ui.Warn(s.Problem())
		}
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
