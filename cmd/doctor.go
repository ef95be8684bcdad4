package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harshul/jumpstart/internal/blueprint"
	"github.com/harshul/jumpstart/internal/doctor"
	"github.com/harshul/jumpstart/internal/ui"
	"github.com/spf13/cobra"
)

// doctorCmd checks that a project can be started.
var doctorCmd = &cobra.Command{
	Use:   "doctor [dir]",
	Short: "Check that Node.js, the package manager and dependencies are in place",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().Bool("fix", false, "Install missing dependencies")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	bp, err := blueprint.Load(dir)
	if errors.Is(err, blueprint.ErrNotFound) {
		bp = blueprint.Blueprint{Name: filepath.Base(dir), Backend: true}
	} else if err != nil {
		return err
	}
	cfg, err := bp.Config(dir)
	if err != nil {
		return err
	}

	d := doctor.Diagnose(cfg.Specs())
	if d.Node.Installed {
		ui.Highlight(d.Node.Name, d.Node.Version)
	}
	for _, s := range d.Services {
		if s.DirExists {
			ui.Highlight(s.Service, fmt.Sprintf("%s, start with '%s'", s.Manager, strings.Join(s.StartCommand, " ")))
		}
	}

	if d.Healthy {
		ui.Success("Everything needed to run " + bp.Name + " is in place")
		return nil
	}
	for _, issue := range d.Issues {
		ui.Warn(issue)
	}

	if fix, _ := cmd.Flags().GetBool("fix"); fix {
		if err := doctor.Fix(cmd.Context(), d); err != nil {
			return err
		}
		d = doctor.Diagnose(cfg.Specs())
		if d.Healthy {
			ui.Success("Dependencies installed")
			return nil
		}
	}
	return fmt.Errorf("%d problem(s) found", len(d.Issues))
}
