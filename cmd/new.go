package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harshul/jumpstart/internal/blueprint"
	"github.com/harshul/jumpstart/internal/orchestrator"
	"github.com/harshul/jumpstart/internal/provisioner"
	"github.com/harshul/jumpstart/internal/scaffold"
	"github.com/harshul/jumpstart/internal/ui"
	"github.com/spf13/cobra"
)

// newCmd represents the new command
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new project and start its dev servers",
	Long: `The new command asks for a project name, a frontend framework and whether
to include an Express backend, then:
- Runs the mywebgen generator (yo mywebgen) to create the project
- Removes the backend folder when you did not ask for one
- Pins React 18.2.0 in React frontends
- Writes .jumpstart.yaml and starts the dev servers`,
	Args: cobra.NoArgs,
	RunE: runNew,
}

func init() {
	addServeFlags(newCmd.Flags())
	newCmd.Flags().String("name", "", "Project name (default Jump-Starter)")
	newCmd.Flags().String("frontend", "", "Frontend framework (React, Vanilla JS)")
	newCmd.Flags().Bool("backend", true, "Include an Express backend")
	newCmd.Flags().String("requirements", "", "What the app should do")
	newCmd.Flags().StringP("dir", "C", "", "Directory to create the project in (default: current directory)")
	newCmd.Flags().Bool("no-start", false, "Only generate the project, do not start it")
}

func runNew(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	parent, _ := flags.GetString("dir")
	if parent == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		parent = cwd
	}

	ui.Banner("Welcome to Jump-Starter Auto Starter!")

	preset := ui.ProjectAnswers{}
	preset.Name, _ = flags.GetString("name")
	preset.Framework, _ = flags.GetString("frontend")
	preset.IncludeBackend, _ = flags.GetBool("backend")
	preset.Requirements, _ = flags.GetString("requirements")

	answers := preset
	if isTerminal(os.Stdin) {
		frameworks := make([]string, 0, len(orchestrator.Frameworks))
		for _, f := range orchestrator.Frameworks {
			frameworks = append(frameworks, string(f))
		}
		var err error
		answers, err = ui.AskProject(ui.TerminalAsker{}, preset, ui.Questionnaire{
			Frameworks:   frameworks,
			AskBackend:   !flags.Changed("backend"),
			ValidateName: scaffold.ValidateName,
		})
		if err != nil {
			return err
		}
	}
	if answers.Name == "" {
		answers.Name = ui.DefaultProjectName
	}
	if answers.Framework == "" {
		answers.Framework = string(orchestrator.FrameworkReact)
	}
	if answers.Requirements == "" {
		answers.Requirements = ui.DefaultRequirements
	}

	if answers.Requirements != ui.DefaultRequirements {
		ui.Step("🤖", "Code generation with AI coming soon.")
		return nil
	}

	framework, err := orchestrator.ParseFramework(answers.Framework)
	if err != nil {
		return err
	}
	req := scaffold.Request{ProjectName: answers.Name, Framework: framework, IncludeBackend: answers.IncludeBackend}
	if err := req.Validate(); err != nil {
		return err
	}
	if _, err := provisioner.Require(scaffold.GeneratorCommand); err != nil {
		return &scaffold.Error{Step: scaffold.StepGenerate, Err: err}
	}

	dir, err := scaffold.NewGenerator(parent).Generate(cmd.Context(), req)
	if err != nil {
		return err
	}

	bp := blueprint.New(req.ProjectName, req.Framework, req.IncludeBackend)
	if err := blueprint.Write(blueprint.Path(dir), bp); err != nil {
		ui.Warn(fmt.Sprintf("Could not write %s: %v", blueprint.FileName, err))
	}

	if noStart, _ := flags.GetBool("no-start"); noStart {
		rel, err := filepath.Rel(parent, dir)
		if err != nil {
			rel = dir
		}
		ui.Info(fmt.Sprintf("Run 'jumpstart run %s' to start your project", rel))
		return nil
	}

	cfg, err := bp.Config(dir)
	if err != nil {
		return err
	}
	return serve(cmd, bp, cfg)
}
