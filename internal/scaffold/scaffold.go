package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harshul/jumpstart/internal/logging"
	"github.com/harshul/jumpstart/internal/orchestrator"
	"github.com/harshul/jumpstart/internal/provisioner"
	"github.com/harshul/jumpstart/internal/ui"
)

// Generator and pinned packages used for new projects.
const (
	GeneratorCommand = "yo"
	GeneratorName    = "mywebgen"
)

// ReactPins are installed into React frontends after generation.
var ReactPins = []string{"react@18.2.0", "react-dom@18.2.0"}

// Step names reported in Error.
const (
	StepGenerate = "generate"
	StepPrune    = "prune"
	StepPin      = "pin"
)

// Error is returned when a scaffolding step fails.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scaffold %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Request describes the project to generate.
type Request struct {
	ProjectName    string
	Framework      orchestrator.Framework
	IncludeBackend bool
}

// ValidateName rejects project names that would escape the parent directory.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." || strings.ContainsAny(trimmed, `/\`) {
		return fmt.Errorf("%w: project name %q is not a valid directory name", orchestrator.ErrInvalidConfig, name)
	}
	return nil
}

// Validate checks the project name and the framework.
func (r Request) Validate() error {
	if err := ValidateName(r.ProjectName); err != nil {
		return err
	}
	_, err := orchestrator.ParseFramework(string(r.Framework))
	return err
}

// Args returns the generator arguments for r.
func (r Request) Args() []string {
	return []string{
		GeneratorName,
		"--projectName=" + r.ProjectName,
		"--frontendFramework=" + string(r.Framework),
		"--includeBackend=" + strconv.FormatBool(r.IncludeBackend),
	}
}

// Runner runs a command to completion in dir with the terminal attached.
type Runner func(ctx context.Context, dir, name string, args ...string) error

// Generator creates new projects with the external generator.
type Generator struct {
	// Parent is the directory the project is created in.
	Parent string
	Run    Runner
}

// NewGenerator returns a generator that creates projects under parent.
func NewGenerator(parent string) *Generator {
	return &Generator{Parent: parent, Run: Exec(os.Stdin, os.Stdout, os.Stderr)}
}

// Exec returns a Runner bound to the given stdio.
func Exec(stdin io.Reader, stdout, stderr io.Writer) Runner {
	return func(ctx context.Context, dir, name string, args ...string) error {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Dir = dir
		cmd.Stdin = stdin
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		return cmd.Run()
	}
}

// Generate runs the generator, removes the backend when it was not requested
// and pins the React version. It returns the project directory.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	projectDir := filepath.Join(g.Parent, req.ProjectName)
	args := req.Args()

	ui.Step("", "Running Jump-Starter with these arguments: "+strings.Join(args, " "))
	logging.Info("Scaffold", "running %s %s in %s", GeneratorCommand, strings.Join(args, " "), g.Parent)
	if err := g.Run(ctx, g.Parent, GeneratorCommand, args...); err != nil {
		ui.Error("Generation failed.")
		return "", &Error{Step: StepGenerate, Err: err}
	}
	ui.Step("✅", "Jump-Starter generation complete!")

	if !req.IncludeBackend {
		if err := pruneBackend(projectDir); err != nil {
			return projectDir, &Error{Step: StepPrune, Err: err}
		}
	}

	if req.Framework == orchestrator.FrameworkReact {
		frontend := filepath.Join(projectDir, orchestrator.ServiceFrontend)
		ui.Step("🔧", "Ensuring React 18.2.0 is installed in the frontend...")
		add := provisioner.AddCommand(frontend, ReactPins...)
		if err := g.Run(ctx, frontend, add[0], add[1:]...); err != nil {
			ui.Error("Failed to install React 18.2.0")
			return projectDir, &Error{Step: StepPin, Err: err}
		}
	}
	return projectDir, nil
}

func pruneBackend(projectDir string) error {
	backend := filepath.Join(projectDir, orchestrator.ServiceBackend)
	if _, err := os.Stat(backend); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	ui.Step("🗑", "Removing Express backend folder since it was not requested...")
	return os.RemoveAll(backend)
}
