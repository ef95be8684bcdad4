package orchestrator

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harshul/jumpstart/internal/launcher"
	"github.com/harshul/jumpstart/internal/ports"
	"github.com/harshul/jumpstart/internal/provisioner"
)

// Framework is the frontend choice made when the project was generated.
type Framework string

const (
	FrameworkReact   Framework = "React"
	FrameworkVanilla Framework = "Vanilla JS"
)

// Frameworks lists the selectable frameworks, default first.
var Frameworks = []Framework{FrameworkReact, FrameworkVanilla}

// ParseFramework accepts the display names and a few spellings of them.
func ParseFramework(s string) (Framework, error) {
	switch strings.ToLower(strings.Join(strings.Fields(s), "")) {
	case "react":
		return FrameworkReact, nil
	case "vanillajs", "vanilla", "js":
		return FrameworkVanilla, nil
	default:
		return "", fmt.Errorf("%w: unknown frontend framework %q (want React or Vanilla JS)", ErrInvalidConfig, s)
	}
}

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultFrontendPort = 3000
	DefaultBackendPort  = 5000
)

// Service names, also used as directory names under the project.
const (
	ServiceFrontend = "frontend"
	ServiceBackend  = "backend"
)

// Config is everything the orchestrator needs to run a generated project.
type Config struct {
	ProjectName    string
	Framework      Framework
	IncludeBackend bool
	FrontendPath   string
	BackendPath    string

	FrontendPort int
	BackendPort  int
	// Commands default to the project's package.json start script.
	FrontendCommand []string
	BackendCommand  []string
	OpenBrowser     bool
}

// NewConfig returns the default configuration for a project rooted at dir.
func NewConfig(dir, name string, framework Framework, includeBackend bool) Config {
	return Config{
		ProjectName:    name,
		Framework:      framework,
		IncludeBackend: includeBackend,
		FrontendPath:   filepath.Join(dir, ServiceFrontend),
		BackendPath:    filepath.Join(dir, ServiceBackend),
		FrontendPort:   DefaultFrontendPort,
		BackendPort:    DefaultBackendPort,
		OpenBrowser:    true,
	}
}

// Validate checks fields that would otherwise fail late, mid-run.
func (c Config) Validate() error {
	if _, err := ParseFramework(string(c.Framework)); err != nil {
		return err
	}
	if c.runsFrontend() {
		if c.FrontendPath == "" {
			return fmt.Errorf("%w: frontend path is empty", ErrInvalidConfig)
		}
		if err := ports.ValidatePort(orDefault(c.FrontendPort, DefaultFrontendPort)); err != nil {
			return fmt.Errorf("%w: frontend: %w", ErrInvalidConfig, err)
		}
	}
	if c.IncludeBackend {
		if c.BackendPath == "" {
			return fmt.Errorf("%w: backend path is empty", ErrInvalidConfig)
		}
		if err := ports.ValidatePort(orDefault(c.BackendPort, DefaultBackendPort)); err != nil {
			return fmt.Errorf("%w: backend: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// framework is c.Framework in its display spelling. Unknown values are kept
// as they are; Validate reports them.
func (c Config) framework() Framework {
	if f, err := ParseFramework(string(c.Framework)); err == nil {
		return f
	}
	return c.Framework
}

func (c Config) runsFrontend() bool {
	return c.framework() != FrameworkVanilla
}

// Specs builds the ordered service list: frontend unless the framework is
// Vanilla JS, then backend when included.
func (c Config) Specs() []launcher.ServiceSpec {
	var specs []launcher.ServiceSpec
	if c.runsFrontend() {
		specs = append(specs, launcher.ServiceSpec{
			Name:                ServiceFrontend,
			Label:               string(c.framework()),
			WorkingDirectory:    c.FrontendPath,
			DesiredPort:         orDefault(c.FrontendPort, DefaultFrontendPort),
			StartCommand:        commandFor(c.FrontendCommand, c.FrontendPath),
			OpensBrowserOnReady: true,
		})
	}
	if c.IncludeBackend {
		specs = append(specs, launcher.ServiceSpec{
			Name:             ServiceBackend,
			Label:            "Express",
			WorkingDirectory: c.BackendPath,
			DesiredPort:      orDefault(c.BackendPort, DefaultBackendPort),
			StartCommand:     commandFor(c.BackendCommand, c.BackendPath),
		})
	}
	return specs
}

func orDefault(port, def int) int {
	if port == 0 {
		return def
	}
	return port
}

func commandFor(cmd []string, dir string) []string {
	if len(cmd) > 0 {
		return cmd
	}
	return provisioner.StartCommand(dir)
}
