package blueprint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harshul/jumpstart/internal/orchestrator"
	"github.com/harshul/jumpstart/internal/readiness"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file kept in the project root.
const FileName = ".jumpstart.yaml"

// Service overrides the defaults of one dev server.
type Service struct {
	Port    int      `yaml:"port,omitempty"`
	Command []string `yaml:"command,omitempty,flow"`
}

// Blueprint is the project configuration written by `jumpstart new`.
type Blueprint struct {
	Name      string `yaml:"name"`
	Frontend  string `yaml:"frontend"`
	Backend   bool   `yaml:"backend"`
	Readiness string `yaml:"readiness,omitempty"`
	// OpenBrowser defaults to true when absent.
	OpenBrowser *bool `yaml:"open_browser,omitempty"`
	Services    struct {
		Frontend Service `yaml:"frontend,omitempty"`
		Backend  Service `yaml:"backend,omitempty"`
	} `yaml:"services,omitempty"`
}

// New returns a blueprint for a freshly generated project.
func New(name string, framework orchestrator.Framework, backend bool) Blueprint {
	return Blueprint{
		Name:      name,
		Frontend:  string(framework),
		Backend:   backend,
		Readiness: string(readiness.ModeProbe),
	}
}

// Path returns the blueprint location for a project directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Write writes the blueprint as a YAML file.
func Write(path string, bp Blueprint) error {
	data, err := yaml.Marshal(&bp)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Read reads and validates a blueprint file.
func Read(path string) (Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Blueprint{}, err
	}

	var bp Blueprint
	if err := yaml.Unmarshal(data, &bp); err != nil {
		return Blueprint{}, fmt.Errorf("%w: %s: %v", orchestrator.ErrInvalidConfig, path, err)
	}

	if bp.Name == "" {
		return Blueprint{}, fmt.Errorf("%w: missing name", orchestrator.ErrInvalidConfig)
	}
	if _, err := bp.Mode(); err != nil {
		return Blueprint{}, fmt.Errorf("%w: %v", orchestrator.ErrInvalidConfig, err)
	}
	return bp, nil
}

// Mode returns the readiness mode, probe when unset.
func (bp Blueprint) Mode() (readiness.Mode, error) {
	return readiness.ParseMode(bp.Readiness)
}

// Config converts the blueprint into an orchestrator configuration for the
// project rooted at dir.
func (bp Blueprint) Config(dir string) (orchestrator.Config, error) {
	framework := orchestrator.FrameworkReact
	if bp.Frontend != "" {
		var err error
		if framework, err = orchestrator.ParseFramework(bp.Frontend); err != nil {
			return orchestrator.Config{}, err
		}
	}

	cfg := orchestrator.NewConfig(dir, bp.Name, framework, bp.Backend)
	if p := bp.Services.Frontend.Port; p != 0 {
		cfg.FrontendPort = p
	}
	if p := bp.Services.Backend.Port; p != 0 {
		cfg.BackendPort = p
	}
	cfg.FrontendCommand = bp.Services.Frontend.Command
	cfg.BackendCommand = bp.Services.Backend.Command
	if bp.OpenBrowser != nil {
		cfg.OpenBrowser = *bp.OpenBrowser
	}

	if err := cfg.Validate(); err != nil {
		return orchestrator.Config{}, err
	}
	return cfg, nil
}

// ErrNotFound is returned by Load when the project has no blueprint.
var ErrNotFound = errors.New("no " + FileName + " found")

// Load reads the blueprint of the project in dir.
func Load(dir string) (Blueprint, error) {
	bp, err := Read(Path(dir))
	if errors.Is(err, os.ErrNotExist) {
		return Blueprint{}, fmt.Errorf("%w in %s", ErrNotFound, dir)
	}
	return bp, err
}
