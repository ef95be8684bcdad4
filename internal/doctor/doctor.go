package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/harshul/jumpstart/internal/launcher"
	"github.com/harshul/jumpstart/internal/provisioner"
	"github.com/harshul/jumpstart/internal/secrets"
)

// RuntimeStatus represents the status of a runtime check
type RuntimeStatus struct {
	Name      string
	Installed bool
	Version   string
	Hint      string
}

// ServiceStatus is the health of one service directory.
type ServiceStatus struct {
	Service          string
	Dir              string
	DirExists        bool
	Manager          provisioner.PackageManager
	ManagerInstalled bool
	ManagerHint      string
	// DepsInstalled is true when node_modules exists or there is no package.json.
	DepsInstalled  bool
	InstallCommand []string
	StartCommand   []string
	// MissingEnv lists credential-like variables the sources read that no
	// env file or the current environment defines.
	MissingEnv []string
}

// Diagnosis contains the full health check results
type Diagnosis struct {
	Node     RuntimeStatus
	Services []ServiceStatus
	Healthy  bool
	Issues   []string
}

// Diagnose checks node and every service in specs.
func Diagnose(specs []launcher.ServiceSpec) Diagnosis {
	d := Diagnosis{Node: checkRuntime("Node.js", "node"), Healthy: true}
	if !d.Node.Installed {
		d.issue("Node.js runtime is not installed. " + d.Node.Hint)
	}

	for _, spec := range specs {
		s := checkService(spec)
		d.Services = append(d.Services, s)
		if p := s.Problem(); p != "" {
			d.issue(p)
		}
	}
	return d
}

// Problem describes what keeps the service from starting, or "" if nothing.
func (s ServiceStatus) Problem() string {
	switch {
	case !s.DirExists:
		return fmt.Sprintf("%s folder %s does not exist", s.Service, s.Dir)
	case !s.ManagerInstalled:
		return fmt.Sprintf("%s is required for the %s. %s", provisioner.ManagerName(s.Manager), s.Service, s.ManagerHint)
	case !s.DepsInstalled:
		return fmt.Sprintf("%s dependencies are not installed (run '%s' in %s)", s.Service, strings.Join(s.InstallCommand, " "), s.Dir)
	case len(s.MissingEnv) > 0:
		return fmt.Sprintf("%s reads %s but no .env file defines it", s.Service, strings.Join(s.MissingEnv, ", "))
	default:
		return ""
	}
}

func (d *Diagnosis) issue(msg string) {
	d.Healthy = false
	d.Issues = append(d.Issues, msg)
}

func checkRuntime(name, tool string) RuntimeStatus {
	status := RuntimeStatus{Name: name}
	version, err := provisioner.LookVersion(tool)
	if err != nil {
		status.Hint = provisioner.InstallHint(tool)
		return status
	}
	status.Installed = true
	status.Version = version
	return status
}

func checkService(spec launcher.ServiceSpec) ServiceStatus {
	s := ServiceStatus{Service: spec.Name, Dir: spec.WorkingDirectory, StartCommand: spec.StartCommand}
	if info, err := os.Stat(s.Dir); err != nil || !info.IsDir() {
		return s
	}
	s.DirExists = true

	check := provisioner.Check(s.Dir)
	s.Manager = check.Manager
	s.ManagerInstalled = check.IsAvailable
	s.ManagerHint = check.InstallHint
	s.InstallCommand = provisioner.InstallCommand(s.Dir)
	if env, err := secrets.Check(s.Dir); err == nil {
		s.MissingEnv = secrets.Names(env.Missing)
	}

	if _, err := os.Stat(filepath.Join(s.Dir, "package.json")); err != nil {
		s.DepsInstalled = true
		return s
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "node_modules")); err == nil {
		s.DepsInstalled = true
	}
	return s
}

// Fix installs missing dependencies of every service that has its package
// manager available.
func Fix(ctx context.Context, d Diagnosis) error {
	for _, s := range d.Services {
		if !s.DirExists || !s.ManagerInstalled || s.DepsInstalled {
			continue
		}
		cmd := exec.CommandContext(ctx, s.InstallCommand[0], s.InstallCommand[1:]...)
		cmd.Dir = s.Dir
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s: %s failed: %w", s.Service, strings.Join(s.InstallCommand, " "), err)
		}
	}
	return nil
}
