package provisioner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// PackageManager represents a detected package manager
type PackageManager string

const (
	NPM  PackageManager = "npm"
	PNPM PackageManager = "pnpm"
	Yarn PackageManager = "yarn"
	Bun  PackageManager = "bun"
)

// lockFiles in detection order: pnpm > bun > yarn > npm.
var lockFiles = []struct {
	name    string
	manager PackageManager
}{
	{"pnpm-lock.yaml", PNPM},
	{"pnpm-workspace.yaml", PNPM},
	{"bun.lockb", Bun},
	{"bun.lock", Bun},
	{"yarn.lock", Yarn},
	{"package-lock.json", NPM},
}

// Manifest is the subset of package.json the launcher cares about.
type Manifest struct {
	Name            string            `json:"name"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Workspaces      json.RawMessage   `json:"workspaces"`
}

// HasScript reports whether the manifest defines a non-empty script.
func (m Manifest) HasScript(name string) bool {
	return strings.TrimSpace(m.Scripts[name]) != ""
}

// ReadManifest parses <dir>/package.json. Comments and trailing commas are
// tolerated.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return m, fmt.Errorf("failed to parse %s: %w", filepath.Join(dir, "package.json"), err)
	}
	return m, nil
}

// Info describes the package manager a service directory uses.
type Info struct {
	Manager  PackageManager
	LockFile string
	// IsMonorepo is set for pnpm workspaces and package.json "workspaces".
	IsMonorepo bool
}

// Detect checks for lock files in dir and falls back to npm.
func Detect(dir string) Info {
	for _, lf := range lockFiles {
		if _, err := os.Stat(filepath.Join(dir, lf.name)); err == nil {
			return Info{Manager: lf.manager, LockFile: lf.name, IsMonorepo: isWorkspace(dir, lf.manager)}
		}
	}

	// workspace: protocol is pnpm-specific, even before a lock file exists.
	if data, err := os.ReadFile(filepath.Join(dir, "package.json")); err == nil && strings.Contains(string(data), `"workspace:`) {
		return Info{Manager: PNPM, LockFile: "pnpm-lock.yaml", IsMonorepo: true}
	}
	return Info{Manager: NPM, LockFile: "package-lock.json", IsMonorepo: isWorkspace(dir, NPM)}
}

func isWorkspace(dir string, pm PackageManager) bool {
	if pm == PNPM {
		if _, err := os.Stat(filepath.Join(dir, "pnpm-workspace.yaml")); err == nil {
			return true
		}
	}
	m, err := ReadManifest(dir)
	return err == nil && len(m.Workspaces) > 0 && string(m.Workspaces) != "null"
}

// StartCommand returns the command that runs the dev server in dir: the
// "start" script when defined, else "dev", else the manager's plain start
// (npm start falls back to `node server.js`).
func StartCommand(dir string) []string {
	info := Detect(dir)
	m, err := ReadManifest(dir)
	if err == nil && !m.HasScript("start") && m.HasScript("dev") {
		return runScript(info.Manager, "dev")
	}
	return runScript(info.Manager, "start")
}

func runScript(pm PackageManager, script string) []string {
	// bun start is not an alias for bun run start.
	if script == "start" && pm != Bun {
		return []string{string(pm), "start"}
	}
	return []string{string(pm), "run", script}
}

// AddCommand returns the command that adds pkgs as dependencies in dir.
func AddCommand(dir string, pkgs ...string) []string {
	info := Detect(dir)
	var cmd []string
	switch info.Manager {
	case NPM:
		cmd = []string{"npm", "install"}
	default:
		cmd = []string{string(info.Manager), "add"}
	}
	return append(cmd, pkgs...)
}

// InstallCommand returns the command that installs all dependencies in dir.
func InstallCommand(dir string) []string {
	info := Detect(dir)
	if info.Manager == PNPM && info.IsMonorepo {
		return []string{"pnpm", "install", "-r"}
	}
	return []string{string(info.Manager), "install"}
}

// LookVersion reports the installed version of a tool; replaced in tests.
var LookVersion = func(tool string) (string, error) {
	out, err := exec.Command(tool, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CheckResult represents the result of checking package manager availability
type CheckResult struct {
	Manager     PackageManager
	IsAvailable bool
	Version     string
	InstallHint string
}

// ErrMissingTool is wrapped by Require when a tool is not installed.
var ErrMissingTool = errors.New("required tool is not installed")

// Check verifies that the package manager dir needs is available.
func Check(dir string) CheckResult {
	info := Detect(dir)
	result := CheckResult{Manager: info.Manager}

	version, err := LookVersion(string(info.Manager))
	if err != nil {
		result.InstallHint = InstallHint(string(info.Manager))
		return result
	}
	result.IsAvailable = true
	result.Version = version
	return result
}

// Require returns an error wrapping ErrMissingTool, with an install hint, when
// tool cannot be run.
func Require(tool string) (string, error) {
	version, err := LookVersion(tool)
	if err != nil {
		return "", fmt.Errorf("%s: %w. %s", tool, ErrMissingTool, InstallHint(tool))
	}
	return version, nil
}

// InstallHint returns the installation hint for a tool
func InstallHint(tool string) string {
	switch PackageManager(tool) {
	case PNPM:
		return "Please run 'corepack enable pnpm' to continue."
	case Yarn:
		return "Please run 'corepack enable yarn' to continue."
	case Bun:
		return "Please install bun from https://bun.sh or run 'curl -fsSL https://bun.sh/install | bash'"
	case NPM:
		return "Please install Node.js from https://nodejs.org"
	}
	switch tool {
	case "yo":
		return "Please run 'npm install -g yo generator-mywebgen' to continue."
	case "node":
		return "Please install Node.js from https://nodejs.org"
	default:
		return ""
	}
}

// ManagerName returns a user-friendly name for the package manager
func ManagerName(manager PackageManager) string {
	switch manager {
	case Yarn:
		return "Yarn"
	case Bun:
		return "Bun"
	default:
		return string(manager)
	}
}
