package secrets

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// EnvVar is an environment variable referenced by service source code.
type EnvVar struct {
	Name string
	File string
	Line int
	// Required is set for names that look like credentials with no default
	// in an example env file.
	Required bool
}

// EnvStatus compares the variables a service reads with what its env files define.
type EnvStatus struct {
	Referenced []EnvVar
	Defined    map[string]bool
	Missing    []EnvVar
	HasEnvFile bool
}

// process.env.NAME, process.env['NAME'] and import.meta.env.NAME
var envPattern = regexp.MustCompile(`(?:process\.env|import\.meta\.env)(?:\.([A-Z][A-Z0-9_]*)|\[['"]([A-Z][A-Z0-9_]*)['"]\])`)

var sourceExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true, ".cjs": true,
}

var skippedDirs = map[string]bool{
	"node_modules": true, ".git": true, "build": true, "dist": true, "coverage": true,
}

// Provided by the runtime or by the launcher itself.
var ignored = map[string]bool{
	"PORT":     true,
	"NODE_ENV": true,
	"HOME":     true,
	"PATH":     true,
	"HOST":     true,
	"DEBUG":    true,
	"CI":       true,
}

var criticalPatterns = []string{
	"API_KEY", "APIKEY", "SECRET", "TOKEN", "PASSWORD", "PASSWD",
	"PRIVATE_KEY", "CREDENTIAL", "ACCESS_KEY",
}

// Scan walks dir and returns every distinct env variable its JS/TS sources
// read, sorted by name.
func Scan(dir string) ([]EnvVar, error) {
	var vars []EnvVar
	seen := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[filepath.Ext(path)] {
			return nil
		}

		found, err := scanFile(path)
		if err != nil {
			return nil
		}
		for _, v := range found {
			if !seen[v.Name] && !ignored[v.Name] {
				seen[v.Name] = true
				vars = append(vars, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	defaults := exampleDefaults(dir)
	for i := range vars {
		vars[i].Required = isCritical(vars[i].Name) && !defaults[vars[i].Name]
	}

	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars, nil
}

func scanFile(path string) ([]EnvVar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var vars []EnvVar
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		for _, m := range envPattern.FindAllStringSubmatch(scanner.Text(), -1) {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			vars = append(vars, EnvVar{Name: name, File: path, Line: line})
		}
	}
	return vars, scanner.Err()
}

func exampleDefaults(dir string) map[string]bool {
	defaults := make(map[string]bool)
	for _, name := range []string{".env.example", ".env.sample", ".env.template"} {
		vars, err := ReadEnvFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		for k, v := range vars {
			if v != "" {
				defaults[k] = true
			}
		}
	}
	return defaults
}

func isCritical(name string) bool {
	upper := strings.ToUpper(name)
	for _, p := range criticalPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}

// ReadEnvFile parses KEY=value lines. A missing file yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	vars := make(map[string]string)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return vars, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return vars, scanner.Err()
}

// Check scans dir and reports the required variables that neither .env nor
// .env.local define.
func Check(dir string) (EnvStatus, error) {
	status := EnvStatus{Defined: make(map[string]bool)}

	referenced, err := Scan(dir)
	if err != nil {
		return status, err
	}
	status.Referenced = referenced

	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if name == ".env" {
			status.HasEnvFile = true
		}
		vars, err := ReadEnvFile(path)
		if err != nil {
			return status, err
		}
		for k := range vars {
			status.Defined[k] = true
		}
	}

	for _, v := range referenced {
		if v.Required && !status.Defined[v.Name] && os.Getenv(v.Name) == "" {
			status.Missing = append(status.Missing, v)
		}
	}
	return status, nil
}

// Names returns the variable names of vars.
func Names(vars []EnvVar) []string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	return names
}
