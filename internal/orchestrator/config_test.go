package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFramework(t *testing.T) {
	for in, want := range map[string]Framework{
		"React":      FrameworkReact,
		"react":      FrameworkReact,
		"Vanilla JS": FrameworkVanilla,
		"vanillajs":  FrameworkVanilla,
		"vanilla":    FrameworkVanilla,
	} {
		got, err := ParseFramework(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFramework("Angular")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSpecs(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name      string
		framework Framework
		backend   bool
		want      []string
	}{
		{"react with backend", FrameworkReact, true, []string{ServiceFrontend, ServiceBackend}},
		{"react only", FrameworkReact, false, []string{ServiceFrontend}},
		{"vanilla with backend", FrameworkVanilla, true, []string{ServiceBackend}},
		{"vanilla only", FrameworkVanilla, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, s := range NewConfig(dir, "app", tt.framework, tt.backend).Specs() {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestSpecs_FrameworkSpellings(t *testing.T) {
	dir := t.TempDir()

	for _, spelling := range []Framework{"vanilla", "Vanilla", "vanilla js", "VANILLA JS"} {
		cfg := NewConfig(dir, "app", spelling, false)
		require.NoError(t, cfg.Validate(), spelling)
		assert.Empty(t, cfg.Specs(), spelling)
	}

	specs := NewConfig(dir, "app", "react", false).Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, "React", specs[0].Label)
}

func TestSpecsFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "backend"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backend", "package.json"), []byte(`{"scripts": {"dev": "nodemon server.js"}}`), 0o644))

	cfg := NewConfig(dir, "app", FrameworkReact, true)
	cfg.FrontendPort = 4000
	cfg.FrontendCommand = []string{"pnpm", "dev"}
	specs := cfg.Specs()
	require.Len(t, specs, 2)

	fe, be := specs[0], specs[1]
	assert.Equal(t, "React", fe.Label)
	assert.Equal(t, filepath.Join(dir, "frontend"), fe.WorkingDirectory)
	assert.Equal(t, 4000, fe.DesiredPort)
	assert.Equal(t, []string{"pnpm", "dev"}, fe.StartCommand)
	assert.True(t, fe.OpensBrowserOnReady)

	assert.Equal(t, "Express", be.Label)
	assert.Equal(t, 5000, be.DesiredPort)
	assert.Equal(t, []string{"npm", "run", "dev"}, be.StartCommand)
	assert.False(t, be.OpensBrowserOnReady)
}

func TestValidate(t *testing.T) {
	ok := NewConfig("/srv/app", "app", FrameworkReact, true)
	assert.NoError(t, ok.Validate())

	badPort := ok
	badPort.BackendPort = 70000
	assert.ErrorIs(t, badPort.Validate(), ErrInvalidConfig)

	// The backend port does not matter when there is no backend.
	badPort.IncludeBackend = false
	assert.NoError(t, badPort.Validate())

	noPath := ok
	noPath.FrontendPath = ""
	assert.ErrorIs(t, noPath.Validate(), ErrInvalidConfig)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "launching", StateLaunching.String())
	assert.Equal(t, "state(9)", State(9).String())
}
