package blueprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harshul/jumpstart/internal/orchestrator"
	"github.com/harshul/jumpstart/internal/readiness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	bp := New("shop", orchestrator.FrameworkVanilla, true)
	bp.Services.Backend.Port = 5050

	require.NoError(t, Write(Path(dir), bp))
	got, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "shop", got.Name)
	assert.Equal(t, "Vanilla JS", got.Frontend)
	assert.True(t, got.Backend)
	assert.Equal(t, 5050, got.Services.Backend.Port)
}

func TestRead_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "frontend: React\n"},
		{"bad readiness", "name: app\nreadiness: eventually\n"},
		{"not yaml", "name: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Read(path)
			assert.ErrorIs(t, err, orchestrator.ErrInvalidConfig)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	require.NoError(t, os.WriteFile(path, []byte(`name: blog
frontend: react
backend: true
readiness: delay
open_browser: false
services:
  frontend: {port: 3100, command: [pnpm, dev]}
`), 0o644))

	bp, err := Read(path)
	require.NoError(t, err)
	mode, err := bp.Mode()
	require.NoError(t, err)
	assert.Equal(t, readiness.ModeDelay, mode)

	cfg, err := bp.Config(dir)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.FrameworkReact, cfg.Framework)
	assert.Equal(t, 3100, cfg.FrontendPort)
	assert.Equal(t, orchestrator.DefaultBackendPort, cfg.BackendPort)
	assert.Equal(t, []string{"pnpm", "dev"}, cfg.FrontendCommand)
	assert.Nil(t, cfg.BackendCommand)
	assert.False(t, cfg.OpenBrowser)
	assert.Equal(t, filepath.Join(dir, "backend"), cfg.BackendPath)
}

func TestConfig_Defaults(t *testing.T) {
	cfg, err := Blueprint{Name: "app"}.Config("/srv/app")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.FrameworkReact, cfg.Framework)
	assert.False(t, cfg.IncludeBackend)
	assert.True(t, cfg.OpenBrowser)
}

func TestConfig_BadFramework(t *testing.T) {
	_, err := Blueprint{Name: "app", Frontend: "Elm"}.Config("/srv/app")
	assert.ErrorIs(t, err, orchestrator.ErrInvalidConfig)
}
