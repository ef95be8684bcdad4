package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "server.js", `const port = process.env.PORT || 5000;
const key = process.env.STRIPE_API_KEY;
const db = process.env['DATABASE_URL'];`)
	write(t, dir, "src/App.jsx", `fetch(import.meta.env.VITE_API_URL)`)
	write(t, dir, "node_modules/lib/index.js", `process.env.IGNORED_SECRET`)
	write(t, dir, "README.md", `process.env.NOT_SOURCE`)

	vars, err := Scan(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"DATABASE_URL", "STRIPE_API_KEY", "VITE_API_URL"}, Names(vars))
	assert.False(t, vars[0].Required)
	assert.True(t, vars[1].Required)
	assert.Equal(t, 2, vars[1].Line)
}

func TestScan_ExampleDefault(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "index.js", `process.env.SESSION_SECRET`)
	write(t, dir, ".env.example", "SESSION_SECRET=change-me\n")

	vars, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.False(t, vars[0].Required)
}

func TestReadEnvFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, ".env", `# comment
API_TOKEN="abc def"
export REGION=eu
BROKEN
`)

	vars, err := ReadEnvFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"API_TOKEN": "abc def", "REGION": "eu"}, vars)

	vars, err = ReadEnvFile(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, vars)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "index.js", `process.env.JWT_SECRET; process.env.OPENAI_API_KEY; process.env.MAIL_TOKEN`)
	write(t, dir, ".env", "JWT_SECRET=x\n")
	write(t, dir, ".env.local", "MAIL_TOKEN=y\n")
	t.Setenv("OPENAI_API_KEY", "")

	status, err := Check(dir)
	require.NoError(t, err)

	assert.True(t, status.HasEnvFile)
	assert.Equal(t, []string{"OPENAI_API_KEY"}, Names(status.Missing))
}

func TestCheck_ProcessEnvironment(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "index.js", `process.env.JUMPSTART_TEST_TOKEN`)
	t.Setenv("JUMPSTART_TEST_TOKEN", "set")

	status, err := Check(dir)
	require.NoError(t, err)
	assert.False(t, status.HasEnvFile)
	assert.Empty(t, status.Missing)
}
