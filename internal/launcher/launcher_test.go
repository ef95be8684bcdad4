package launcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	ossignal "os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/harshul/jumpstart/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It is the child process started by
// the launcher tests: it records every PORT entry it sees, then either exits
// or blocks until killed.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	var seen []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "PORT=") {
			seen = append(seen, kv)
		}
	}
	if out := os.Getenv("HELPER_OUT"); out != "" {
		_ = os.WriteFile(out, []byte(strings.Join(seen, "\n")), 0o644)
	}
	switch os.Getenv("HELPER_MODE") {
	case "block":
		time.Sleep(time.Minute)
	case "tree":
		// Like npm: start a server child, record its PID and wait.
		child := exec.Command(os.Args[0], "-test.run=TestHelperProcess")
		child.Env = append(os.Environ(), "HELPER_MODE=stubborn", "HELPER_OUT=")
		if err := child.Start(); err != nil {
			os.Exit(2)
		}
		_ = os.WriteFile(os.Getenv("HELPER_PID"), []byte(strconv.Itoa(child.Process.Pid)), 0o644)
		_ = child.Wait()
	case "stubborn":
		ossignal.Ignore(syscall.SIGTERM)
		time.Sleep(time.Minute)
	}
	os.Exit(0)
}

func helperSpec(t *testing.T, dir string) ServiceSpec {
	t.Helper()
	return ServiceSpec{
		Name:             "frontend",
		Label:            "React",
		WorkingDirectory: dir,
		DesiredPort:      3000,
		StartCommand:     []string{os.Args[0], "-test.run=TestHelperProcess"},
	}
}

func helperLauncher(extra ...string) *Launcher {
	l := New()
	l.Stdin = nil
	l.Environ = func() []string {
		return append(os.Environ(), append([]string{"GO_WANT_HELPER_PROCESS=1"}, extra...)...)
	}
	return l
}

func waitDone(t *testing.T, lp *LaunchedProcess) {
	t.Helper()
	select {
	case <-lp.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("helper process did not exit")
	}
}

func TestLaunch_InjectsPortExactlyOnce(t *testing.T) {
	t.Setenv("PORT", "9999")
	dir := t.TempDir()
	out := filepath.Join(dir, "env.txt")

	lp, err := helperLauncher("HELPER_OUT="+out).Launch(context.Background(), helperSpec(t, dir),
		ports.NegotiatedPort{Requested: 3000, Resolved: 3001, Attempts: []int{3000, 3001}})
	require.NoError(t, err)
	waitDone(t, lp)
	require.NoError(t, lp.Err())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "PORT=3001", string(data), "the parent's PORT must be overridden, not duplicated")
}

func TestLaunch_ReturnsBeforeChildFinishes(t *testing.T) {
	dir := t.TempDir()
	l := helperLauncher("HELPER_MODE=block")
	l.NewProcessGroup = true

	lp, err := l.Launch(context.Background(), helperSpec(t, dir), ports.NegotiatedPort{Requested: 3000, Resolved: 3000})
	require.NoError(t, err)
	assert.NotZero(t, lp.PID())
	assert.False(t, lp.Exited())
	assert.Equal(t, "http://localhost:3000", lp.URL())
	assert.WithinDuration(t, time.Now(), lp.StartedAt, 5*time.Second)

	require.NoError(t, lp.Terminate(2*time.Second))
	assert.True(t, lp.Exited())
}

func TestLaunch_MissingDirectoryIsConfigurationError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "backend")
	marker := filepath.Join(t.TempDir(), "ran")
	spec := helperSpec(t, missing)

	lp, err := helperLauncher("HELPER_OUT="+marker).Launch(context.Background(), spec, ports.NegotiatedPort{Resolved: 5000})
	assert.Nil(t, lp)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "frontend", cfgErr.Service)
	assert.Equal(t, missing, cfgErr.Path)
	assert.NoFileExists(t, marker, "no process may be created")
}

func TestLaunch_FileInsteadOfDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "frontend")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := New().Launch(context.Background(), helperSpec(t, file), ports.NegotiatedPort{Resolved: 3000})
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestLaunch_CommandNotFoundIsLaunchError(t *testing.T) {
	spec := helperSpec(t, t.TempDir())
	spec.StartCommand = []string{"jumpstart-no-such-binary-xyz", "start"}

	_, err := New().Launch(context.Background(), spec, ports.NegotiatedPort{Resolved: 3000})

	var launchErr *LaunchError
	require.True(t, errors.As(err, &launchErr), "got %v", err)
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestLaunch_EmptyCommand(t *testing.T) {
	spec := helperSpec(t, t.TempDir())
	spec.StartCommand = nil

	_, err := New().Launch(context.Background(), spec, ports.NegotiatedPort{Resolved: 3000})
	var launchErr *LaunchError
	assert.True(t, errors.As(err, &launchErr))
}

func TestWithPort(t *testing.T) {
	env := WithPort([]string{"HOME=/home/dev", "PORT=8080", "PORTABLE=1", "PORT=9090"}, 5000)
	assert.Equal(t, []string{"HOME=/home/dev", "PORTABLE=1", "PORT=5000"}, env)
}

func TestTerminate_InertProcess(t *testing.T) {
	lp := &LaunchedProcess{Spec: ServiceSpec{Name: "frontend"}}
	assert.NoError(t, lp.Terminate(time.Millisecond))
	assert.Zero(t, lp.PID())
	assert.False(t, lp.Exited())
}

func TestServiceSpecDisplayName(t *testing.T) {
	assert.Equal(t, "React", ServiceSpec{Name: "frontend", Label: "React"}.DisplayName())
	assert.Equal(t, "backend", ServiceSpec{Name: "backend"}.DisplayName())
}
