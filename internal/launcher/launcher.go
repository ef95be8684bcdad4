package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harshul/jumpstart/internal/logging"
	"github.com/harshul/jumpstart/internal/ports"
	"github.com/shirou/gopsutil/v3/process"
)

// PortEnv is the environment variable every service reads its port from.
const PortEnv = "PORT"

// ServiceSpec describes one development server to run.
type ServiceSpec struct {
	// Name identifies the service ("frontend", "backend").
	Name string
	// Label is the operator-facing name used in prompts ("React", "Express").
	Label               string
	WorkingDirectory    string
	DesiredPort         int
	StartCommand        []string
	OpensBrowserOnReady bool
}

// DisplayName returns Label, falling back to Name.
func (s ServiceSpec) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// LaunchedProcess is a running service. A zero process handle makes it inert:
// Terminate is a no-op and Done never fires.
type LaunchedProcess struct {
	Spec      ServiceSpec
	Port      ports.NegotiatedPort
	StartedAt time.Time

	cmd      *exec.Cmd
	ownGroup bool
	done     chan struct{}

	mu      sync.Mutex
	waitErr error
}

// PID returns the OS process id, or 0 if there is no process.
func (lp *LaunchedProcess) PID() int {
	if lp.cmd == nil || lp.cmd.Process == nil {
		return 0
	}
	return lp.cmd.Process.Pid
}

// URL is where the service is expected to answer HTTP.
func (lp *LaunchedProcess) URL() string {
	return fmt.Sprintf("http://localhost:%d", lp.Port.Resolved)
}

// Done is closed when the process has exited and been reaped.
func (lp *LaunchedProcess) Done() <-chan struct{} {
	return lp.done
}

// Err returns the wait error once Done is closed.
func (lp *LaunchedProcess) Err() error {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.waitErr
}

// Exited reports whether the process has already exited.
func (lp *LaunchedProcess) Exited() bool {
	if lp.done == nil {
		return false
	}
	select {
	case <-lp.done:
		return true
	default:
		return false
	}
}

// Terminate asks the process (and its group, if it has one) to stop, waits up
// to grace, then kills it. Without a group of its own the service's
// descendants are signalled one by one, so a dev server started through npm
// cannot outlive it and keep the port.
func (lp *LaunchedProcess) Terminate(grace time.Duration) error {
	if lp.cmd == nil || lp.cmd.Process == nil || lp.Exited() {
		return nil
	}

	var tree []*process.Process
	if !lp.ownGroup {
		tree = descendants(lp.PID())
	}
	deadline := time.Now().Add(grace)

	if err := interrupt(lp.cmd.Process, lp.ownGroup); err != nil {
		logging.Debug("Launcher", "graceful stop of %s failed, killing: %v", lp.Spec.Name, err)
	} else {
		signalTree(lp.Spec.Name, tree, (*process.Process).Terminate)
		select {
		case <-lp.done:
			awaitTree(tree, deadline)
		case <-time.After(time.Until(deadline)):
		}
	}

	if !lp.Exited() {
		if err := kill(lp.cmd.Process, lp.ownGroup); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill %s (PID %d): %w", lp.Spec.Name, lp.PID(), err)
		}
	}
	signalTree(lp.Spec.Name, running(tree), (*process.Process).Kill)
	<-lp.done
	return nil
}

// Launcher starts service processes attached to the orchestrator's console.
type Launcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Environ returns the base environment; defaults to os.Environ.
	Environ func() []string
	// NewProcessGroup starts every service in its own process group so that
	// Terminate reaches the whole tree (npm -> node, ...).
	NewProcessGroup bool
}

// New creates a launcher that inherits the current process's stdio.
func New() *Launcher {
	return &Launcher{
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Environ: os.Environ,
	}
}

// CheckWorkingDirectory returns a *ConfigurationError unless the service's
// working directory exists and is a directory.
func CheckWorkingDirectory(spec ServiceSpec) error {
	info, err := os.Stat(spec.WorkingDirectory)
	if err != nil {
		return &ConfigurationError{Service: spec.Name, Path: spec.WorkingDirectory, Err: err}
	}
	if !info.IsDir() {
		return &ConfigurationError{Service: spec.Name, Path: spec.WorkingDirectory, Err: errors.New("not a directory")}
	}
	return nil
}

// Launch starts spec with PORT set to the negotiated port. It returns as soon
// as the OS has created the process; it does not wait for the service to be
// ready.
func (l *Launcher) Launch(ctx context.Context, spec ServiceSpec, port ports.NegotiatedPort) (*LaunchedProcess, error) {
	if err := CheckWorkingDirectory(spec); err != nil {
		return nil, err
	}
	if len(spec.StartCommand) == 0 {
		return nil, &LaunchError{Service: spec.Name, Err: errors.New("no start command")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &LaunchError{Service: spec.Name, Command: spec.StartCommand, Err: err}
	}

	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}

	// exec.CommandContext is not used: the context governs the launch call,
	// while the child lives until Terminate.
	cmd := exec.Command(spec.StartCommand[0], spec.StartCommand[1:]...)
	cmd.Dir = spec.WorkingDirectory
	cmd.Env = WithPort(environ(), port.Resolved)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	cmd.SysProcAttr = sysProcAttr(l.NewProcessGroup)

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Service: spec.Name, Command: spec.StartCommand, Err: err}
	}

	lp := &LaunchedProcess{
		Spec:      spec,
		Port:      port,
		StartedAt: time.Now(),
		cmd:       cmd,
		ownGroup:  l.NewProcessGroup,
		done:      make(chan struct{}),
	}
	logging.Info("Launcher", "started %s (PID %d) on port %d in %s", spec.Name, lp.PID(), port.Resolved, spec.WorkingDirectory)

	go lp.reap()
	return lp, nil
}

func (lp *LaunchedProcess) reap() {
	err := lp.cmd.Wait()

	lp.mu.Lock()
	lp.waitErr = err
	lp.mu.Unlock()
	close(lp.done)

	uptime := time.Since(lp.StartedAt).Round(time.Millisecond)
	if err != nil {
		// A quick exit right after launch is the usual symptom of the port
		// being taken between negotiation and bind.
		logging.Warn("Launcher", "%s (PID %d) exited after %s: %v", lp.Spec.Name, lp.PID(), uptime, err)
		return
	}
	logging.Info("Launcher", "%s (PID %d) exited after %s", lp.Spec.Name, lp.PID(), uptime)
}

// WithPort returns environ with every PORT entry replaced by a single
// PORT=port entry.
func WithPort(environ []string, port int) []string {
	env := make([]string, 0, len(environ)+1)
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if isPortVar(name) {
			continue
		}
		env = append(env, kv)
	}
	return append(env, PortEnv+"="+strconv.Itoa(port))
}

func isPortVar(name string) bool {
	// Environment variable names are case-insensitive on Windows.
	if runtime.GOOS == "windows" {
		return strings.EqualFold(name, PortEnv)
	}
	return name == PortEnv
}
