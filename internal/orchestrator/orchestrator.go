package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harshul/jumpstart/internal/browser"
	"github.com/harshul/jumpstart/internal/launcher"
	"github.com/harshul/jumpstart/internal/logging"
	"github.com/harshul/jumpstart/internal/ports"
	"github.com/harshul/jumpstart/internal/readiness"
	"github.com/harshul/jumpstart/internal/ui"
)

// DefaultGrace is how long a service gets to exit after SIGTERM.
const DefaultGrace = 3 * time.Second

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("orchestrator already started")

// PortResolver negotiates a free port for a service.
type PortResolver interface {
	Resolve(ctx context.Context, desired int, service string) (ports.NegotiatedPort, error)
}

// ProcessLauncher starts a service process.
type ProcessLauncher interface {
	Launch(ctx context.Context, spec launcher.ServiceSpec, port ports.NegotiatedPort) (*launcher.LaunchedProcess, error)
}

// ReadinessWaiter blocks until a service is worth opening in a browser.
type ReadinessWaiter interface {
	Await(ctx context.Context, lp *launcher.LaunchedProcess) error
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Resolver PortResolver
	Launcher ProcessLauncher
	Waiter   ReadinessWaiter
	Opener   browser.Opener
	// Grace is the SIGTERM to SIGKILL delay on shutdown.
	Grace time.Duration
}

// State is the orchestrator's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateLaunching
	StateRunning
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Skipped records a service that was attempted but not started.
type Skipped struct {
	Service string
	Err     error
}

// Orchestrator negotiates, launches and supervises the dev servers of one
// project for the lifetime of a run.
type Orchestrator struct {
	cfg   Config
	opts  Options
	runID string

	mu        sync.Mutex
	state     State
	launching int
	started   bool
	resolved  map[string]ports.NegotiatedPort
	procs     []*launcher.LaunchedProcess
	skipped   []Skipped

	cancelOpens context.CancelFunc
	opens       sync.WaitGroup
	stopOnce    sync.Once
	stopErr     error
}

// New creates an orchestrator. Missing collaborators get the production
// implementations.
func New(cfg Config, opts Options) (*Orchestrator, error) {
	if opts.Resolver == nil {
		opts.Resolver = ports.NewNegotiator(ports.NewProbe(), ui.NewLinePrompter(os.Stdin, ui.Output()))
	}
	if opts.Launcher == nil {
		opts.Launcher = launcher.New()
	}
	if opts.Waiter == nil {
		opts.Waiter = readiness.New(readiness.ModeProbe)
	}
	if opts.Opener == nil {
		opts.Opener = browser.NewSystemOpener()
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	return &Orchestrator{
		cfg:      cfg,
		opts:     opts,
		runID:    uuid.NewString(),
		resolved: make(map[string]ports.NegotiatedPort),
	}, nil
}

// RunID identifies this run in logs.
func (o *Orchestrator) RunID() string { return o.runID }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Launching returns the index of the service being launched while the state
// is StateLaunching.
func (o *Orchestrator) Launching() (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.launching, o.state == StateLaunching
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	logging.Debug("Orchestrator", "run %s: %s", o.runID, s)
}

// Launched returns the processes started so far, in launch order.
func (o *Orchestrator) Launched() []*launcher.LaunchedProcess {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*launcher.LaunchedProcess(nil), o.procs...)
}

// Skipped returns the services that could not be started.
func (o *Orchestrator) Skipped() []Skipped {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Skipped(nil), o.skipped...)
}

// Start validates the configuration and launches every applicable service, one
// at a time. It returns once all of them have been attempted; browser opens
// continue in the background. A service that fails is skipped with a warning
// and never stops the others.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.started = true
	o.mu.Unlock()

	o.setState(StateConfiguring)
	if err := o.cfg.Validate(); err != nil {
		o.setState(StateIdle)
		return err
	}
	specs := o.cfg.Specs()
	logging.Info("Orchestrator", "run %s: project %q, %d service(s)", o.runID, o.cfg.ProjectName, len(specs))

	openCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancelOpens = cancel
	o.mu.Unlock()

	if !o.cfg.runsFrontend() {
		ui.Note("You chose Vanilla JS, so no automatic frontend server to start.")
	}

	for i, spec := range specs {
		o.mu.Lock()
		o.state = StateLaunching
		o.launching = i
		o.mu.Unlock()

		if err := o.launch(ctx, openCtx, spec); err != nil {
			o.skip(spec, err)
			if ctx.Err() != nil {
				o.setState(StateRunning)
				return ctx.Err()
			}
		}
	}

	if !o.cfg.IncludeBackend {
		ui.Note("No Express backend was selected, skipping backend start.")
	}
	o.setState(StateRunning)
	return nil
}

func (o *Orchestrator) launch(ctx, openCtx context.Context, spec launcher.ServiceSpec) error {
	if err := launcher.CheckWorkingDirectory(spec); err != nil {
		ui.Warn(fmt.Sprintf("%s folder not found, cannot start %s.", capitalize(spec.Name), spec.DisplayName()))
		return err
	}

	ui.Step("🚀", fmt.Sprintf("Starting %s %s from: %s", spec.DisplayName(), spec.Name, spec.WorkingDirectory))

	o.mu.Lock()
	port, ok := o.resolved[spec.Name]
	o.mu.Unlock()
	if !ok {
		var err error
		port, err = o.opts.Resolver.Resolve(ctx, spec.DesiredPort, spec.DisplayName())
		if err != nil {
			ui.Error(fmt.Sprintf("Could not get a port for %s: %v", spec.DisplayName(), err))
			return err
		}
		o.mu.Lock()
		o.resolved[spec.Name] = port
		o.mu.Unlock()
	}

	lp, err := o.opts.Launcher.Launch(ctx, spec, port)
	if err != nil {
		ui.Error(fmt.Sprintf("Failed to start %s: %v", spec.DisplayName(), err))
		return err
	}

	o.mu.Lock()
	o.procs = append(o.procs, lp)
	o.mu.Unlock()

	if spec.OpensBrowserOnReady && o.cfg.OpenBrowser {
		o.scheduleOpen(openCtx, lp)
	}
	return nil
}

func (o *Orchestrator) skip(spec launcher.ServiceSpec, err error) {
	logging.Error("Orchestrator", err, "run %s: skipped %s", o.runID, spec.Name)
	o.mu.Lock()
	o.skipped = append(o.skipped, Skipped{Service: spec.Name, Err: err})
	o.mu.Unlock()
}

// scheduleOpen waits for lp in the background and then opens its URL.
func (o *Orchestrator) scheduleOpen(ctx context.Context, lp *launcher.LaunchedProcess) {
	o.opens.Add(1)
	go func() {
		defer o.opens.Done()

		err := o.opts.Waiter.Await(ctx, lp)
		switch {
		case errors.Is(err, readiness.ErrExited):
			ui.Warn(fmt.Sprintf("%s exited before it was ready; not opening the browser.", lp.Spec.DisplayName()))
			return
		case errors.Is(err, readiness.ErrNotReady):
			ui.Warn(fmt.Sprintf("%s is not answering on port %d yet; opening the browser anyway.", lp.Spec.DisplayName(), lp.Port.Resolved))
		case err != nil:
			logging.Debug("Orchestrator", "browser open for %s cancelled: %v", lp.Spec.Name, err)
			return
		}
		if ctx.Err() != nil {
			return
		}

		url := lp.URL()
		ui.Step("🌐", fmt.Sprintf("Opening %s app in your browser at %s ...", lp.Spec.DisplayName(), url))
		if err := o.opts.Opener.Open(url); err != nil {
			logging.Warn("Browser", "%v", err)
			ui.Info(fmt.Sprintf("Open %s in your browser to see the app.", url))
		}
	}()
}

// Run starts the services and holds them until ctx is cancelled, then shuts
// everything down. When no service could be started it returns at once.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	if len(o.Launched()) == 0 {
		o.mu.Lock()
		cancel := o.cancelOpens
		o.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}

	ui.Info("Press Ctrl+C to stop all services.")
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), o.opts.Grace+5*time.Second)
	defer cancel()
	return o.Shutdown(shutdownCtx)
}

// Shutdown cancels pending browser opens and terminates every launched
// service, waiting for each to be reaped. It is safe to call more than once.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.stopOnce.Do(func() {
		o.mu.Lock()
		o.state = StateTerminating
		cancel := o.cancelOpens
		procs := append([]*launcher.LaunchedProcess(nil), o.procs...)
		o.mu.Unlock()
		logging.Info("Orchestrator", "run %s: terminating %d service(s)", o.runID, len(procs))

		if cancel != nil {
			cancel()
		}
		o.opens.Wait()

		errs := make([]error, len(procs))
		var wg sync.WaitGroup
		for i, lp := range procs {
			wg.Add(1)
			go func(i int, lp *launcher.LaunchedProcess) {
				defer wg.Done()
				errs[i] = lp.Terminate(o.opts.Grace)
			}(i, lp)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			o.stopErr = errors.Join(errs...)
		case <-ctx.Done():
			o.stopErr = fmt.Errorf("shutdown interrupted: %w", ctx.Err())
		}
	})
	return o.stopErr
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
