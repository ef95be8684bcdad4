package readiness

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/harshul/jumpstart/internal/launcher"
	"github.com/harshul/jumpstart/internal/logging"
)

// Mode selects how a service is judged ready.
type Mode string

const (
	// ModeDelay waits a fixed time after launch.
	ModeDelay Mode = "delay"
	// ModeProbe polls the service's port until it accepts a TCP connection.
	ModeProbe Mode = "probe"
)

const (
	DefaultDelay    = 5 * time.Second
	DefaultTimeout  = 30 * time.Second
	DefaultInterval = 250 * time.Millisecond
)

var (
	// ErrNotReady is returned when the probe gave up before the service
	// accepted a connection. The service may still come up later.
	ErrNotReady = errors.New("service did not become ready in time")
	// ErrExited is returned when the service process ended while waiting.
	ErrExited = errors.New("service exited before it became ready")
)

// ParseMode accepts "delay" or "probe" (case-insensitive). Empty means probe.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeProbe:
		return ModeProbe, nil
	case ModeDelay:
		return ModeDelay, nil
	default:
		return "", fmt.Errorf("unknown readiness mode %q (want delay or probe)", s)
	}
}

// Waiter blocks until a launched service is ready for the browser.
type Waiter struct {
	Mode     Mode
	Delay    time.Duration
	Timeout  time.Duration
	Interval time.Duration
	// Host is dialed in probe mode; defaults to localhost.
	Host string
}

// New returns a Waiter with default timings for mode.
func New(mode Mode) *Waiter {
	return &Waiter{
		Mode:     mode,
		Delay:    DefaultDelay,
		Timeout:  DefaultTimeout,
		Interval: DefaultInterval,
		Host:     "localhost",
	}
}

// Await waits for lp according to the waiter's mode. It returns ctx.Err() if
// the context ends first, ErrExited if the process ends first, and (probe mode
// only) ErrNotReady once Timeout elapses.
func (w *Waiter) Await(ctx context.Context, lp *launcher.LaunchedProcess) error {
	if w.Mode == ModeDelay {
		return w.awaitDelay(ctx, lp)
	}
	return w.awaitProbe(ctx, lp)
}

func (w *Waiter) awaitDelay(ctx context.Context, lp *launcher.LaunchedProcess) error {
	delay := w.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	timer := time.NewTimer(remaining(lp, delay))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-lp.Done():
		return ErrExited
	case <-timer.C:
		return nil
	}
}

func (w *Waiter) awaitProbe(ctx context.Context, lp *launcher.LaunchedProcess) error {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	host := w.Host
	if host == "" {
		host = "localhost"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(lp.Port.Resolved))

	deadline := time.NewTimer(remaining(lp, timeout))
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var dialer net.Dialer
	for attempt := 1; ; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, interval)
		conn, err := dialer.DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			conn.Close()
			logging.Debug("Readiness", "%s answered on %s after %d attempt(s)", lp.Spec.Name, addr, attempt)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-lp.Done():
			return ErrExited
		case <-deadline.C:
			logging.Warn("Readiness", "%s not reachable on %s after %s: %v", lp.Spec.Name, addr, timeout, err)
			return ErrNotReady
		case <-ticker.C:
		}
	}
}

// remaining returns what is left of d measured from the process start.
func remaining(lp *launcher.LaunchedProcess, d time.Duration) time.Duration {
	if lp.StartedAt.IsZero() {
		return d
	}
	if left := d - time.Since(lp.StartedAt); left > 0 {
		return left
	}
	return 0
}
