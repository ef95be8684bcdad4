package readiness

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/harshul/jumpstart/internal/launcher"
	"github.com/harshul/jumpstart/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inert returns a process handle with no OS process behind it.
func inert(port int) *launcher.LaunchedProcess {
	return &launcher.LaunchedProcess{
		Spec: launcher.ServiceSpec{Name: "frontend"},
		Port: ports.NegotiatedPort{Requested: port, Resolved: port},
	}
}

// exited launches the test binary with no tests selected, which exits at once.
func exited(t *testing.T) *launcher.LaunchedProcess {
	t.Helper()
	l := launcher.New()
	l.Stdin, l.Stdout, l.Stderr = nil, nil, nil
	lp, err := l.Launch(context.Background(), launcher.ServiceSpec{
		Name:             "backend",
		WorkingDirectory: t.TempDir(),
		StartCommand:     []string{os.Args[0], "-test.run=^$"},
	}, ports.NegotiatedPort{Resolved: 1})
	require.NoError(t, err)
	return lp
}

func listener(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeProbe, "probe": ModeProbe, "DELAY": ModeDelay, " delay ": ModeDelay} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("http")
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	w := New(ModeDelay)
	assert.Equal(t, 5*time.Second, w.Delay)
	assert.Equal(t, DefaultTimeout, w.Timeout)
	assert.Equal(t, "localhost", w.Host)
}

func TestAwaitDelay(t *testing.T) {
	w := &Waiter{Mode: ModeDelay, Delay: 50 * time.Millisecond}

	start := time.Now()
	require.NoError(t, w.Await(context.Background(), inert(3000)))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestAwaitDelay_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &Waiter{Mode: ModeDelay, Delay: time.Hour}

	assert.ErrorIs(t, w.Await(ctx, inert(3000)), context.Canceled)
}

func TestAwaitProbe_ListeningService(t *testing.T) {
	_, port := listener(t)
	w := &Waiter{Mode: ModeProbe, Timeout: 2 * time.Second, Interval: 20 * time.Millisecond, Host: "127.0.0.1"}

	assert.NoError(t, w.Await(context.Background(), inert(port)))
}

func TestAwaitProbe_ServiceComesUpLate(t *testing.T) {
	ln, port := listener(t)
	require.NoError(t, ln.Close())

	lateCh := make(chan net.Listener, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		late, err := net.Listen("tcp", ln.Addr().String())
		if err != nil {
			lateCh <- nil
			return
		}
		lateCh <- late
	}()

	w := &Waiter{Mode: ModeProbe, Timeout: 3 * time.Second, Interval: 20 * time.Millisecond, Host: "127.0.0.1"}
	err := w.Await(context.Background(), inert(port))

	late := <-lateCh
	require.NotNil(t, late, "port was taken before the late listener could bind")
	defer late.Close()
	assert.NoError(t, err)
}

func TestAwaitProbe_Timeout(t *testing.T) {
	ln, port := listener(t)
	require.NoError(t, ln.Close())
	w := &Waiter{Mode: ModeProbe, Timeout: 100 * time.Millisecond, Interval: 20 * time.Millisecond, Host: "127.0.0.1"}

	assert.ErrorIs(t, w.Await(context.Background(), inert(port)), ErrNotReady)
}

func TestAwait_ProcessExited(t *testing.T) {
	lp := exited(t)
	<-lp.Done()

	probe := &Waiter{Mode: ModeProbe, Timeout: time.Minute, Interval: 10 * time.Millisecond, Host: "127.0.0.1"}
	assert.ErrorIs(t, probe.Await(context.Background(), lp), ErrExited)

	delay := &Waiter{Mode: ModeDelay, Delay: time.Minute}
	assert.ErrorIs(t, delay.Await(context.Background(), lp), ErrExited)
}
