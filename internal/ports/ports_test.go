package ports

import (
	"errors"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen occupies an OS-assigned port for the duration of the test.
func listen(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err, "failed to get a test port")
	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestProbeIsFree_FreePort(t *testing.T) {
	port := freePort(t)

	free, err := NewProbe().IsFree(port)
	require.NoError(t, err)
	assert.True(t, free, "port %d should be free", port)
}

func TestProbeIsFree_UsedPort(t *testing.T) {
	port := listen(t)

	free, err := NewProbe().IsFree(port)
	require.NoError(t, err, "an occupied port is not a probe failure")
	assert.False(t, free, "port %d should be in use", port)
}

func TestProbeIsFree_ReleasesBinding(t *testing.T) {
	port := freePort(t)
	probe := NewProbe()

	for i := 0; i < 3; i++ {
		free, err := probe.IsFree(port)
		require.NoError(t, err)
		assert.True(t, free)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	require.NoError(t, err, "the probe must not keep the port bound")
	_ = ln.Close()
}

func TestProbeIsFree_OutOfRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		free, err := NewProbe().IsFree(port)
		assert.False(t, free)

		var probeErr *ProbeError
		require.True(t, errors.As(err, &probeErr), "port %d", port)
		assert.ErrorIs(t, err, ErrInvalidPort)
	}
}

func TestProbeIsFree_UnbindableHost(t *testing.T) {
	// 192.0.2.0/24 is TEST-NET-1 and never assigned to a local interface.
	probe := &Probe{Host: "192.0.2.1"}

	free, err := probe.IsFree(freePort(t))
	assert.False(t, free)

	var probeErr *ProbeError
	assert.True(t, errors.As(err, &probeErr), "bind failures other than in-use are distinct: %v", err)
}

func TestGetPortStatus(t *testing.T) {
	used := listen(t)
	assert.Contains(t, GetPortStatus(NewProbe(), used), "is in use")
	assert.Contains(t, GetPortStatus(NewProbe(), freePort(t)), "is available")
	assert.Contains(t, GetPortStatus(NewProbe(), 0), "cannot be checked")
}

func TestIsPortAvailable(t *testing.T) {
	assert.False(t, IsPortAvailable(listen(t)))
	assert.True(t, IsPortAvailable(freePort(t)))
}
