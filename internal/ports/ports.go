package ports

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// MinPort and MaxPort bound the ports a service may be bound to.
const (
	MinPort = 1
	MaxPort = 65535
)

// Prober reports whether a port can be bound right now.
type Prober interface {
	IsFree(port int) (bool, error)
}

// ProbeError is returned when a probe fails for a reason other than the
// port being in use, e.g. permission denied on a privileged port.
type ProbeError struct {
	Port int
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("cannot probe port %d: %v", e.Port, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Probe checks port availability by binding a TCP listener and releasing it
// immediately.
type Probe struct {
	// Host is the address to bind. Empty means all interfaces, which is what
	// dev servers usually listen on.
	Host string
}

// NewProbe creates a Probe bound to all interfaces.
func NewProbe() *Probe {
	return &Probe{}
}

// IsFree returns true if the port could be bound. An "address in use" failure
// yields (false, nil); any other failure is returned as a *ProbeError.
func (p *Probe) IsFree(port int) (bool, error) {
	if err := ValidatePort(port); err != nil {
		return false, &ProbeError{Port: port, Err: err}
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(p.Host, strconv.Itoa(port)))
	if err != nil {
		if isAddrInUse(err) {
			return false, nil
		}
		return false, &ProbeError{Port: port, Err: err}
	}
	_ = listener.Close()
	return true, nil
}

// IsPortAvailable is a convenience wrapper that treats every failure as
// "not available".
func IsPortAvailable(port int) bool {
	free, err := NewProbe().IsFree(port)
	return err == nil && free
}

// ValidatePort checks that port is in the bindable range.
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidPort, port, MinPort, MaxPort)
	}
	return nil
}

// GetPortStatus returns a human-readable status of a port.
func GetPortStatus(p Prober, port int) string {
	free, err := p.IsFree(port)
	var probeErr *ProbeError
	switch {
	case errors.As(err, &probeErr):
		return fmt.Sprintf("Port %d cannot be checked: %v", port, probeErr.Err)
	case err != nil:
		return fmt.Sprintf("Port %d cannot be checked: %v", port, err)
	case free:
		return fmt.Sprintf("Port %d is available", port)
	default:
		return fmt.Sprintf("Port %d is in use", port)
	}
}
