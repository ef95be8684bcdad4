package ports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/harshul/jumpstart/internal/logging"
)

// ErrInvalidPort is returned when an operator reply or a configured port is
// not an integer in the bindable range.
var ErrInvalidPort = errors.New("invalid port")

// NegotiatedPort records how the port of one service was obtained.
type NegotiatedPort struct {
	Requested int
	Resolved  int
	// Attempts lists every candidate that was probed, in order. The last
	// entry is Resolved.
	Attempts []int
}

// Prompted reports whether the operator had to pick a replacement port.
func (n NegotiatedPort) Prompted() bool {
	return len(n.Attempts) > 1
}

// PortRequest is what the operator is asked when a port is taken.
type PortRequest struct {
	Service   string
	Port      int
	Suggested int
	// Holder describes the process listening on Port, if known.
	Holder string
}

// Message is the question shown to the operator.
func (r PortRequest) Message() string {
	return fmt.Sprintf("%s port %d is in use. Enter a different port:", r.Service, r.Port)
}

// Prompter asks the operator for a replacement port. AskPort blocks until a
// reply is available; an empty reply selects the suggested port.
type Prompter interface {
	AskPort(ctx context.Context, req PortRequest) (string, error)
	// Reject tells the operator why a reply could not be used.
	Reject(reply string, reason error)
}

// Negotiator resolves a bindable port for a service, asking the operator for
// replacements while the candidate is taken.
type Negotiator struct {
	prober   Prober
	prompter Prompter
	// Describe optionally names the process holding a port.
	Describe func(port int) string
}

// NewNegotiator creates a negotiator.
func NewNegotiator(prober Prober, prompter Prompter) *Negotiator {
	return &Negotiator{prober: prober, prompter: prompter}
}

// Resolve probes desired and, while the candidate is taken, asks the operator
// for another one. There is no retry limit: a human is in the loop.
func (n *Negotiator) Resolve(ctx context.Context, desired int, service string) (NegotiatedPort, error) {
	result := NegotiatedPort{Requested: desired}
	if err := ValidatePort(desired); err != nil {
		return result, err
	}

	candidate := desired
	occupied := 0
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Attempts = append(result.Attempts, candidate)
		free, err := n.prober.IsFree(candidate)
		switch {
		case err != nil && occupied == 0:
			// The configured port itself cannot be probed.
			return result, fmt.Errorf("%s: %w", service, err)
		case err != nil:
			n.prompter.Reject(strconv.Itoa(candidate), err)
		case free:
			result.Resolved = candidate
			logging.Debug("PortNegotiator", "%s resolved port %d after %d attempt(s)", service, candidate, len(result.Attempts))
			return result, nil
		default:
			occupied = candidate
		}

		next, err := n.ask(ctx, service, occupied)
		if err != nil {
			return result, fmt.Errorf("%s: port negotiation aborted: %w", service, err)
		}
		candidate = next
	}
}

// ask prompts until the operator gives a parseable port.
func (n *Negotiator) ask(ctx context.Context, service string, occupied int) (int, error) {
	req := PortRequest{Service: service, Port: occupied}
	if occupied < MaxPort {
		req.Suggested = occupied + 1
	}
	if n.Describe != nil {
		req.Holder = n.Describe(occupied)
	}

	for {
		reply, err := n.prompter.AskPort(ctx, req)
		if err != nil {
			return 0, err
		}
		port, err := ParsePort(reply, req.Suggested)
		if err != nil {
			logging.Debug("PortNegotiator", "rejected reply %q for %s: %v", reply, service, err)
			n.prompter.Reject(reply, err)
			continue
		}
		return port, nil
	}
}

// ParsePort parses an operator reply. An empty reply selects def when def is
// a valid port. Anything else must be a plain decimal integer in range.
func ParsePort(reply string, def int) (int, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		if def == 0 {
			return 0, fmt.Errorf("%w: no port entered", ErrInvalidPort)
		}
		return def, nil
	}

	port, err := strconv.Atoi(reply)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPort, reply)
	}
	if err := ValidatePort(port); err != nil {
		return 0, err
	}
	return port, nil
}
