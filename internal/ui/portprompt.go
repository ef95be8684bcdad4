package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/harshul/jumpstart/internal/logging"
	"github.com/harshul/jumpstart/internal/ports"
)

// LinePrompter asks for ports one line at a time. Dev servers keep writing to
// the same terminal while it waits, so it never switches the terminal into raw
// mode the way the bubbletea prompts do. Input is only read while a question
// is open, so lines typed for a dev server after negotiation reach the server.
// It is not safe for concurrent use.
type LinePrompter struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	want  chan struct{}
	lines chan lineResult
	// pending is set while a requested line has not been consumed, which
	// happens when a question is abandoned on cancellation.
	pending bool
}

type lineResult struct {
	text string
	err  error
}

// NewLinePrompter reads replies from in and writes questions to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: in, out: out}
}

// A single reader goroutine owns in and reads one line per request.
func (p *LinePrompter) start() {
	p.want = make(chan struct{})
	p.lines = make(chan lineResult, 1)
	go func() {
		sc := bufio.NewScanner(p.in)
		var err error
		for range p.want {
			if err == nil {
				if sc.Scan() {
					p.lines <- lineResult{text: sc.Text()}
					continue
				}
				if err = sc.Err(); err == nil {
					err = io.EOF
				}
			}
			p.lines <- lineResult{err: err}
		}
	}()
}

func (p *LinePrompter) AskPort(ctx context.Context, req ports.PortRequest) (string, error) {
	p.once.Do(p.start)

	if req.Holder != "" {
		fmt.Fprintln(p.out, promptDimStyle.Render(fmt.Sprintf("  port %d is %s", req.Port, req.Holder)))
	}
	question := promptTitleStyle.Render("? " + req.Message())
	if req.Suggested != 0 {
		question += " " + promptDimStyle.Render("("+strconv.Itoa(req.Suggested)+")")
	}
	fmt.Fprint(p.out, question+" ")

	if !p.pending {
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return "", ctx.Err()
		case p.want <- struct{}{}:
			p.pending = true
		}
	}

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case r := <-p.lines:
		p.pending = false
		return r.text, r.err
	}
}

func (p *LinePrompter) Reject(reply string, reason error) {
	fmt.Fprintln(p.out, warnStyle.Render(fmt.Sprintf("  ✖ %q cannot be used: %v", reply, reason)))
}

// ErrNoFreePort is returned by AutoPrompter when it runs out of candidates.
var ErrNoFreePort = errors.New("no free port found")

// AutoPrompter accepts every suggested port without asking. The run and new
// commands use it for --yes.
type AutoPrompter struct {
	// MaxAttempts bounds the ports tried per request; 0 means 100.
	MaxAttempts int

	mu    sync.Mutex
	tries map[string]int
}

func (a *AutoPrompter) AskPort(ctx context.Context, req ports.PortRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Suggested == 0 {
		return "", ErrNoFreePort
	}

	a.mu.Lock()
	if a.tries == nil {
		a.tries = make(map[string]int)
	}
	a.tries[req.Service]++
	n := a.tries[req.Service]
	a.mu.Unlock()

	limit := a.MaxAttempts
	if limit <= 0 {
		limit = 100
	}
	if n > limit {
		return "", fmt.Errorf("%w after %d attempts", ErrNoFreePort, limit)
	}

	logging.Info("PortNegotiator", "%s port %d is in use, trying %d", req.Service, req.Port, req.Suggested)
	Info(fmt.Sprintf("%s port %d is in use, using %d", req.Service, req.Port, req.Suggested))
	return "", nil
}

func (a *AutoPrompter) Reject(reply string, reason error) {
	logging.Warn("PortNegotiator", "candidate %s rejected: %v", reply, reason)
}
