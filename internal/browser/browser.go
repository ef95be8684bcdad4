package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/harshul/jumpstart/internal/logging"
)

// ErrNoDisplay is returned on unix systems without a graphical session.
var ErrNoDisplay = errors.New("no display available")

// Opener opens a URL for the operator.
type Opener interface {
	Open(url string) error
}

// SystemOpener opens URLs with the platform's default browser. When that
// fails the URL is copied to the clipboard instead.
type SystemOpener struct {
	GOOS   string
	Getenv func(string) string
	// Start launches the browser command without waiting for it.
	Start func(name string, args ...string) error
	// Copy writes text to the clipboard.
	Copy func(text string) error
}

// NewSystemOpener returns an opener for the running platform.
func NewSystemOpener() *SystemOpener {
	return &SystemOpener{
		GOOS:   runtime.GOOS,
		Getenv: os.Getenv,
		Start:  startDetached,
		Copy:   clipboard.WriteAll,
	}
}

// Open is best effort: the returned error is informational and callers are
// expected to log it.
func (o *SystemOpener) Open(url string) error {
	name, args, err := Command(o.GOOS, o.Getenv, url)
	if err == nil {
		if err = o.Start(name, args...); err == nil {
			logging.Debug("Browser", "opened %s with %s", url, name)
			return nil
		}
	}

	if o.Copy != nil {
		if cerr := o.Copy(url); cerr == nil {
			logging.Info("Browser", "could not open %s (%v); copied to clipboard", url, err)
			return fmt.Errorf("open %s: %w (URL copied to clipboard)", url, err)
		}
	}
	return fmt.Errorf("open %s: %w", url, err)
}

// Command returns the command that opens url on goos. $BROWSER wins when set.
func Command(goos string, getenv func(string) string, url string) (string, []string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if b := strings.TrimSpace(getenv("BROWSER")); b != "" {
		// $BROWSER may hold a colon-separated list; take the first entry.
		first, _, _ := strings.Cut(b, string(os.PathListSeparator))
		fields := strings.Fields(first)
		if len(fields) > 0 {
			return fields[0], append(fields[1:], url), nil
		}
	}

	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		if getenv("DISPLAY") == "" && getenv("WAYLAND_DISPLAY") == "" {
			return "", nil, ErrNoDisplay
		}
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform %s", goos)
	}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
