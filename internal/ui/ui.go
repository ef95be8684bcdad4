package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stdout
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00AA00", Dark: "#00FF00"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#00AAFF"})
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CC6600", Dark: "#FFAA00"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF0000"})
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#008B8B", Dark: "#00FFFF"})
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"})
	valueStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})
)

// SetOutput redirects console messages and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

// Output returns the writer console messages go to.
func Output() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

func emit(s string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(out, s)
}

func Success(msg string) {
	emit(successStyle.Render("✅") + " " + msg)
}

func Info(msg string) {
	emit(infoStyle.Render("ℹ") + " " + msg)
}

func Warn(msg string) {
	emit(warnStyle.Render("⚠️") + " " + msg)
}

func Error(msg string) {
	emit(errorStyle.Render("❌") + " " + msg)
}

// Step prints a blank line and an emoji-led progress line, e.g. Step("🚀", "Starting ...").
func Step(icon, msg string) {
	if icon != "" {
		msg = icon + " " + msg
	}
	emit("\n" + msg)
}

// Note prints a parenthesised aside on its own paragraph.
func Note(msg string) {
	emit("\n" + labelStyle.Render("("+msg+")"))
}

// Highlight prints a label: value pair.
func Highlight(label, value string) {
	emit("  " + labelStyle.Render(label+":") + " " + valueStyle.Render(value))
}

// Banner prints title framed by rows of stars.
func Banner(title string) {
	const width = 50
	rule := strings.Repeat("*", width)
	pad := (width - lipgloss.Width(title)) / 2
	if pad < 0 {
		pad = 0
	}
	emit(bannerStyle.Render(rule))
	emit(bannerStyle.Render(strings.Repeat(" ", pad) + title))
	emit(bannerStyle.Render(rule))
}
