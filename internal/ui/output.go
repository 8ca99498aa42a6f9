package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Level gates which messages are printed. The active level is also what
// hook scripts receive in RESTAROUND_LOG_LEVEL.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

func (l Level) String() string { return levelNames[l] }

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level: %s", s)
}

var (
	level   = LevelInfo
	colored = true

	styleDebug = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleBold  = lipgloss.NewStyle().Bold(true)
)

// SetLevel sets the active log level.
func SetLevel(l Level) { level = l }

// CurrentLevel returns the active log level.
func CurrentLevel() Level { return level }

// SetColor enables or disables styled output.
func SetColor(enabled bool) { colored = enabled }

func render(style lipgloss.Style, s string) string {
	if !colored {
		return s
	}
	return style.Render(s)
}

// Debugf prints a debug message to stderr.
func Debugf(format string, args ...any) {
	if level > LevelDebug {
		return
	}
	fmt.Fprintln(os.Stderr, render(styleDebug, fmt.Sprintf(format, args...)))
}

// Infof prints an informational message to stdout.
func Infof(format string, args ...any) {
	if level > LevelInfo {
		return
	}
	fmt.Println(fmt.Sprintf(format, args...))
}

// Warnf prints a warning to stderr.
func Warnf(format string, args ...any) {
	if level > LevelWarn {
		return
	}
	fmt.Fprintln(os.Stderr, render(styleWarn, "warning: "+fmt.Sprintf(format, args...)))
}

// Errorf prints an error message to stderr.
func Errorf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, render(styleError, "error: "+fmt.Sprintf(format, args...)))
}

// Bold returns s emphasized when color is enabled.
func Bold(s string) string { return render(styleBold, s) }
