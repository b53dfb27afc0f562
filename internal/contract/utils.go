package contract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Namespace label constants.
const (
	CurrentValue = "Current" // Namespace matches the configured cache name
	StaleValue   = "Stale"   // Namespace will be deleted on next activation
)

// Color variables for console output.
var (
	CurrentColor = color.New(color.FgGreen, color.Bold) // CurrentColor marks the live namespace.
	StaleColor   = color.New(color.FgYellow)            // StaleColor marks namespaces pending deletion.
)

// GetPlainLabel returns a plain text label for a namespace.
func GetPlainLabel(current bool) string {
	if current {
		return CurrentValue
	}
	return StaleValue
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(current bool) string {
	text := GetPlainLabel(current)
	if current {
		return CurrentColor.Sprint(text)
	}
	return StaleColor.Sprint(text)
}

// ConfigureColors turns colored output off when disabled by config or when
// stdout is not a terminal.
func ConfigureColors(enabled bool) {
	color.NoColor = !enabled || !term.IsTerminal(int(os.Stdout.Fd()))
}

// FormatBytes renders a byte count for humans, e.g. "9.4 MB".
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// NewLogger returns the diagnostic logger used by the interceptor and proxy.
func NewLogger(level logrus.Level, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return logger
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".assetcache.db"
	}
	return filepath.Join(homeDir, ".assetcache.db")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
