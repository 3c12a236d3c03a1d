// Package cli holds the invocation conventions shared by the binaries.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"

	"github.com/coreqcapital/coreq-migrate/internal/logger"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ErrUsage is returned for an unknown or extra argument.
var ErrUsage = errors.New("usage")

// Mode is one accepted positional flag.
type Mode struct {
	Flag        string
	Description string
}

// ParseMode accepts at most one positional flag from modes. No argument selects def.
func ParseMode(args []string, modes []Mode, def string) (string, error) {
	switch len(args) {
	case 0:
		return def, nil
	case 1:
		for _, m := range modes {
			if args[0] == m.Flag {
				return m.Flag, nil
			}
		}
		return "", fmt.Errorf("%w: unknown flag %q", ErrUsage, args[0])
	default:
		return "", fmt.Errorf("%w: expected at most one flag, got %d", ErrUsage, len(args))
	}
}

// Usage writes the help text for a binary.
func Usage(w io.Writer, name, summary string, modes []Mode) {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: %s [flag]\n\n%s\n\nFlags:\n", name, summary)
	for _, m := range modes {
		fmt.Fprintf(&b, "  %-16s %s\n", m.Flag, m.Description)
	}
	_, _ = io.WriteString(w, b.String())
}

// LoadLocalEnv loads .env from the working directory when present.
func LoadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found; relying on existing environment")
	}
}
