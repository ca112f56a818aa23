// Package logger configures the process-wide apex/log handler.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

// Supported output formats
const (
	FormatCLI  = "cli"
	FormatText = "text"
	FormatJSON = "json"
)

// Setup installs a handler writing to stderr and sets the level
func Setup(level, format string) error {
	return SetupWriter(os.Stderr, level, format)
}

// SetupWriter installs a handler writing to w and sets the level
func SetupWriter(w io.Writer, level, format string) error {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch strings.ToLower(format) {
	case "", FormatCLI:
		log.SetHandler(cli.New(w))
	case FormatText:
		log.SetHandler(text.New(w))
	case FormatJSON:
		log.SetHandler(json.New(w))
	default:
		return fmt.Errorf("invalid log format %q (want cli, text or json)", format)
	}

	log.SetLevel(lvl)
	return nil
}
