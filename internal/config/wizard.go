package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
	base   *Config
}

// NewWizard creates a wizard reading answers from in and prompting on out.
// Answers left empty keep the values of base.
func NewWizard(in io.Reader, out io.Writer, base *Config) *Wizard {
	if base == nil {
		base = DefaultConfig()
	}
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
		base:   base,
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	w.println("=== autokudos configuration ===")
	w.println()

	cfg := *w.base
	validator := NewValidator()

	// Template path
	for {
		w.printf("LaTeX template path [%s]: ", cfg.TemplatePath)
		path, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if path == "" {
			path = cfg.TemplatePath
		}
		if path == "" {
			w.println("Error: a template path is required")
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, err := os.Stat(path); err != nil {
			w.printf("Warning: %s does not exist yet\n", path)
		}

		cfg.TemplatePath = path
		break
	}

	// Cookie file
	w.printf("Cookie file [%s]: ", cfg.CookieFile)
	cookieFile, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if cookieFile != "" {
		cfg.CookieFile = cookieFile
	}

	// Browser
	w.printf("Run browser headless? (y/n) [%s]: ", yesNo(cfg.Browser.Headless))
	headless, err := w.readLine()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(headless) {
	case "y", "yes":
		cfg.Browser.Headless = true
	case "n", "no":
		cfg.Browser.Headless = false
	}

	// Log Level
	w.printf("Log level (debug/info/warn/error) [%s]: ", cfg.Logging.Level)
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			w.printf("Warning: %v, keeping %s\n", err, cfg.Logging.Level)
		} else {
			cfg.Logging.Level = level
		}
	}

	w.println()
	w.println("Configuration complete!")

	return &cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (w *Wizard) printf(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format, args...)
}

func (w *Wizard) println(args ...interface{}) {
	fmt.Fprintln(w.out, args...)
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}
