// Package latex splices the downloaded info file and a formatting template
// into a supervision's LaTeX source, writing a separate output document.
package latex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Marker is the preamble line replaced by the injected header
const Marker = `\documentclass{article}`

// DocumentClass is the redeclared document class line
const DocumentClass = `\documentclass[10pt,\jkfside,a4paper]{article}`

var (
	// ErrSourceNotFound is returned when the LaTeX source file does not exist
	ErrSourceNotFound = errors.New("source file not found")

	// ErrMarkerMissing is returned when the source lacks the documentclass marker
	ErrMarkerMissing = errors.New(`source does not contain \documentclass{article}`)

	// ErrOutputIsSource is returned when the output path would overwrite the source
	ErrOutputIsSource = errors.New("output path must differ from source path")

	// ErrTemplateRequired is returned when no template path is given
	ErrTemplateRequired = errors.New("template path is required")
)

// Options controls the names used by Assemble
type Options struct {
	// ArtifactName is the file referenced by the first \input line
	ArtifactName string
	// OutputPath is where the assembled document is written; relative paths
	// resolve against the source directory.
	OutputPath string
}

// DefaultOptions returns the file names used by a supervision directory
func DefaultOptions() Options {
	return Options{
		ArtifactName: "infofile.tex",
		OutputPath:   "modifiedSupo.tex",
	}
}

// Header returns the three-line preamble that replaces the marker
func Header(artifactName, templatePath string) string {
	return `\input{` + artifactName + "}\n" +
		DocumentClass + "\n" +
		`\input{` + templatePath + "}"
}

// Transform replaces the first marker in src with the injected header
func Transform(src, artifactName, templatePath string) (string, error) {
	if !strings.Contains(src, Marker) {
		return "", ErrMarkerMissing
	}
	return strings.Replace(src, Marker, Header(artifactName, templatePath), 1), nil
}

// Assemble reads sourcePath, injects the header and writes the result to a new
// file, returning its path. The source file is never modified.
func Assemble(sourcePath, templatePath string, opts Options) (string, error) {
	defaults := DefaultOptions()
	if opts.ArtifactName == "" {
		opts.ArtifactName = defaults.ArtifactName
	}
	if opts.OutputPath == "" {
		opts.OutputPath = defaults.OutputPath
	}
	if templatePath == "" {
		return "", ErrTemplateRequired
	}

	outputPath := opts.OutputPath
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(filepath.Dir(sourcePath), outputPath)
	}
	if samePath(sourcePath, outputPath) {
		return "", fmt.Errorf("%w: %s", ErrOutputIsSource, outputPath)
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
		}
		return "", fmt.Errorf("failed to read source: %w", err)
	}

	out, err := Transform(string(data), opts.ArtifactName, templatePath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, sourcePath)
	}

	if err := writeAtomic(outputPath, []byte(out)); err != nil {
		return "", err
	}

	log.Debug().
		Str("source", sourcePath).
		Str("output", outputPath).
		Str("template", templatePath).
		Msg("Assembled LaTeX document")

	return outputPath, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// writeAtomic writes to a temp file in the target directory then renames it
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set output permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
