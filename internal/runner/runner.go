// Package runner wires the session resolver, credential provider, portal
// downloader and LaTeX assembler into the single flow run for one
// supervision directory.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harun/autokudos/internal/config"
	"github.com/harun/autokudos/internal/metrics"
	"github.com/harun/autokudos/internal/tracing"
	"github.com/harun/autokudos/pkg/browser"
	"github.com/harun/autokudos/pkg/credentials"
	"github.com/harun/autokudos/pkg/latex"
	"github.com/harun/autokudos/pkg/portal"
	"github.com/harun/autokudos/pkg/supervision"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "autokudos/runner"

// Downloader fetches the info file of one session
type Downloader interface {
	Download(ctx context.Context, id supervision.Identity, cookies []browser.Cookie, dest string) (*portal.Result, error)
}

// OpenFunc starts a browser-backed downloader; the returned func releases it
type OpenFunc func(ctx context.Context) (Downloader, func() error, error)

// Options controls a run
type Options struct {
	TemplatePath string
	Files        config.FilesConfig
	// Force downloads the info file even when it already exists
	Force bool
}

// Report summarizes a run
type Report struct {
	Identity     supervision.Identity
	ArtifactPath string
	Downloaded   bool
	Skipped      bool
	Match        supervision.MatchResult
	OutputPath   string
}

// Outcome returns the metrics label of a successful run
func (r *Report) Outcome() string {
	switch {
	case r.Skipped:
		return "skipped_download"
	case r.Downloaded:
		return "assembled"
	default:
		return "no_match"
	}
}

// Runner executes the download and assemble flow
type Runner struct {
	opts    Options
	cookies credentials.Provider
	open    OpenFunc
	metrics *metrics.Metrics
}

// New creates a runner; m may be nil
func New(opts Options, cookies credentials.Provider, open OpenFunc, m *metrics.Metrics) *Runner {
	defaults := config.DefaultConfig().Files
	if opts.Files.Artifact == "" {
		opts.Files.Artifact = defaults.Artifact
	}
	if opts.Files.Source == "" {
		opts.Files.Source = defaults.Source
	}
	if opts.Files.Output == "" {
		opts.Files.Output = defaults.Output
	}

	return &Runner{
		opts:    opts,
		cookies: cookies,
		open:    open,
		metrics: m,
	}
}

// Run resolves the session from dir, downloads its info file unless it is
// already present and writes the assembled document next to the source.
func (r *Runner) Run(ctx context.Context, dir string) (*Report, error) {
	started := time.Now()

	report, err := r.run(ctx, dir)

	outcome := "failed"
	if err == nil {
		outcome = report.Outcome()
	}
	r.metrics.RecordRun(outcome, time.Now())
	r.metrics.ObserveStep("run", started, errorType(err))

	return report, err
}

func (r *Runner) run(ctx context.Context, dir string) (*Report, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}

	id, err := supervision.Resolve(abs)
	if err != nil {
		return nil, err
	}

	ctx = tracing.NewRunContext(ctx, id.String())
	ctx, span := tracing.StartSpan(ctx, tracerName, "autokudos.run",
		attribute.String("subject", id.Subject),
		attribute.Int("ordinal", id.Ordinal),
	)
	defer span.End()

	logger := tracing.PropagateToLogger(ctx, log.Logger)
	logger.Info().
		Str("subject", id.Subject).
		Int("ordinal", id.Ordinal).
		Str("label", id.Label()).
		Msg("Resolved supervision session")

	report := &Report{
		Identity:     id,
		ArtifactPath: filepath.Join(abs, r.opts.Files.Artifact),
		Match:        supervision.NotFound,
	}

	if exists(report.ArtifactPath) && !r.opts.Force {
		report.Skipped = true
		logger.Info().Str("path", report.ArtifactPath).Msg("Info file already present, skipping download")
	} else {
		if err := r.download(ctx, id, report); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "download failed")
			return report, err
		}
	}

	output, err := r.assemble(abs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assemble failed")
		return report, err
	}
	report.OutputPath = output

	logger.Info().Str("output", output).Msg("Wrote assembled document")
	return report, nil
}

func (r *Runner) download(ctx context.Context, id supervision.Identity, report *Report) error {
	started := time.Now()

	cookies, err := r.cookies.Load(ctx)
	if err != nil {
		r.metrics.ObserveStep("cookies", started, errorType(err))
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	if r.open == nil {
		return errors.New("no browser configured")
	}
	downloader, release, err := r.open(ctx)
	if err != nil {
		r.metrics.ObserveStep("browser", started, "browser")
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if release == nil {
			return
		}
		if cerr := release(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to close browser")
		}
	}()

	result, err := downloader.Download(ctx, id, cookies, report.ArtifactPath)
	r.metrics.ObserveStep("download", started, errorType(err))
	if result != nil {
		report.Match = result.Match
		if r.metrics != nil {
			r.metrics.RowsScanned.Set(float64(result.Rows))
		}
	}

	switch {
	case err == nil:
		report.Downloaded = true
		if r.metrics != nil {
			r.metrics.DownloadsTotal.Inc()
		}
		return nil
	case errors.Is(err, portal.ErrNoMatchingSession):
		log.Warn().
			Str("subject", id.Subject).
			Str("label", id.Label()).
			Msg("No info file for this session, assembling without it")
		return nil
	default:
		return err
	}
}

// Assemble writes the assembled document for the session in dir without
// contacting the portal.
func (r *Runner) Assemble(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory: %w", err)
	}
	return r.assemble(abs)
}

func (r *Runner) assemble(dir string) (string, error) {
	started := time.Now()
	output, err := latex.Assemble(
		filepath.Join(dir, r.opts.Files.Source),
		r.opts.TemplatePath,
		latex.Options{
			ArtifactName: r.opts.Files.Artifact,
			OutputPath:   r.opts.Files.Output,
		},
	)
	r.metrics.ObserveStep("assemble", started, errorType(err))
	return output, err
}

// Hint returns advice for the user on how to recover from err
func Hint(err error) string {
	switch {
	case errors.Is(err, portal.ErrAuthExpired), errors.Is(err, credentials.ErrNoCookies):
		return "run `autokudos login` to refresh the portal cookies"
	case errors.Is(err, credentials.ErrInvalidCookies):
		return "the cookie file or AUTOKUDOS_COOKIES is not a cookie JSON array; run `autokudos login`"
	case errors.Is(err, supervision.ErrInvalidLayout):
		return "run inside a <subject>/supo<N> directory or pass --dir"
	case errors.Is(err, portal.ErrPortalUnavailable):
		return "the portal did not render the bookings table; check the portal in a browser or run `autokudos rows --screenshot page.png`"
	case errors.Is(err, latex.ErrMarkerMissing):
		return `the source needs a \documentclass{article} line`
	case errors.Is(err, config.ErrMissingConfiguration):
		return "run `autokudos configure` or set the AUTOKUDOS_* environment variables"
	}
	return ""
}

// errorType maps an error onto a short metrics label
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, portal.ErrAuthExpired):
		return "auth_expired"
	case errors.Is(err, portal.ErrPortalUnavailable):
		return "portal_unavailable"
	case errors.Is(err, portal.ErrNoMatchingSession):
		return "no_matching_session"
	case errors.Is(err, portal.ErrDownloadTimedOut):
		return "download_timed_out"
	case errors.Is(err, credentials.ErrNoCookies), errors.Is(err, credentials.ErrInvalidCookies):
		return "cookies"
	case errors.Is(err, supervision.ErrInvalidLayout):
		return "invalid_layout"
	case errors.Is(err, latex.ErrSourceNotFound), errors.Is(err, latex.ErrMarkerMissing):
		return "source"
	}
	return "other"
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
