// Package portal drives the Kudos web portal: it logs in with stored cookies,
// scans the bookings table and downloads the info file for one session.
package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harun/autokudos/internal/tracing"
	"github.com/harun/autokudos/pkg/browser"
	"github.com/harun/autokudos/pkg/supervision"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "autokudos/portal"

// Driver is the browser surface the downloader depends on
type Driver interface {
	SetCookies(ctx context.Context, cookies []browser.Cookie) error
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	WaitURL(ctx context.Context, url string, timeout time.Duration) error
	WaitSelector(ctx context.Context, selector string, timeout time.Duration) error
	HTML(ctx context.Context, selector string) (string, error)
	Download(ctx context.Context, selector, dest string, timeout time.Duration) error
}

// Config holds portal locations, selectors and per-step wait budgets
type Config struct {
	LoginURL           string
	BookingsURL        string
	SSOSelector        string
	TableReadySelector string
	TableSelector      string
	Layout             supervision.TableLayout

	NavigationTimeout time.Duration
	LoginTimeout      time.Duration
	TableTimeout      time.Duration
	DownloadTimeout   time.Duration
}

// Outcome classifies a completed download attempt
type Outcome int

const (
	OutcomeDownloaded Outcome = iota
	OutcomeNoMatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeNoMatch:
		return "no_match"
	default:
		return "unknown"
	}
}

// Result describes a download attempt
type Result struct {
	Outcome Outcome
	Path    string
	Match   supervision.MatchResult
	Rows    int
}

// Downloader fetches the info file for a session
type Downloader struct {
	driver Driver
	cfg    Config
}

// NewDownloader creates a downloader over driver
func NewDownloader(driver Driver, cfg Config) *Downloader {
	if cfg.Layout.RowSelector == "" {
		cfg.Layout = supervision.DefaultTableLayout()
	}
	return &Downloader{
		driver: driver,
		cfg:    cfg,
	}
}

// Download logs in, finds the booking row for id and saves its info file to dest.
// A missing row returns OutcomeNoMatch together with ErrNoMatchingSession; dest
// is written only when the download completes.
func (d *Downloader) Download(ctx context.Context, id supervision.Identity, cookies []browser.Cookie, dest string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "portal.download",
		attribute.String("subject", id.Subject),
		attribute.Int("ordinal", id.Ordinal),
	)
	defer span.End()

	rows, err := d.Scan(ctx, cookies)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, err
	}

	match := supervision.Match(rows, id)
	result := &Result{Match: match, Rows: len(rows)}

	if !match.Found {
		result.Outcome = OutcomeNoMatch
		event := log.Warn().
			Str("subject", id.Subject).
			Str("label", id.Label()).
			Int("rows", len(rows))
		if best := supervision.Suggest(rows, id.Subject, 1); len(best) > 0 {
			event = event.Str("closest", best[0].Subject).Float64("similarity", best[0].Similarity)
		}
		event.Msg("No booking row matches this session")
		span.SetAttributes(attribute.String("outcome", result.Outcome.String()))
		return result, stepError(StepMatch, ErrNoMatchingSession,
			fmt.Sprintf("a row for %q with link %s", id.Subject, id.Label()), nil)
	}

	if match.Ambiguous() {
		log.Warn().
			Str("subject", id.Subject).
			Str("label", id.Label()).
			Int("matches", match.Matches).
			Int("row", match.Row).
			Msg("Several booking rows match this session, using the first")
	}

	log.Info().
		Str("href", match.Href).
		Int("row", match.Row).
		Msg("Found session, downloading info file")

	if err := d.download(ctx, match.Href, dest); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		return nil, err
	}

	result.Outcome = OutcomeDownloaded
	result.Path = dest
	span.SetAttributes(attribute.String("outcome", result.Outcome.String()))
	return result, nil
}

// Scan logs in and returns the rows of the bookings table
func (d *Downloader) Scan(ctx context.Context, cookies []browser.Cookie) ([]supervision.BookingRow, error) {
	if err := d.login(ctx, cookies); err != nil {
		return nil, err
	}
	if err := d.openBookings(ctx); err != nil {
		return nil, err
	}
	return d.extract(ctx)
}

func (d *Downloader) login(ctx context.Context, cookies []browser.Cookie) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "portal.login")
	defer span.End()

	if err := d.driver.SetCookies(ctx, cookies); err != nil {
		span.RecordError(err)
		return stepError(StepCookies, nil, "apply stored cookies", err)
	}

	log.Info().Str("url", d.cfg.LoginURL).Msg("Logging into portal")

	if err := d.driver.Navigate(ctx, d.cfg.LoginURL, d.cfg.NavigationTimeout); err != nil {
		span.RecordError(err)
		return stepError(StepLogin, ErrPortalUnavailable, "load "+d.cfg.LoginURL, err)
	}
	if err := d.driver.Click(ctx, d.cfg.SSOSelector, d.cfg.NavigationTimeout); err != nil {
		span.RecordError(err)
		return stepError(StepLogin, ErrPortalUnavailable, "single sign-on link "+d.cfg.SSOSelector, err)
	}
	if err := d.driver.WaitURL(ctx, d.cfg.LoginURL, d.cfg.LoginTimeout); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login redirect did not return")
		if browser.IsTimeout(err) {
			return stepError(StepLogin, ErrAuthExpired,
				fmt.Sprintf("redirect back to %s within %v", d.cfg.LoginURL, d.cfg.LoginTimeout), err)
		}
		return stepError(StepLogin, nil, "redirect back to "+d.cfg.LoginURL, err)
	}

	log.Info().Msg("Logged into portal")
	return nil
}

func (d *Downloader) openBookings(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "portal.bookings")
	defer span.End()

	log.Info().Str("url", d.cfg.BookingsURL).Msg("Loading bookings page")

	if err := d.driver.Navigate(ctx, d.cfg.BookingsURL, d.cfg.NavigationTimeout); err != nil {
		span.RecordError(err)
		return stepError(StepBookings, ErrPortalUnavailable, "load "+d.cfg.BookingsURL, err)
	}
	if err := d.driver.WaitSelector(ctx, d.cfg.TableReadySelector, d.cfg.TableTimeout); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bookings table did not render")
		return stepError(StepBookings, ErrPortalUnavailable,
			fmt.Sprintf("%s to render within %v", d.cfg.TableReadySelector, d.cfg.TableTimeout), err)
	}

	log.Info().Msg("Loaded bookings page")
	return nil
}

func (d *Downloader) extract(ctx context.Context) ([]supervision.BookingRow, error) {
	html, err := d.driver.HTML(ctx, d.cfg.TableSelector)
	if err != nil {
		return nil, stepError(StepExtract, ErrPortalUnavailable, "read bookings table HTML", err)
	}

	rows, err := supervision.ParseBookingTable(html, d.cfg.Layout)
	if err != nil {
		return nil, stepError(StepExtract, ErrPortalUnavailable, "parse bookings table", err)
	}

	log.Debug().Int("rows", len(rows)).Msg("Scanned booking rows")
	return rows, nil
}

func (d *Downloader) download(ctx context.Context, href, dest string) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "portal.file",
		attribute.String("href", href),
	)
	defer span.End()

	selector := LinkSelector(href)
	if err := d.driver.Download(ctx, selector, dest, d.cfg.DownloadTimeout); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		if browser.IsTimeout(err) {
			return stepError(StepDownload, ErrDownloadTimedOut,
				fmt.Sprintf("download from %s within %v", href, d.cfg.DownloadTimeout), err)
		}
		return stepError(StepDownload, nil, "download from "+href, err)
	}
	return nil
}

// LinkSelector returns a CSS selector for the anchor with exactly this href
func LinkSelector(href string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(href)
	return `a[href="` + escaped + `"]`
}
