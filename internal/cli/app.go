package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harun/autokudos/internal/config"
	"github.com/harun/autokudos/internal/logger"
	"github.com/harun/autokudos/internal/metrics"
	"github.com/harun/autokudos/internal/runner"
	"github.com/harun/autokudos/internal/tracing"
	"github.com/harun/autokudos/pkg/browser"
	"github.com/harun/autokudos/pkg/credentials"
	"github.com/harun/autokudos/pkg/portal"
	"github.com/harun/autokudos/pkg/supervision"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// browserSession is the browser surface used by the commands
type browserSession interface {
	portal.Driver
	credentials.LoginDriver
	Screenshot(ctx context.Context, path string) error
}

// openBrowser starts a browser; tests replace it with a fake
var openBrowser = func(ctx context.Context, profile *browser.ResolvedBrowserProfile, security browser.SecurityConfig) (browserSession, error) {
	s, err := browser.Open(ctx, profile, security)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// app holds what every command builds from configuration
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
}

// newApp loads configuration, applies command line overrides and installs
// the logger and tracer provider.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if templatePath != "" {
		cfg.TemplatePath = templatePath
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = headless
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.File = cfg.Logging.File
	logCfg.Out = cmd.ErrOrStderr()

	lg, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := tracing.InitOpenTelemetry("autokudos", version); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without spans")
	}

	return &app{
		cfg:     cfg,
		log:     lg,
		metrics: metrics.NewMetrics(),
	}, nil
}

// close flushes spans and metrics and closes the log file
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to shut down tracing")
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		log.Warn().Err(err).Msg("Failed to write metrics")
	}
	_ = a.log.Close()
}

// validate joins the validation errors of a command into one error
func validate(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// workDir returns --dir or the working directory
func workDir() (string, error) {
	if sessionDir != "" {
		return sessionDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return dir, nil
}

func (a *app) browserProfile(headless bool) *browser.ResolvedBrowserProfile {
	return browser.ResolveProfile(browser.BrowserProfile{
		Name:        "default",
		Headless:    headless,
		NoSandbox:   a.cfg.Browser.NoSandbox,
		UserDataDir: a.cfg.Browser.UserDataDir,
		ChromePath:  a.cfg.Browser.ChromePath,
		ControlURL:  a.cfg.Browser.ControlURL,
	}, a.cfg.DataDir)
}

func (a *app) security() browser.SecurityConfig {
	return browser.SecurityConfig{AllowedDomains: a.cfg.Security.AllowedDomains}
}

func (a *app) portalConfig() portal.Config {
	p := a.cfg.Portal
	t := a.cfg.Timeouts
	return portal.Config{
		LoginURL:           p.LoginURL,
		BookingsURL:        p.BookingsURL,
		SSOSelector:        p.SSOSelector,
		TableReadySelector: p.TableReadySelector,
		TableSelector:      p.TableSelector,
		Layout: supervision.TableLayout{
			RowSelector:   p.RowSelector,
			SubjectColumn: p.SubjectColumn,
			LinksColumn:   p.LinksColumn,
		},
		NavigationTimeout: config.Seconds(t.Navigation),
		LoginTimeout:      config.Seconds(t.Login),
		TableTimeout:      config.Seconds(t.Table),
		DownloadTimeout:   config.Seconds(t.Download),
	}
}

// credentials builds the cookie provider; interactive logins always get a window
func (a *app) credentials() *credentials.Manager {
	open := func(ctx context.Context) (credentials.LoginDriver, error) {
		return openBrowser(ctx, a.browserProfile(false), a.security())
	}
	return credentials.NewManager(
		a.cfg.Cookies,
		credentials.NewStore(a.cfg.CookieFile),
		open,
		credentials.LoginFlow{
			LoginURL:    a.cfg.Portal.LoginURL,
			SSOSelector: a.cfg.Portal.SSOSelector,
			StepTimeout: config.Seconds(a.cfg.Timeouts.Navigation),
			UserTimeout: config.Seconds(a.cfg.Timeouts.Interactive),
		},
	)
}

// openDownloader starts the configured browser and wraps it in a portal downloader
func (a *app) openDownloader(ctx context.Context) (*portal.Downloader, browserSession, error) {
	session, err := openBrowser(ctx, a.browserProfile(a.cfg.Browser.Headless), a.security())
	if err != nil {
		return nil, nil, err
	}
	return portal.NewDownloader(session, a.portalConfig()), session, nil
}

func (a *app) runner(force bool) *runner.Runner {
	open := func(ctx context.Context) (runner.Downloader, func() error, error) {
		d, session, err := a.openDownloader(ctx)
		if err != nil {
			return nil, nil, err
		}
		return d, session.Close, nil
	}
	return runner.New(runner.Options{
		TemplatePath: a.cfg.TemplatePath,
		Files:        a.cfg.Files,
		Force:        force,
	}, a.credentials(), open, a.metrics)
}

// reportError prints err and a recovery hint to the command's error stream
func reportError(cmd *cobra.Command, err error) {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Error: %v\n", err)
	if hint := runner.Hint(err); hint != "" {
		fmt.Fprintf(out, "Hint: %s\n", hint)
	}
}

// absOr returns the absolute form of dir, or dir itself if that fails
func absOr(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
