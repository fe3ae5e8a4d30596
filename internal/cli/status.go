package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/harun/autokudos/internal/config"
	"github.com/harun/autokudos/pkg/browser"
	"github.com/harun/autokudos/pkg/credentials"
	"github.com/harun/autokudos/pkg/supervision"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, cookie and session directory status",
	Long: `Show where autokudos reads its settings from, whether the template and
cookies are usable, and which session the current directory resolves to.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if templatePath != "" {
		cfg.TemplatePath = templatePath
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config: %s\n", config.NewLoader(cfgFile).GetConfigPath())
	fmt.Fprintf(out, "Template: %s\n", describeFile(cfg.TemplatePath))
	fmt.Fprintf(out, "Cookies: %s\n", describeCookies(cfg, time.Now()))

	dir, err := workDir()
	if err != nil {
		return err
	}
	if id, err := supervision.Resolve(absOr(dir)); err == nil {
		fmt.Fprintf(out, "Session: %s (looking for %s)\n", id, id.Label())
	} else {
		fmt.Fprintf(out, "Session: none (%v)\n", err)
	}

	return nil
}

func describeFile(path string) string {
	if path == "" {
		return "not configured"
	}
	if _, err := os.Stat(path); err != nil {
		return path + " (missing)"
	}
	return path
}

// describeCookies summarizes the cookie source the next run would use
func describeCookies(cfg *config.Config, now time.Time) string {
	set, err := credentials.NewStore(cfg.CookieFile).Load()
	source := cfg.CookieFile
	if errors.Is(err, credentials.ErrNoCookies) && cfg.Cookies != "" {
		set, err = credentials.ParseCookieSet([]byte(cfg.Cookies))
		source = "inline configuration"
	}
	if err != nil {
		return fmt.Sprintf("unusable (%v)", err)
	}

	return fmt.Sprintf("%d from %s, %s", len(set), source, describeExpiry(set, now))
}

// describeExpiry reports the earliest expiry among persistent cookies
func describeExpiry(set []browser.Cookie, now time.Time) string {
	var earliest time.Time
	for _, c := range set {
		at := c.ExpiresAt()
		if at.IsZero() {
			continue
		}
		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
	}

	switch {
	case earliest.IsZero():
		return "session cookies only"
	case !earliest.After(now):
		return fmt.Sprintf("expired %s ago", formatDuration(now.Sub(earliest)))
	default:
		return fmt.Sprintf("first expiry in %s", formatDuration(earliest.Sub(now)))
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

