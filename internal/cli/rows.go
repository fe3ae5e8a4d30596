package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/harun/autokudos/internal/config"
	"github.com/harun/autokudos/pkg/supervision"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var screenshotPath string

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Print the booking rows the portal shows",
	Long: `Log into Kudos, read the bookings table and print every row with its
session links. When run inside a <subject>/supo<N> directory the row that
would be downloaded is marked.`,
	Args: cobra.NoArgs,
	RunE: runRows,
}

func init() {
	rowsCmd.Flags().StringVar(&screenshotPath, "screenshot", "", "save a PNG screenshot of the bookings page")
	rootCmd.AddCommand(rowsCmd)
}

func runRows(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	v := config.NewValidator()
	errs := v.ValidateConfig(a.cfg)
	if err := v.ValidateCookies(a.cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validate(errs); err != nil {
		return err
	}

	// Marking the matched row is optional outside a session directory
	var target *supervision.Identity
	if dir, err := workDir(); err == nil {
		if id, err := supervision.Resolve(absOr(dir)); err == nil {
			target = &id
		}
	}

	ctx := cmd.Context()
	cookies, err := a.credentials().Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	downloader, session, err := a.openDownloader(ctx)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to close browser")
		}
	}()

	rows, scanErr := downloader.Scan(ctx, cookies)

	// A screenshot is most useful when the scan failed
	if screenshotPath != "" {
		if err := session.Screenshot(ctx, screenshotPath); err != nil {
			log.Warn().Err(err).Str("path", screenshotPath).Msg("Failed to save screenshot")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Saved screenshot to %s\n", screenshotPath)
		}
	}
	if scanErr != nil {
		return scanErr
	}

	match := supervision.NotFound
	if target != nil {
		match = supervision.Match(rows, *target)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderRows(rows, match, shouldColorize(out)))

	if target != nil {
		if match.Found {
			fmt.Fprintf(out, "%s %s -> %s\n", target.Subject, target.Label(), match.Href)
		} else {
			fmt.Fprintf(out, "No row matches %s %s\n", target.Subject, target.Label())
			for _, s := range supervision.Suggest(rows, target.Subject, 3) {
				fmt.Fprintf(out, "  did you mean %q (%.2f)?\n", s.Subject, s.Similarity)
			}
		}
	}
	return nil
}

// renderRows draws the booking rows, marking the matched one
func renderRows(rows []supervision.BookingRow, match supervision.MatchResult, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Subject", "Sessions", ""})

	for i, row := range rows {
		labels := make([]string, 0, len(row.Links))
		for _, link := range row.Links {
			labels = append(labels, link.Label)
		}

		mark := ""
		if match.Found && i == match.Row {
			mark = "match"
			if colorize {
				mark = text.Colors{text.FgGreen, text.Bold}.Sprint(mark)
			}
		}
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), row.Subject, strings.Join(labels, " "), mark})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	if len(rows) == 0 {
		tw.AppendFooter(table.Row{"", "no rows", "", ""})
	}

	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
