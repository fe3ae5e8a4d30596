package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harun/autokudos/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const bookingTable = `<table>
<thead class="table-dark"><tr><th>Subject</th><th></th><th></th><th></th><th>Sessions</th></tr></thead>
<tbody>
<tr><td>Fluid Mechanics</td><td></td><td></td><td></td><td><a href="/dl/7">SV#4</a></td></tr>
<tr><td>Thermo Dynamics (IB)</td><td></td><td></td><td></td><td><a href="/dl/41">SV#3</a><a href="/dl/42">SV#4</a></td></tr>
</tbody>
</table>`

const supoSource = "\\documentclass{article}\n\\begin{document}\nBody\n\\end{document}\n"

// fakeSession stands in for a Chromium page
type fakeSession struct {
	html       string
	cookies    []browser.Cookie
	downloaded []string
	navigated  []string
	closed     bool
}

func (f *fakeSession) SetCookies(ctx context.Context, cookies []browser.Cookie) error { return nil }

func (f *fakeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (f *fakeSession) WaitURL(ctx context.Context, url string, timeout time.Duration) error {
	return nil
}

func (f *fakeSession) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (f *fakeSession) HTML(ctx context.Context, selector string) (string, error) {
	return f.html, nil
}

func (f *fakeSession) Download(ctx context.Context, selector, dest string, timeout time.Duration) error {
	f.downloaded = append(f.downloaded, selector)
	return os.WriteFile(dest, []byte("\\def\\student{A}\n"), 0644)
}

func (f *fakeSession) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	return f.cookies, nil
}

func (f *fakeSession) Screenshot(ctx context.Context, path string) error {
	return os.WriteFile(path, []byte("png"), 0644)
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

// useFakeBrowser swaps openBrowser for the duration of the test
func useFakeBrowser(t *testing.T, f *fakeSession) *[]bool {
	t.Helper()
	var headlessSeen []bool
	orig := openBrowser
	openBrowser = func(ctx context.Context, profile *browser.ResolvedBrowserProfile, security browser.SecurityConfig) (browserSession, error) {
		headlessSeen = append(headlessSeen, profile.Headless)
		return f, nil
	}
	t.Cleanup(func() { openBrowser = orig })
	return &headlessSeen
}

// resetFlags clears flag variables left behind by earlier executions
func resetFlags(t *testing.T) {
	t.Helper()
	cfgFile, logLevel, sessionDir, templatePath, screenshotPath = "", "", "", "", ""
	headless, force = true, false
	t.Setenv("HOME", t.TempDir())

	// cobra keeps parsed flag state between Execute calls
	cmds := append([]*cobra.Command{rootCmd}, rootCmd.Commands()...)
	for _, c := range cmds {
		for _, name := range []string{"help", "version"} {
			if f := c.Flags().Lookup(name); f != nil {
				_ = f.Value.Set("false")
				f.Changed = false
			}
		}
	}
}

// testEnv writes a config file and a Thermodynamics/supo3 session directory
func testEnv(t *testing.T, extra string) (configPath, dir string) {
	t.Helper()
	root := t.TempDir()

	dir = filepath.Join(root, "Thermodynamics", "supo3")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "supo.tex"), []byte(supoSource), 0644))

	configPath = filepath.Join(root, "autokudos.json")
	cfg := `{
		"data_dir": "` + filepath.Join(root, "data") + `",
		"template_path": "/tmpl/template.tex",
		"logging": {"level": "debug", "format": "json"}` + extra + `
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0644))
	return configPath, dir
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := GetRootCmd()
	outBuf, errBuf := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetIn(&bytes.Buffer{})
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}
