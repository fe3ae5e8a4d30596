package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/autokudos/internal/config"
	"github.com/harun/autokudos/internal/metrics"
	"github.com/harun/autokudos/pkg/browser"
	"github.com/harun/autokudos/pkg/credentials"
	"github.com/harun/autokudos/pkg/latex"
	"github.com/harun/autokudos/pkg/portal"
	"github.com/harun/autokudos/pkg/supervision"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const supoSource = "\\documentclass{article}\n\\begin{document}\nBody\n\\end{document}\n"

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Load(ctx context.Context) (credentials.CookieSet, error) {
	args := m.Called()
	set, _ := args.Get(0).(credentials.CookieSet)
	return set, args.Error(1)
}

func (m *mockProvider) InteractiveRefresh(ctx context.Context) (credentials.CookieSet, error) {
	args := m.Called()
	set, _ := args.Get(0).(credentials.CookieSet)
	return set, args.Error(1)
}

type mockDownloader struct {
	mock.Mock
}

func (m *mockDownloader) Download(ctx context.Context, id supervision.Identity, cookies []browser.Cookie, dest string) (*portal.Result, error) {
	args := m.Called(id, dest)
	res, _ := args.Get(0).(*portal.Result)
	return res, args.Error(1)
}

var cookieSet = credentials.CookieSet{{Name: "session", Value: "abc", Domain: "kudos.chu.cam.ac.uk", Path: "/", Expires: -1}}

// sessionDir creates <root>/<subject>/supo<n> with a supo.tex source
func sessionDir(t *testing.T, subject, supo string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), subject, supo)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "supo.tex"), []byte(supoSource), 0644))
	return dir
}

func openWith(d Downloader, closed *bool) OpenFunc {
	return func(context.Context) (Downloader, func() error, error) {
		return d, func() error {
			if closed != nil {
				*closed = true
			}
			return nil
		}, nil
	}
}

func testOptions() Options {
	return Options{
		TemplatePath: "/tmpl/template.tex",
		Files:        config.DefaultConfig().Files,
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := sessionDir(t, "Thermodynamics", "supo3")
	artifact := filepath.Join(dir, "infofile.tex")

	provider := &mockProvider{}
	provider.On("Load").Return(cookieSet, nil)

	dl := &mockDownloader{}
	dl.On("Download", supervision.Identity{Ordinal: 3, Subject: "Thermodynamics"}, artifact).
		Run(func(args mock.Arguments) {
			require.NoError(t, os.WriteFile(args.String(1), []byte("\\def\\student{A}\n"), 0644))
		}).
		Return(&portal.Result{
			Outcome: portal.OutcomeDownloaded,
			Path:    artifact,
			Match:   supervision.MatchResult{Found: true, Href: "/dl/42", Row: 1, Matches: 1},
			Rows:    2,
		}, nil)

	var closed bool
	m := metrics.NewMetrics()
	r := New(testOptions(), provider, openWith(dl, &closed), m)

	report, err := r.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, report.Downloaded)
	assert.False(t, report.Skipped)
	assert.Equal(t, "/dl/42", report.Match.Href)
	assert.Equal(t, filepath.Join(dir, "modifiedSupo.tex"), report.OutputPath)
	assert.True(t, closed)

	out, err := os.ReadFile(report.OutputPath)
	require.NoError(t, err)
	assert.Equal(t,
		"\\input{infofile.tex}\n\\documentclass[10pt,\\jkfside,a4paper]{article}\n\\input{/tmpl/template.tex}\n\\begin{document}\nBody\n\\end{document}\n",
		string(out))

	src, err := os.ReadFile(filepath.Join(dir, "supo.tex"))
	require.NoError(t, err)
	assert.Equal(t, supoSource, string(src))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsTotal.WithLabelValues("assembled")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DownloadsTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.RowsScanned))
	dl.AssertExpectations(t)
}

func TestRunSkipsExistingArtifact(t *testing.T) {
	dir := sessionDir(t, "Fluids", "supo0")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "infofile.tex"), []byte("old"), 0644))

	provider := &mockProvider{}
	opened := false
	open := func(context.Context) (Downloader, func() error, error) {
		opened = true
		return nil, nil, errors.New("should not open")
	}

	report, err := New(testOptions(), provider, open, nil).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.False(t, opened)
	assert.FileExists(t, report.OutputPath)
	provider.AssertNotCalled(t, "Load")

	data, err := os.ReadFile(filepath.Join(dir, "infofile.tex"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestRunForceRedownloads(t *testing.T) {
	dir := sessionDir(t, "Fluids", "supo0")
	artifact := filepath.Join(dir, "infofile.tex")
	require.NoError(t, os.WriteFile(artifact, []byte("old"), 0644))

	provider := &mockProvider{}
	provider.On("Load").Return(cookieSet, nil)
	dl := &mockDownloader{}
	dl.On("Download", mock.Anything, artifact).
		Return(&portal.Result{Outcome: portal.OutcomeDownloaded, Path: artifact}, nil)

	opts := testOptions()
	opts.Force = true
	report, err := New(opts, provider, openWith(dl, nil), nil).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, report.Downloaded)
	assert.False(t, report.Skipped)
}

func TestRunNoMatchingSessionIsNotFatal(t *testing.T) {
	dir := sessionDir(t, "Thermodynamics", "supo9")

	provider := &mockProvider{}
	provider.On("Load").Return(cookieSet, nil)
	dl := &mockDownloader{}
	dl.On("Download", mock.Anything, mock.Anything).
		Return(&portal.Result{Outcome: portal.OutcomeNoMatch, Match: supervision.NotFound, Rows: 3},
			&portal.StepError{Step: portal.StepMatch, Kind: portal.ErrNoMatchingSession})

	m := metrics.NewMetrics()
	report, err := New(testOptions(), provider, openWith(dl, nil), m).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, report.Downloaded)
	assert.False(t, report.Match.Found)
	assert.FileExists(t, report.OutputPath)
	assert.NoFileExists(t, filepath.Join(dir, "infofile.tex"))
	assert.Equal(t, "no_match", report.Outcome())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StepErrorsTotal.WithLabelValues("download", "no_matching_session")))
}

func TestRunFailures(t *testing.T) {
	t.Run("invalid layout", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "notes")
		require.NoError(t, os.MkdirAll(dir, 0755))

		_, err := New(testOptions(), &mockProvider{}, nil, nil).Run(context.Background(), dir)
		assert.ErrorIs(t, err, supervision.ErrInvalidLayout)
		assert.Contains(t, Hint(err), "supo<N>")
	})

	t.Run("no cookies", func(t *testing.T) {
		dir := sessionDir(t, "Fluids", "supo1")
		provider := &mockProvider{}
		provider.On("Load").Return(nil, credentials.ErrNoCookies)

		_, err := New(testOptions(), provider, nil, nil).Run(context.Background(), dir)
		assert.ErrorIs(t, err, credentials.ErrNoCookies)
		assert.Contains(t, Hint(err), "autokudos login")
		assert.NoFileExists(t, filepath.Join(dir, "modifiedSupo.tex"))
	})

	t.Run("auth expired", func(t *testing.T) {
		dir := sessionDir(t, "Fluids", "supo1")
		provider := &mockProvider{}
		provider.On("Load").Return(cookieSet, nil)
		dl := &mockDownloader{}
		dl.On("Download", mock.Anything, mock.Anything).
			Return(nil, &portal.StepError{Step: portal.StepLogin, Kind: portal.ErrAuthExpired})

		var closed bool
		m := metrics.NewMetrics()
		_, err := New(testOptions(), provider, openWith(dl, &closed), m).Run(context.Background(), dir)
		assert.ErrorIs(t, err, portal.ErrAuthExpired)
		assert.Contains(t, Hint(err), "autokudos login")
		assert.True(t, closed)
		assert.NoFileExists(t, filepath.Join(dir, "modifiedSupo.tex"))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")))
	})

	t.Run("browser fails to start", func(t *testing.T) {
		dir := sessionDir(t, "Fluids", "supo1")
		provider := &mockProvider{}
		provider.On("Load").Return(cookieSet, nil)
		open := func(context.Context) (Downloader, func() error, error) {
			return nil, nil, errors.New("chromium not found")
		}

		_, err := New(testOptions(), provider, open, nil).Run(context.Background(), dir)
		assert.ErrorContains(t, err, "chromium not found")
	})

	t.Run("marker missing", func(t *testing.T) {
		dir := sessionDir(t, "Fluids", "supo1")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "supo.tex"), []byte("\\documentclass{report}\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "infofile.tex"), []byte("x"), 0644))

		_, err := New(testOptions(), &mockProvider{}, nil, nil).Run(context.Background(), dir)
		assert.ErrorIs(t, err, latex.ErrMarkerMissing)
		assert.NoFileExists(t, filepath.Join(dir, "modifiedSupo.tex"))
	})
}

func TestAssemble(t *testing.T) {
	dir := sessionDir(t, "Thermodynamics", "supo3")

	out, err := New(testOptions(), nil, nil, nil).Assemble(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "modifiedSupo.tex"), out)

	_, err = New(Options{}, nil, nil, nil).Assemble(dir)
	assert.ErrorIs(t, err, latex.ErrTemplateRequired)
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&portal.StepError{Kind: portal.ErrDownloadTimedOut}, "download_timed_out"},
		{&portal.StepError{Kind: portal.ErrPortalUnavailable}, "portal_unavailable"},
		{credentials.ErrInvalidCookies, "cookies"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorType(tt.err))
	}
}
