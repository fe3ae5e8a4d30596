package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// urlPollInterval is how often WaitURL samples the page URL
const urlPollInterval = 200 * time.Millisecond

// Session is a single browser page driven over CDP
type Session struct {
	process    *ProcessManager
	browser    *rod.Browser
	page       *rod.Page
	security   *SecurityValidator
	nav        *navTracker
	stopEvents context.CancelFunc
}

// Open starts a browser for profile and opens a blank page
func Open(ctx context.Context, profile *ResolvedBrowserProfile, security SecurityConfig) (*Session, error) {
	pm := NewProcessManager(profile)

	browser, err := pm.Start(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		pm.Stop()
		return nil, &BrowserError{
			Code:    ErrCodeBrowserCrash,
			Message: fmt.Sprintf("Failed to create page: %v", err),
			Err:     err,
		}
	}

	s := &Session{
		process:  pm,
		browser:  browser,
		page:     page,
		security: NewSecurityValidator(security),
		nav:      &navTracker{},
	}
	s.watchNavigations()
	return s, nil
}

// watchNavigations feeds main-frame navigations into the tracker until Close
func (s *Session) watchNavigations() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopEvents = cancel

	wait := s.page.Context(ctx).EachEvent(func(e *proto.PageFrameNavigated) {
		if e.Frame != nil && e.Frame.ParentID == "" {
			s.nav.record(e.Frame.URL, string(e.Frame.LoaderID))
		}
	})
	go wait()
}

// Close closes the browser and terminates a launched process
func (s *Session) Close() error {
	if s.stopEvents != nil {
		s.stopEvents()
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	s.process.Stop()
	return err
}

// SetCookies applies cookies to the browsing context
func (s *Session) SetCookies(ctx context.Context, cookies []Cookie) error {
	cookies = s.security.FilterCookies(cookies)
	if len(cookies) == 0 {
		return nil
	}

	if err := s.page.Context(ctx).SetCookies(ToCookieParams(cookies)); err != nil {
		return classify(ErrCodeScriptExecution, err, "Failed to set cookies")
	}
	return nil
}

// Cookies returns every cookie visible to the page
func (s *Session) Cookies(ctx context.Context) ([]Cookie, error) {
	cookies, err := s.page.Context(ctx).Cookies([]string{})
	if err != nil {
		return nil, classify(ErrCodeScriptExecution, err, "Failed to get cookies")
	}
	return FromNetworkCookies(cookies), nil
}

// Navigate opens url and waits for the load event
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := s.security.ValidateURL(url); err != nil {
		return err
	}
	s.nav.disarm()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	page := s.page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return classify(ErrCodeNavigation, err, "Failed to navigate to %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return classify(ErrCodeTimeout, err, "Page load timeout for %s", url)
	}
	return nil
}

// URL returns the current page URL
func (s *Session) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", classify(ErrCodeBrowserCrash, err, "Failed to read page info")
	}
	return info.URL, nil
}

// WaitURL waits until the page URL equals url, ignoring a trailing slash.
// After Click it waits for a navigation the click caused, so a page that
// starts on url must leave it and come back.
func (s *Session) WaitURL(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(urlPollInterval)
	defer ticker.Stop()

	last := ""
	for {
		current, err := s.URL(ctx)
		if err == nil {
			last = current
		}
		if s.nav.reached(current, url) {
			return nil
		}

		select {
		case <-ctx.Done():
			msg := fmt.Sprintf("URL did not become %s within %v (last %s)", url, timeout, last)
			if !s.nav.moved() {
				msg = fmt.Sprintf("No navigation after click within %v (still on %s)", timeout, last)
			}
			s.nav.disarm()
			return &BrowserError{
				Code:    ErrCodeTimeout,
				Message: msg,
				Details: map[string]interface{}{
					"want": url,
					"last": last,
				},
				Err: ctx.Err(),
			}
		case <-ticker.C:
		}
	}
}

// WaitSelector waits until selector matches an element
func (s *Session) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := s.page.Context(ctx).Element(selector); err != nil {
		return classify(ErrCodeElementNotFound, err, "Element %q not found", selector)
	}
	return nil
}

// Click waits for selector and clicks the first matching element
func (s *Session) Click(ctx context.Context, selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	elem, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return classify(ErrCodeElementNotFound, err, "Element %q not found", selector)
	}

	s.nav.arm(s.loaderID(ctx))
	if err := elem.Click(proto.InputMouseButtonLeft, 1); err != nil {
		s.nav.disarm()
		return classify(ErrCodeScriptExecution, err, "Failed to click %q", selector)
	}
	return nil
}

// loaderID returns the loader of the main frame's current document
func (s *Session) loaderID(ctx context.Context) string {
	res, err := proto.PageGetFrameTree{}.Call(s.page.Context(ctx))
	if err != nil || res.FrameTree == nil || res.FrameTree.Frame == nil {
		return ""
	}
	return string(res.FrameTree.Frame.LoaderID)
}

// HTML returns the outer HTML of selector, or of the whole page when selector is empty
func (s *Session) HTML(ctx context.Context, selector string) (string, error) {
	page := s.page.Context(ctx)
	if selector == "" {
		html, err := page.HTML()
		if err != nil {
			return "", classify(ErrCodeScriptExecution, err, "Failed to read page HTML")
		}
		return html, nil
	}

	elem, err := page.Element(selector)
	if err != nil {
		return "", classify(ErrCodeElementNotFound, err, "Element %q not found", selector)
	}
	html, err := elem.HTML()
	if err != nil {
		return "", classify(ErrCodeScriptExecution, err, "Failed to read HTML of %q", selector)
	}
	return html, nil
}

// Download clicks selector and saves the download it triggers to dest.
// The file is received in a scratch directory beside dest and renamed into
// place, so dest only appears once the download has completed.
func (s *Session) Download(ctx context.Context, selector, dest string, timeout time.Duration) error {
	scratch, err := os.MkdirTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return &BrowserError{
			Code:    ErrCodeDownload,
			Message: fmt.Sprintf("Failed to create download directory: %v", err),
			Err:     err,
		}
	}
	defer os.RemoveAll(scratch)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := s.browser.Context(ctx).WaitDownload(scratch)

	elem, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return classify(ErrCodeElementNotFound, err, "Element %q not found", selector)
	}
	if err := elem.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return classify(ErrCodeScriptExecution, err, "Failed to click %q", selector)
	}

	info := wait()
	if ctx.Err() != nil || info == nil {
		return &BrowserError{
			Code:    ErrCodeTimeout,
			Message: fmt.Sprintf("No download completed within %v", timeout),
			Err:     context.DeadlineExceeded,
		}
	}

	received := filepath.Join(scratch, info.GUID)
	if _, err := os.Stat(received); err != nil {
		return &BrowserError{
			Code:    ErrCodeDownload,
			Message: fmt.Sprintf("Downloaded file missing: %v", err),
			Err:     err,
		}
	}
	if err := os.Rename(received, dest); err != nil {
		return &BrowserError{
			Code:    ErrCodeDownload,
			Message: fmt.Sprintf("Failed to move download into place: %v", err),
			Err:     err,
		}
	}

	log.Debug().
		Str("file", dest).
		Str("suggested", info.SuggestedFilename).
		Msg("Download saved")
	return nil
}

// Screenshot writes a full-page PNG of the current page to path
func (s *Session) Screenshot(ctx context.Context, path string) error {
	data, err := s.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return classify(ErrCodeScriptExecution, err, "Failed to capture screenshot")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}
