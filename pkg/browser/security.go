package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// SecurityConfig restricts where the session may navigate and which cookies it applies
type SecurityConfig struct {
	AllowedDomains []string `json:"allowed_domains,omitempty" mapstructure:"allowed_domains"`
}

// SecurityValidator validates URLs and cookie domains against the allowed list.
// An empty list allows everything.
type SecurityValidator struct {
	config SecurityConfig
}

// NewSecurityValidator creates a new security validator
func NewSecurityValidator(config SecurityConfig) *SecurityValidator {
	return &SecurityValidator{
		config: config,
	}
}

// ValidateURL validates a URL and checks the allowed domains
func (sv *SecurityValidator) ValidateURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Host == "" {
		return &BrowserError{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("Invalid URL format: %s", urlStr),
		}
	}

	if parsedURL.Scheme != "https" && parsedURL.Scheme != "http" {
		sv.logSecurityViolation("scheme_blocked", urlStr)
		return &BrowserError{
			Code:    ErrCodeSecurity,
			Message: fmt.Sprintf("URL scheme not allowed: %s", parsedURL.Scheme),
			Details: map[string]interface{}{
				"url": urlStr,
			},
		}
	}

	if !sv.AllowsHost(parsedURL.Hostname()) {
		sv.logSecurityViolation("domain_not_allowed", urlStr)
		return &BrowserError{
			Code:    ErrCodeSecurity,
			Message: fmt.Sprintf("Domain not in allowed list: %s", parsedURL.Host),
			Details: map[string]interface{}{
				"url":    urlStr,
				"domain": parsedURL.Host,
			},
		}
	}

	return nil
}

// AllowsHost reports whether host is covered by the allowed domains
func (sv *SecurityValidator) AllowsHost(host string) bool {
	if len(sv.config.AllowedDomains) == 0 {
		return true
	}

	host = strings.ToLower(strings.TrimPrefix(host, "."))
	for _, allowed := range sv.config.AllowedDomains {
		if sv.matchDomain(host, strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}

// FilterCookies drops cookies whose domain is outside the allowed list.
// A partially applied set usually means a stale login, so drops are warned about.
func (sv *SecurityValidator) FilterCookies(cookies []Cookie) []Cookie {
	kept := make([]Cookie, 0, len(cookies))
	var dropped []string
	for _, c := range cookies {
		if !sv.AllowsHost(c.Domain) {
			dropped = append(dropped, c.Name+"@"+c.Domain)
			continue
		}
		kept = append(kept, c)
	}

	if len(dropped) > 0 {
		log.Warn().
			Strs("cookies", dropped).
			Int("kept", len(kept)).
			Int("total", len(cookies)).
			Msg("Skipping cookies outside allowed domains")
	}
	return kept
}

// matchDomain checks if a host matches a domain pattern
func (sv *SecurityValidator) matchDomain(host, pattern string) bool {
	// Exact match
	if host == pattern {
		return true
	}

	// Wildcard match (*.example.com)
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[2:]
		return strings.HasSuffix(host, "."+suffix) || host == suffix
	}

	// Subdomain match (.example.com matches any subdomain)
	if strings.HasPrefix(pattern, ".") {
		return strings.HasSuffix(host, pattern) || host == pattern[1:]
	}

	return false
}

func (sv *SecurityValidator) logSecurityViolation(violationType, details string) {
	log.Warn().Str("violation", violationType).Str("url", details).Msg("Browser security violation")
}
