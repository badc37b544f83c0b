// Package site describes the control panel the renewer talks to: its URLs,
// session cookie, page markers and selectors.
package site

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// UnknownServerID is reported when the server id cannot be read from the URL.
const UnknownServerID = "Unknown"

// Profile is the contract with one third-party panel. Selector drift shows up
// as "not found" results; nothing here tolerates it.
type Profile struct {
	Name      string `yaml:"name"`
	LoginURL  string `yaml:"login_url"`
	OriginURL string `yaml:"origin_url"`

	Cookie      Cookie      `yaml:"cookie"`
	AuthMarkers AuthMarkers `yaml:"auth_markers"`
	Selectors   Selectors   `yaml:"selectors"`

	// RenewLabel is the case-sensitive text the renew button's label contains.
	RenewLabel string `yaml:"renew_label"`
	// ExpirationPrefix is stripped from the expiration text before parsing.
	ExpirationPrefix string `yaml:"expiration_prefix"`
	// ServerIDPattern must contain one capture group.
	ServerIDPattern string `yaml:"server_id_pattern"`

	serverID *regexp.Regexp
}

// Cookie describes the injected session cookie.
type Cookie struct {
	Name     string `yaml:"name"`
	Domain   string `yaml:"domain"`
	Path     string `yaml:"path"`
	Secure   bool   `yaml:"secure"`
	HTTPOnly bool   `yaml:"http_only"`
}

// AuthMarkers identify an authenticated landing page.
type AuthMarkers struct {
	TitleContains []string `yaml:"title_contains"`
	URLContains   []string `yaml:"url_contains"`
}

// Selectors locate elements on the panel pages.
type Selectors struct {
	ServerCard string `yaml:"server_card"` // CSS
	Expiration string `yaml:"expiration"`  // CSS
	// RenewControl is an XPath expression. When empty it is derived from RenewLabel.
	RenewControl string `yaml:"renew_control"`
}

// Default returns the built-in Tickhosting profile.
func Default() Profile {
	return Profile{
		Name:      "Tickhosting",
		LoginURL:  "https://tickhosting.com/auth/login",
		OriginURL: "https://tickhosting.com/",
		Cookie: Cookie{
			Name:     "pterodactyl_session",
			Domain:   "tickhosting.com",
			Path:     "/",
			Secure:   true,
			HTTPOnly: true,
		},
		AuthMarkers: AuthMarkers{
			TitleContains: []string{"Dashboard"},
			URLContains:   []string{"/dashboard"},
		},
		Selectors: Selectors{
			ServerCard: ".server-card",
			Expiration: ".RenewBox___StyledP-sc-1inh2rq-4",
		},
		RenewLabel:       "ADD",
		ExpirationPrefix: "EXPIRED:",
		ServerIDPattern:  `/server/([a-f0-9]+)`,
	}
}

// Validate checks the profile and compiles the server id pattern. ServerID
// always reports UnknownServerID on a profile that was never validated.
func (p *Profile) Validate() error {
	var errs []error

	for _, f := range []struct{ field, raw string }{
		{"login_url", p.LoginURL},
		{"origin_url", p.OriginURL},
	} {
		u, err := url.Parse(f.raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", f.field, f.raw))
		}
	}
	if p.Cookie.Name == "" {
		errs = append(errs, errors.New("cookie.name is required"))
	}
	if p.Cookie.Domain == "" {
		errs = append(errs, errors.New("cookie.domain is required"))
	}
	if p.Cookie.Path == "" {
		p.Cookie.Path = "/"
	}
	if len(p.AuthMarkers.TitleContains) == 0 && len(p.AuthMarkers.URLContains) == 0 {
		errs = append(errs, errors.New("at least one auth marker is required"))
	}
	if p.Selectors.ServerCard == "" {
		errs = append(errs, errors.New("selectors.server_card is required"))
	}
	if p.Selectors.Expiration == "" {
		errs = append(errs, errors.New("selectors.expiration is required"))
	}
	if p.Selectors.RenewControl == "" && p.RenewLabel == "" {
		errs = append(errs, errors.New("renew_label or selectors.renew_control is required"))
	}

	re, err := regexp.Compile(p.ServerIDPattern)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid server_id_pattern: %w", err))
	case re.NumSubexp() < 1:
		errs = append(errs, errors.New("server_id_pattern needs a capture group"))
	default:
		p.serverID = re
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid site profile %q: %w", p.Name, errors.Join(errs...))
	}
	return nil
}

// ServerID extracts the server identifier from a page URL, or UnknownServerID.
func (p *Profile) ServerID(pageURL string) string {
	if p.serverID == nil {
		return UnknownServerID
	}
	m := p.serverID.FindStringSubmatch(pageURL)
	if len(m) < 2 || m[1] == "" {
		return UnknownServerID
	}
	return m[1]
}

// RenewControlXPath returns the XPath matching renew buttons.
// Example: label ADD -> //button[.//span[contains(text(), 'ADD')]]
func (p *Profile) RenewControlXPath() string {
	if p.Selectors.RenewControl != "" {
		return p.Selectors.RenewControl
	}
	return fmt.Sprintf("//button[.//span[contains(text(), %s)]]", xpathLiteral(p.RenewLabel))
}

// IsAuthenticated reports whether a page title or URL carries an authenticated marker.
func (p *Profile) IsAuthenticated(title, pageURL string) bool {
	for _, m := range p.AuthMarkers.TitleContains {
		if m != "" && strings.Contains(title, m) {
			return true
		}
	}
	for _, m := range p.AuthMarkers.URLContains {
		if m != "" && strings.Contains(pageURL, m) {
			return true
		}
	}
	return false
}

// StripExpirationPrefix removes the label prefix and surrounding whitespace.
func (p *Profile) StripExpirationPrefix(text string) string {
	if p.ExpirationPrefix != "" {
		text = strings.ReplaceAll(text, p.ExpirationPrefix, "")
	}
	return strings.TrimSpace(text)
}

// xpathLiteral quotes s for use inside an XPath 1.0 expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+part+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
