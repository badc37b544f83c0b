// Package auth establishes a panel session from a pre-obtained session cookie.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/tickrenew/internal/browser"
	"github.com/MrSnakeDoc/tickrenew/internal/logger"
	"github.com/MrSnakeDoc/tickrenew/internal/site"
	"github.com/MrSnakeDoc/tickrenew/internal/wait"
)

// ErrMissingCredential means no session cookie value was supplied at all,
// as opposed to a supplied value the panel rejected.
var ErrMissingCredential = errors.New("session credential not set")

// Injector logs in by replacing the browser cookies with the session cookie.
type Injector struct {
	profile *site.Profile
	settle  wait.Policy
	logger  logger.Logger
}

// NewInjector creates an injector. settle bounds the wait for the
// authenticated markers after the origin loads.
func NewInjector(profile *site.Profile, settle wait.Policy, log logger.Logger) *Injector {
	return &Injector{profile: profile, settle: settle, logger: log}
}

// Login injects credential and reports whether the panel shows an
// authenticated page. A rejected credential is (false, nil); errors are
// reserved for a missing credential and browser faults.
func (i *Injector) Login(ctx context.Context, page browser.Page, credential string) (bool, error) {
	if credential == "" {
		return false, ErrMissingCredential
	}

	i.logger.Info("logging in with session cookie",
		logger.String("login_url", i.profile.LoginURL))

	// The cookie domain must be the current origin before cookies can be set on it.
	if err := page.Navigate(ctx, i.profile.LoginURL); err != nil {
		return false, fmt.Errorf("open login page: %w", err)
	}
	if err := page.ClearCookies(ctx); err != nil {
		return false, err
	}

	c := i.profile.Cookie
	if err := page.SetCookie(ctx, browser.Cookie{
		Name:     c.Name,
		Value:    credential,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
	}); err != nil {
		return false, err
	}

	if err := page.Navigate(ctx, i.profile.OriginURL); err != nil {
		return false, fmt.Errorf("open origin: %w", err)
	}

	var title, url string
	ok, err := wait.Settle(ctx, i.settle, func(ctx context.Context) (bool, error) {
		var err error
		if title, err = page.Title(ctx); err != nil {
			return false, err
		}
		if url, err = page.URL(ctx); err != nil {
			return false, err
		}
		return i.profile.IsAuthenticated(title, url), nil
	})
	if err != nil {
		return false, fmt.Errorf("wait for authenticated page: %w", err)
	}

	i.logger.Info("landing page",
		logger.String("url", url),
		logger.String("title", title),
		logger.Bool("authenticated", ok))

	return ok, nil
}
