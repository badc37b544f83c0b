// Package browser owns the automated Chromium session. Callers only see the
// Page and Element interfaces; go-rod stays behind them.
package browser

import (
	"context"
)

// Cookie is a single cookie to inject into the browser.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// Page is the current tab of a browser session.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error

	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)

	ClearCookies(ctx context.Context) error
	SetCookie(ctx context.Context, c Cookie) error

	// Query returns the elements matching a CSS selector in document order.
	// It takes a single snapshot and never waits.
	Query(ctx context.Context, selector string) ([]Element, error)
	// QueryXPath is Query for XPath expressions.
	QueryXPath(ctx context.Context, xpath string) ([]Element, error)
}

// Element is a node found by a Page query.
type Element interface {
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
}

// Session is a live browser with one page. Close releases the browser
// process and is safe to call more than once.
type Session interface {
	Page() Page
	Close() error
}

// Launcher creates browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
