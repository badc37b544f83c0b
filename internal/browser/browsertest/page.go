// Package browsertest provides an in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/tickrenew/internal/browser"
)

// Page is a scriptable browser.Page. Elements are keyed by the exact selector
// or XPath string the code under test queries. Hooks run without the lock held
// so they may mutate the page.
type Page struct {
	mu sync.Mutex

	CurrentURL   string
	CurrentTitle string
	Markup       string

	Cookies     []browser.Cookie
	Elements    map[string][]*Element
	QueryErrors map[string]error

	NavigateErr   error
	ScreenshotErr error
	URLErr        error

	// OnNavigate runs after a successful Navigate, with CurrentURL already set.
	OnNavigate func(p *Page, url string)
	// OnReload runs on every Reload.
	OnReload func(p *Page)
	// OnScreenshot runs before every Screenshot.
	OnScreenshot func(ctx context.Context)

	Navigations []string
	Reloads     int
	Screenshots int
	Queries     int
}

// NewPage returns an empty page at about:blank.
func NewPage() *Page {
	return &Page{
		CurrentURL:  "about:blank",
		Elements:    make(map[string][]*Element),
		QueryErrors: make(map[string]error),
	}
}

// SetElements replaces the elements matched by selector.
func (p *Page) SetElements(selector string, els ...*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Elements[selector] = els
}

// SetQueryError makes every query for key fail with err. A nil err clears it.
func (p *Page) SetQueryError(key string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.QueryErrors, key)
		return
	}
	p.QueryErrors[key] = err
}

// SetLocation updates the URL and title.
func (p *Page) SetLocation(url, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CurrentURL = url
	p.CurrentTitle = title
}

// SetURLError makes URL fail with err. A nil err clears it.
func (p *Page) SetURLError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.URLErr = err
}

// NavigationCount returns how many navigations and reloads happened.
func (p *Page) NavigationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Navigations) + p.Reloads
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if p.NavigateErr != nil {
		err := p.NavigateErr
		p.mu.Unlock()
		return err
	}
	p.Navigations = append(p.Navigations, url)
	p.CurrentURL = url
	hook := p.OnNavigate
	p.mu.Unlock()

	if hook != nil {
		hook(p, url)
	}
	return nil
}

func (p *Page) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.Reloads++
	hook := p.OnReload
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

func (p *Page) Title(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentTitle, nil
}

func (p *Page) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.URLErr != nil {
		return "", p.URLErr
	}
	return p.CurrentURL, nil
}

func (p *Page) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Markup, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	hook := p.OnScreenshot
	p.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	p.Screenshots++
	return []byte("\x89PNG fake"), nil
}

func (p *Page) ClearCookies(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cookies = nil
	return nil
}

func (p *Page) SetCookie(_ context.Context, c browser.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cookies = append(p.Cookies, c)
	return nil
}

func (p *Page) Query(_ context.Context, selector string) ([]browser.Element, error) {
	return p.lookup(selector)
}

func (p *Page) QueryXPath(_ context.Context, xpath string) ([]browser.Element, error) {
	return p.lookup(xpath)
}

func (p *Page) lookup(key string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Queries++
	if err := p.QueryErrors[key]; err != nil {
		return nil, err
	}
	els := p.Elements[key]
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

// Element is a scriptable browser.Element.
type Element struct {
	mu       sync.Mutex
	Content  string
	TextErr  error
	ClickErr error
	// OnClick runs after a successful click.
	OnClick func()
	Clicks  int
}

// NewElement returns an element with the given text.
func NewElement(text string) *Element {
	return &Element{Content: text}
}

// SetText replaces the element text.
func (e *Element) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Content = text
}

// ClickCount returns how many times the element was clicked.
func (e *Element) ClickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Clicks
}

func (e *Element) Text(context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.TextErr != nil {
		return "", e.TextErr
	}
	return e.Content, nil
}

func (e *Element) Click(context.Context) error {
	e.mu.Lock()
	if e.ClickErr != nil {
		err := e.ClickErr
		e.mu.Unlock()
		return err
	}
	e.Clicks++
	hook := e.OnClick
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

// Session wraps a Page as a browser.Session.
type Session struct {
	page   *Page
	mu     sync.Mutex
	closed int
}

func (s *Session) Page() browser.Page { return s.page }

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed > 0
}

// Launcher hands out sessions over a fixed page and records launches.
type Launcher struct {
	page     *Page
	Err      error
	mu       sync.Mutex
	launches int
	sessions []*Session
}

// NewLauncher returns a launcher serving page.
func NewLauncher(page *Page) *Launcher {
	return &Launcher{page: page}
}

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.Err != nil {
		return nil, l.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Session{page: l.page}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Launches returns how many sessions were requested.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// AllClosed reports whether every launched session was closed.
func (l *Launcher) AllClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.sessions {
		if !s.Closed() {
			return false
		}
	}
	return true
}
