package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/MrSnakeDoc/tickrenew/internal/logger"
)

// Options configures the launched browser.
type Options struct {
	Bin             string        // browser binary, empty => rod launcher default/download
	Headless        bool          // run without a window
	ViewportWidth   int           // ex: 1920
	ViewportHeight  int           // ex: 1080
	PageLoadTimeout time.Duration // bound on every navigation and reload
	ActionTimeout   time.Duration // bound on every click, including the wait for the element to be interactable
	CloseTimeout    time.Duration // bound on the graceful browser shutdown
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Headless:        true,
		ViewportWidth:   1920,
		ViewportHeight:  1080,
		PageLoadTimeout: 30 * time.Second,
		ActionTimeout:   10 * time.Second,
		CloseTimeout:    5 * time.Second,
	}
}

// RodLauncher launches Chromium through go-rod.
type RodLauncher struct {
	opts   Options
	logger logger.Logger
}

// NewRodLauncher creates a launcher for the given options.
func NewRodLauncher(opts Options, log logger.Logger) *RodLauncher {
	def := DefaultOptions()
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = def.ViewportWidth
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = def.ViewportHeight
	}
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = def.PageLoadTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = def.ActionTimeout
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = def.CloseTimeout
	}
	return &RodLauncher{opts: opts, logger: log}
}

// Launch starts a browser and opens a blank page sized to the viewport.
func (l *RodLauncher) Launch(ctx context.Context) (Session, error) {
	launch := launcher.New().
		Headless(l.opts.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", l.opts.ViewportWidth, l.opts.ViewportHeight))
	if l.opts.Bin != "" {
		launch = launch.Bin(l.opts.Bin)
	}

	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		launch.Kill()
		launch.Cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		if cerr := shutdown(browserCloser(b), launch.Kill, launch.Cleanup, l.opts.CloseTimeout); cerr != nil {
			l.logger.Warn("browser did not close gracefully, killed", logger.Error(cerr))
		}
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             l.opts.ViewportWidth,
		Height:            l.opts.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		l.logger.Warn("failed to set viewport", logger.Error(err))
	}

	l.logger.Info("browser launched",
		logger.Bool("headless", l.opts.Headless),
		logger.Duration("page_load_timeout", l.opts.PageLoadTimeout),
		logger.Duration("action_timeout", l.opts.ActionTimeout))

	return &rodSession{
		browser:      b,
		launcher:     launch,
		closeTimeout: l.opts.CloseTimeout,
		page: &rodPage{
			page:          page,
			loadTimeout:   l.opts.PageLoadTimeout,
			actionTimeout: l.opts.ActionTimeout,
		},
	}, nil
}

type rodSession struct {
	browser      *rod.Browser
	launcher     *launcher.Launcher
	page         *rodPage
	closeTimeout time.Duration
	once         sync.Once
	err          error
}

func (s *rodSession) Page() Page { return s.page }

// Close is safe after the run context was cancelled: the browser is closed on
// a fresh context and killed if that fails.
func (s *rodSession) Close() error {
	s.once.Do(func() {
		s.err = shutdown(browserCloser(s.browser), s.launcher.Kill, s.launcher.Cleanup, s.closeTimeout)
	})
	return s.err
}

func browserCloser(b *rod.Browser) func(context.Context) error {
	return func(ctx context.Context) error { return b.Context(ctx).Close() }
}

// shutdown asks the browser to exit within timeout, kills the process when it
// did not, then waits for the process and removes its profile directory.
// Cleanup blocks until the process is gone, so kill must run first on failure.
func shutdown(closeBrowser func(context.Context) error, kill, cleanup func(), timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := closeBrowser(ctx)
	if err != nil {
		kill()
		err = fmt.Errorf("close browser: %w", err)
	}
	cleanup()
	return err
}

type rodPage struct {
	page          *rod.Page
	loadTimeout   time.Duration
	actionTimeout time.Duration
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.loadTimeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) Reload(ctx context.Context) error {
	page := p.page.Context(ctx).Timeout(p.loadTimeout)
	defer page.CancelTimeout()

	if err := page.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load after reload: %w", err)
	}
	return nil
}

func (p *rodPage) Title(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.Title, nil
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, nil)
}

func (p *rodPage) ClearCookies(ctx context.Context) error {
	if err := (proto.NetworkClearBrowserCookies{}).Call(p.page.Context(ctx)); err != nil {
		return fmt.Errorf("clear cookies: %w", err)
	}
	return nil
}

func (p *rodPage) SetCookie(ctx context.Context, c Cookie) error {
	err := p.page.Context(ctx).SetCookies([]*proto.NetworkCookieParam{{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
	}})
	if err != nil {
		return fmt.Errorf("set cookie %s: %w", c.Name, err)
	}
	return nil
}

func (p *rodPage) Query(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrapElements(els, p.actionTimeout), nil
}

func (p *rodPage) QueryXPath(ctx context.Context, xpath string) ([]Element, error) {
	els, err := p.page.Context(ctx).ElementsX(xpath)
	if err != nil {
		return nil, fmt.Errorf("query xpath %q: %w", xpath, err)
	}
	return wrapElements(els, p.actionTimeout), nil
}

func wrapElements(els rod.Elements, actionTimeout time.Duration) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, actionTimeout: actionTimeout})
	}
	return out
}

type rodElement struct {
	el            *rod.Element
	actionTimeout time.Duration
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

// Click waits for the element to be interactable, so a covered element would
// otherwise retry until ctx ends.
func (e *rodElement) Click(ctx context.Context) error {
	el := e.el.Context(ctx).Timeout(e.actionTimeout)
	defer el.CancelTimeout()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}
