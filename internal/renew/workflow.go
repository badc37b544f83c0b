// Package renew runs one renewal attempt: log in, open the first server,
// press renew, and check that the expiration moved forward.
package renew

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/tickrenew/internal/auth"
	"github.com/MrSnakeDoc/tickrenew/internal/browser"
	"github.com/MrSnakeDoc/tickrenew/internal/expiry"
	"github.com/MrSnakeDoc/tickrenew/internal/inspect"
	"github.com/MrSnakeDoc/tickrenew/internal/logger"
	"github.com/MrSnakeDoc/tickrenew/internal/notify"
	"github.com/MrSnakeDoc/tickrenew/internal/site"
	"github.com/MrSnakeDoc/tickrenew/internal/utils"
	"github.com/MrSnakeDoc/tickrenew/internal/wait"
)

// Checkpoint screenshot names, written to the artifact directory.
const (
	ShotLoginFailed = "cookie_login_failed.png"
	ShotDashboard   = "dashboard.png"
	ShotServerPage  = "server_page.png"
	ShotError       = "error.png"
)

// markupSnippetLimit bounds the page markup logged after a failed login.
const markupSnippetLimit = 2000

// errorShotTimeout bounds the error screenshot, which outlives the run context.
const errorShotTimeout = 10 * time.Second

// Deps are the collaborators of a Workflow.
type Deps struct {
	Launcher  browser.Launcher
	Injector  *auth.Injector
	Inspector *inspect.Inspector
	Parser    *expiry.Parser
	Recorder  *browser.Recorder
	Notifier  notify.Notifier
	Profile   *site.Profile
	Logger    logger.Logger
	NewRunID  func() string // for testing, defaults to uuid.NewString
}

// Options tune one run.
type Options struct {
	Credential string      // session cookie value
	PageSettle wait.Policy // element waits after navigation, click and reload
	Processing wait.Policy // wait for the backend after pressing renew
}

// Result describes a finished run.
type Result struct {
	RunID    string
	State    State
	ServerID string
	Initial  inspect.Observation
	Renewed  inspect.Observation
	Err      *Error
	Message  string // outcome message handed to the notifier, empty if none was sent
}

// Succeeded reports whether the expiration was extended.
func (r Result) Succeeded() bool { return r.State == StateSucceeded }

// Workflow performs a single renewal attempt. It is not safe for concurrent use.
type Workflow struct {
	deps Deps
	opts Options
	log  logger.Logger
}

// New creates a workflow.
func New(deps Deps, opts Options) *Workflow {
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	return &Workflow{deps: deps, opts: opts, log: deps.Logger}
}

// Run executes the state machine once. Every failure except a missing
// credential is reported through a screenshot and the notifier; the browser
// session is always released.
func (w *Workflow) Run(ctx context.Context) Result {
	res := Result{RunID: w.deps.NewRunID(), State: StateInit, ServerID: site.UnknownServerID}
	w.log = w.deps.Logger.With(logger.String("run_id", res.RunID))

	if w.opts.Credential == "" {
		res.State = StateFailed
		res.Err = newError(KindConfigurationMissing, "session credential not set", auth.ErrMissingCredential)
		w.log.Error("❌ renewal aborted before launching the browser", logger.Error(res.Err))
		return res
	}

	w.log.Info("🚀 starting renewal run", logger.String("site", w.deps.Profile.Name))

	session, err := w.deps.Launcher.Launch(ctx)
	if err != nil {
		w.fail(&res, classify(err, "launch browser"))
		w.report(ctx, nil, &res)
		return res
	}
	defer func() {
		utils.MustClose(session, "browser session", w.log)
		w.log.Info("browser session released")
	}()

	page := session.Page()
	table := w.transitions()

	for !res.State.Terminal() {
		t := table[res.State]
		w.log.Debug("transition",
			logger.String("from", res.State.String()),
			logger.String("to", t.to.String()),
			logger.String("step", t.name))

		if rerr := t.step(ctx, page, &res); rerr != nil {
			w.fail(&res, rerr)
			break
		}
		res.State = t.to
	}

	w.report(ctx, page, &res)
	return res
}

func (w *Workflow) fail(res *Result, err *Error) {
	w.log.Error("❌ renewal failed",
		logger.String("state", res.State.String()),
		logger.String("kind", err.Kind.String()),
		logger.Error(err))
	res.State = StateFailed
	res.Err = err
}

// report sends the outcome. A failed run also gets an error screenshot.
func (w *Workflow) report(ctx context.Context, page browser.Page, res *Result) {
	name := w.deps.Profile.Name
	if res.Succeeded() {
		res.Message = SuccessMessage(name, res.ServerID, res.Initial.Raw, res.Renewed.Raw)
		w.log.Info("✅ renewal succeeded",
			logger.String("server_id", res.ServerID),
			logger.String("initial", res.Initial.Raw),
			logger.String("new", res.Renewed.Raw))
	} else {
		if page != nil {
			shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), errorShotTimeout)
			w.deps.Recorder.Capture(shotCtx, page, ShotError)
			cancel()
		}
		res.Message = FailureMessage(name, res.Err)
	}
	w.deps.Notifier.Notify(context.WithoutCancel(ctx), res.Message)
}

// authenticate: Init -> Authenticated.
func (w *Workflow) authenticate(ctx context.Context, page browser.Page, _ *Result) *Error {
	ok, err := w.deps.Injector.Login(ctx, page, w.opts.Credential)
	if err != nil {
		if errors.Is(err, auth.ErrMissingCredential) {
			return newError(KindConfigurationMissing, "session credential not set", err)
		}
		return classify(err, "cookie login")
	}
	if ok {
		w.log.Info("✅ cookie login success")
		return nil
	}

	w.deps.Recorder.Capture(ctx, page, ShotLoginFailed)
	if markup, herr := page.HTML(ctx); herr == nil {
		w.log.Warn("landing page is not authenticated",
			logger.String("markup", truncate(markup, markupSnippetLimit)))
	} else {
		w.log.Warn("landing page is not authenticated, markup unavailable", logger.Error(herr))
	}
	return newError(KindAuthenticationFailed, "session cookie did not yield an authenticated page", nil)
}

// selectTarget: Authenticated -> TargetSelected.
func (w *Workflow) selectTarget(ctx context.Context, page browser.Page, res *Result) *Error {
	ins := w.deps.Inspector

	if _, err := wait.Settle(ctx, w.opts.PageSettle, func(ctx context.Context) (bool, error) {
		cards, err := ins.FindServerCards(ctx, page)
		return len(cards) > 0, err
	}); err != nil {
		return classify(err, "wait for dashboard")
	}
	w.deps.Recorder.Capture(ctx, page, ShotDashboard)

	cards, err := ins.FindServerCards(ctx, page)
	if err != nil {
		return classify(err, "find server cards")
	}
	if len(cards) == 0 {
		return newError(KindTargetNotFound, "no server card found", nil)
	}
	if len(cards) > 1 {
		// Multi-server accounts are not really supported: the first card is taken.
		w.log.Warn("several server cards found, using the first",
			logger.Int("count", len(cards)))
	}

	dashboardURL, err := page.URL(ctx)
	if err != nil {
		return classify(err, "read dashboard url")
	}
	if err := cards[0].Click(ctx); err != nil {
		return classify(err, "open server card")
	}

	if _, err := wait.Settle(ctx, w.opts.PageSettle, func(ctx context.Context) (bool, error) {
		u, err := page.URL(ctx)
		if err != nil {
			return false, err
		}
		return u != dashboardURL && ins.ReadExpiration(ctx, page).Present(), nil
	}); err != nil {
		return classify(err, "wait for server page")
	}

	serverURL, err := page.URL(ctx)
	if err != nil {
		return classify(err, "read server url")
	}
	res.ServerID = w.deps.Profile.ServerID(serverURL)
	w.log.Info("server page opened",
		logger.String("url", serverURL),
		logger.String("server_id", res.ServerID))
	w.deps.Recorder.Capture(ctx, page, ShotServerPage)
	return nil
}

// captureBaseline: TargetSelected -> BaselineCaptured. A missing reading is
// tolerated here and judged after the renewal.
func (w *Workflow) captureBaseline(ctx context.Context, page browser.Page, res *Result) *Error {
	res.Initial = w.deps.Inspector.ReadExpiration(ctx, page)
	w.log.Info("baseline expiration",
		logger.String("status", res.Initial.Status.String()),
		logger.String("text", res.Initial.Raw))
	return nil
}

// invokeRenewal: BaselineCaptured -> ActionInvoked.
func (w *Workflow) invokeRenewal(ctx context.Context, page browser.Page, _ *Result) *Error {
	controls, err := w.deps.Inspector.FindRenewControls(ctx, page)
	if err != nil {
		return classify(err, "find renew control")
	}
	if len(controls) == 0 {
		return newError(KindControlNotFound, "renew button not found", nil)
	}
	if err := controls[0].Click(ctx); err != nil {
		return classify(err, "click renew control")
	}
	w.log.Info("renew button clicked", logger.Int("candidates", len(controls)))
	return nil
}

// observeResult: ActionInvoked -> ResultObserved.
func (w *Workflow) observeResult(ctx context.Context, page browser.Page, res *Result) *Error {
	ins := w.deps.Inspector
	baseline := res.Initial.Raw

	changed, err := wait.Settle(ctx, w.opts.Processing, func(ctx context.Context) (bool, error) {
		obs := ins.ReadExpiration(ctx, page)
		return obs.Present() && obs.Raw != baseline, obs.Err
	})
	if err != nil {
		return classify(err, "wait for renewal processing")
	}
	w.log.Info("renewal processing wait over", logger.Bool("changed_in_place", changed))

	if err := page.Reload(ctx); err != nil {
		return classify(err, "reload server page")
	}
	if _, err := wait.Settle(ctx, w.opts.PageSettle, func(ctx context.Context) (bool, error) {
		return ins.ReadExpiration(ctx, page).Present(), nil
	}); err != nil {
		return classify(err, "wait for reloaded page")
	}

	res.Renewed = ins.ReadExpiration(ctx, page)
	w.log.Info("post-renewal expiration",
		logger.String("status", res.Renewed.Status.String()),
		logger.String("text", res.Renewed.Raw))
	return nil
}

// judge: ResultObserved -> Succeeded.
func (w *Workflow) judge(_ context.Context, _ browser.Page, res *Result) *Error {
	return Judge(w.deps.Parser, res.Initial, res.Renewed)
}

// SuccessMessage is the outcome message of an extended expiration.
func SuccessMessage(siteName, serverID, initial, renewed string) string {
	return fmt.Sprintf("✅ %s auto-renewal succeeded\nServer: %s\nPrevious expiry: %s\nNew expiry: %s",
		siteName, serverID, initial, renewed)
}

// FailureMessage is the outcome message of a failed run.
func FailureMessage(siteName string, err error) string {
	return fmt.Sprintf("❌ %s auto-renewal failed\n%v", siteName, err)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
