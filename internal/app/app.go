package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/tickrenew/internal/auth"
	"github.com/MrSnakeDoc/tickrenew/internal/browser"
	"github.com/MrSnakeDoc/tickrenew/internal/config"
	"github.com/MrSnakeDoc/tickrenew/internal/expiry"
	"github.com/MrSnakeDoc/tickrenew/internal/inspect"
	"github.com/MrSnakeDoc/tickrenew/internal/logger"
	"github.com/MrSnakeDoc/tickrenew/internal/notify"
	"github.com/MrSnakeDoc/tickrenew/internal/redis"
	"github.com/MrSnakeDoc/tickrenew/internal/renew"
	"github.com/MrSnakeDoc/tickrenew/internal/site"
	redisstore "github.com/MrSnakeDoc/tickrenew/internal/store/redis"
	"github.com/MrSnakeDoc/tickrenew/internal/version"
	"github.com/MrSnakeDoc/tickrenew/internal/wait"
)

// Options are the command line overrides.
type Options struct {
	EnvFile     string
	ProfileFile string // overrides RENEW_PROFILE_FILE
	LogLevel    string // overrides RENEW_LOG_LEVEL

	Launcher browser.Launcher // nil => headless Chromium via go-rod
	Notifier notify.Notifier  // nil => from config
}

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	profile  *site.Profile
	workflow *renew.Workflow
}

// New loads configuration and the site profile and wires the workflow. Its
// errors are configuration errors, reported before any browser action.
func New(opts Options) (*App, error) {
	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.ProfileFile != "" {
		cfg.ProfileFile = opts.ProfileFile
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	profile, err := site.NewLoader(cfg.ProfileFile).Load()
	if err != nil {
		return nil, fmt.Errorf("invalid site profile: %w", err)
	}
	loggerClient.Info("site profile loaded",
		logger.String("site", profile.Name),
		logger.String("file", cfg.ProfileFile))

	launcher := opts.Launcher
	if launcher == nil {
		bopts := browser.DefaultOptions()
		bopts.Bin = cfg.ChromeBin
		bopts.Headless = cfg.Headless
		bopts.PageLoadTimeout = cfg.PageLoadTimeout
		bopts.ActionTimeout = cfg.ActionTimeout
		launcher = browser.NewRodLauncher(bopts, loggerClient)
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.New(cfg, loggerClient)
	}

	poll := func(timeout time.Duration) wait.Policy {
		return wait.Policy{Timeout: timeout, Interval: cfg.PollInterval, MaxInterval: cfg.PollMaxInterval}
	}

	workflow := renew.New(renew.Deps{
		Launcher:  launcher,
		Injector:  auth.NewInjector(&profile, poll(cfg.LoginSettle), loggerClient),
		Inspector: inspect.New(&profile),
		Parser:    expiry.NewParser(cfg.Timezone),
		Recorder:  browser.NewRecorder(cfg.ArtifactDir, loggerClient),
		Notifier:  notifier,
		Profile:   &profile,
		Logger:    loggerClient,
	}, renew.Options{
		Credential: cfg.SessionToken,
		PageSettle: poll(cfg.PageSettle),
		Processing: poll(cfg.ProcessingTimeout),
	})

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		profile:  &profile,
		workflow: workflow,
	}, nil
}

// Run performs one renewal attempt. Workflow failures are reported through
// logs and the notifier and do not make Run return an error.
func (a *App) Run() error {
	a.logger.Info(version.String())
	a.logger.Infof("🚀 Starting renewal for %s", a.profile.Name)
	a.logger.Debug("effective configuration", logger.String("config", fmt.Sprintf("%+v", a.cfg.Redacted())))
	defer func() { _ = a.logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := a.run(ctx)
	return err
}

func (a *App) run(ctx context.Context) (*renew.Result, error) {
	store, closeStore := a.openStore(ctx)
	defer closeStore()

	if store != nil {
		lease, err := store.AcquireLease(ctx, a.profile.Name, a.cfg.LeaseTTL)
		switch {
		case errors.Is(err, redisstore.ErrLeaseHeld):
			a.logger.Info("⏭️ another run holds the lease, skipping", logger.Error(err))
			return nil, nil
		case err != nil:
			a.logger.Warn("failed to acquire lease, running without one", logger.Error(err))
		default:
			a.logger.Debug("lease acquired", logger.String("key", lease.Key()))
			defer a.releaseLease(lease)
		}
	}

	res := a.workflow.Run(ctx)
	if store != nil {
		a.saveOutcome(store, res)
	}

	if res.Succeeded() {
		a.logger.Info("✅ tickrenew finished", logger.String("run_id", res.RunID))
	} else {
		a.logger.Warn("tickrenew finished with a failed renewal",
			logger.String("run_id", res.RunID),
			logger.Error(res.Err))
	}
	return &res, nil
}

// openStore connects to Redis when a lease is configured. A connection
// failure disables the lease for this run.
func (a *App) openStore(ctx context.Context) (*redisstore.Store, func()) {
	if !a.cfg.LeaseEnabled() {
		return nil, func() {}
	}

	client, err := redis.Connect(ctx, redis.OptionsFromConfig(a.cfg), a.logger)
	if err != nil {
		a.logger.Warn("redis unavailable, running without a lease", logger.Error(err))
		return nil, func() {}
	}
	return redisstore.NewStore(client), func() { a.closeRedis(client) }
}

func (a *App) closeRedis(client *goredis.Client) {
	if err := client.Close(); err != nil {
		a.logger.Warnf("failed to close redis: %v", err)
		return
	}
	a.logger.Debug("redis closed cleanly")
}

func (a *App) releaseLease(lease *redisstore.Lease) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RedisWT+a.cfg.RedisRT)
	defer cancel()

	released, err := lease.Release(ctx)
	switch {
	case err != nil:
		a.logger.Warn("failed to release lease, it will expire on its own",
			logger.Error(err),
			logger.Duration("ttl", a.cfg.LeaseTTL))
	case !released:
		a.logger.Warn("lease expired before the run finished", logger.Duration("ttl", a.cfg.LeaseTTL))
	default:
		a.logger.Debug("lease released")
	}
}

func (a *App) saveOutcome(store *redisstore.Store, res renew.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RedisWT+a.cfg.RedisRT)
	defer cancel()

	o := redisstore.Outcome{
		RunID:      res.RunID,
		State:      res.State.String(),
		ServerID:   res.ServerID,
		Initial:    res.Initial.Raw,
		Renewed:    res.Renewed.Raw,
		FinishedAt: time.Now(),
	}
	if res.Err != nil {
		o.Kind = res.Err.Kind.String()
	}
	if err := store.SaveOutcome(ctx, a.profile.Name, o); err != nil {
		a.logger.Warn("failed to save run outcome", logger.Error(err))
	}
}
