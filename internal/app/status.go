package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/MrSnakeDoc/tickrenew/internal/config"
	"github.com/MrSnakeDoc/tickrenew/internal/logger"
	"github.com/MrSnakeDoc/tickrenew/internal/redis"
	"github.com/MrSnakeDoc/tickrenew/internal/site"
	redisstore "github.com/MrSnakeDoc/tickrenew/internal/store/redis"
)

// StatusOptions are the overrides of the status command.
type StatusOptions struct {
	EnvFile     string
	ProfileFile string
	LogLevel    string
	All         bool // every profile known to Redis instead of the configured one
}

// ProfileStatus is what Redis knows about one profile.
type ProfileStatus struct {
	Profile string
	Holder  string // lease token, empty when no run is in progress
	Outcome *redisstore.Outcome
	Checked time.Time
}

// Status prints the lease holder and the last saved outcome of the configured
// profile, or of every profile with All. It needs RENEW_REDIS_ADDR but not a
// session cookie.
func Status(ctx context.Context, opts StatusOptions, out io.Writer) error {
	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return err
	}
	cfg, err := config.LoadStatus()
	if err != nil {
		return err
	}
	if opts.ProfileFile != "" {
		cfg.ProfileFile = opts.ProfileFile
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if !cfg.LeaseEnabled() {
		return fmt.Errorf("%w: RENEW_REDIS_ADDR is required for status", config.ErrConfigurationMissing)
	}

	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = log.Sync() }()

	client, err := redis.Connect(ctx, redis.OptionsFromConfig(cfg), log)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	statuses, err := collectStatus(ctx, redisstore.NewStore(client), cfg, opts.All)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}
	for _, st := range statuses {
		writeStatus(out, st)
	}
	return nil
}

func collectStatus(ctx context.Context, store *redisstore.Store, cfg *config.Config, all bool) ([]ProfileStatus, error) {
	var profiles []string
	if all {
		var err error
		if profiles, err = store.Profiles(ctx); err != nil {
			return nil, err
		}
	} else {
		profile, err := site.NewLoader(cfg.ProfileFile).Load()
		if err != nil {
			return nil, fmt.Errorf("invalid site profile: %w", err)
		}
		profiles = []string{profile.Name}
	}

	statuses := make([]ProfileStatus, 0, len(profiles))
	for _, p := range profiles {
		holder, err := store.Holder(ctx, p)
		if err != nil {
			return nil, err
		}
		outcome, err := store.LastOutcome(ctx, p)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, ProfileStatus{
			Profile: p,
			Holder:  holder,
			Outcome: outcome,
			Checked: time.Now(),
		})
	}
	return statuses, nil
}

func writeStatus(out io.Writer, st ProfileStatus) {
	fmt.Fprintf(out, "profile: %s\n", st.Profile)
	if st.Holder != "" {
		fmt.Fprintf(out, "  lease:    held by %s\n", st.Holder)
	} else {
		fmt.Fprintln(out, "  lease:    free")
	}

	o := st.Outcome
	if o == nil {
		fmt.Fprintln(out, "  last run: none")
		return
	}
	fmt.Fprintf(out, "  last run: %s %s", o.RunID, o.State)
	if o.Kind != "" {
		fmt.Fprintf(out, " (%s)", o.Kind)
	}
	if !o.FinishedAt.IsZero() {
		fmt.Fprintf(out, " at %s, %s ago", o.FinishedAt.Format(time.RFC3339), st.Checked.Sub(o.FinishedAt).Round(time.Second))
	}
	fmt.Fprintln(out)
	if o.ServerID != "" {
		fmt.Fprintf(out, "  server:   %s\n", o.ServerID)
	}
	if o.Initial != "" || o.Renewed != "" {
		fmt.Fprintf(out, "  expiry:   %s -> %s\n", orDash(o.Initial), orDash(o.Renewed))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
