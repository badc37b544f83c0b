package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultOutcomeTTL keeps the last outcome around for a week.
const DefaultOutcomeTTL = 7 * 24 * time.Hour

// Outcome is the summary of the last finished run of a profile.
type Outcome struct {
	RunID      string    `redis:"run_id"`
	State      string    `redis:"state"`
	Kind       string    `redis:"kind"`
	ServerID   string    `redis:"server_id"`
	Initial    string    `redis:"initial"`
	Renewed    string    `redis:"renewed"`
	FinishedAt time.Time `redis:"-"`
}

// SaveOutcome replaces the last outcome of profile.
func (s *Store) SaveOutcome(ctx context.Context, profile string, o Outcome) error {
	key := OutcomeKey(profile)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"run_id", o.RunID,
		"state", o.State,
		"kind", o.Kind,
		"server_id", o.ServerID,
		"initial", o.Initial,
		"renewed", o.Renewed,
		"finished_at", o.FinishedAt.UTC().Format(time.RFC3339),
	)
	pipe.Expire(ctx, key, DefaultOutcomeTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}
	return nil
}

// LastOutcome returns the last saved outcome of profile, or nil if none.
func (s *Store) LastOutcome(ctx context.Context, profile string) (*Outcome, error) {
	res := s.client.HGetAll(ctx, OutcomeKey(profile))
	fields, err := res.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var o Outcome
	if err := res.Scan(&o); err != nil {
		return nil, fmt.Errorf("failed to decode outcome: %w", err)
	}
	if ts := fields["finished_at"]; ts != "" {
		if o.FinishedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("failed to decode outcome time: %w", err)
		}
	}
	return &o, nil
}
