package renew

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/tickrenew/internal/expiry"
	"github.com/MrSnakeDoc/tickrenew/internal/inspect"
)

func present(raw string) inspect.Observation {
	return inspect.Observation{Raw: raw, Status: inspect.StatusPresent}
}

func TestJudge(t *testing.T) {
	parser := expiry.NewParser(time.UTC)
	absent := inspect.Observation{Status: inspect.StatusAbsent}
	fault := inspect.Observation{Status: inspect.StatusFault, Err: errors.New("cdp: session closed")}

	tests := []struct {
		name    string
		initial inspect.Observation
		renewed inspect.Observation
		want    *Error // nil for success
	}{
		{"extended by a day", present("2025-01-10 12:00"), present("2025-01-11 12:00"), nil},
		{"extended by a minute", present("2025-01-10 12:00"), present("2025-01-10 12:01"), nil},
		{"unchanged", present("2025-01-10 12:00"), present("2025-01-10 12:00"), ErrNotExtended},
		{"moved back", present("2025-01-10 12:00"), present("2025-01-09 12:00"), ErrNotExtended},
		{"same instant, other layout", present("2025-01-10 12:00"), present("10.01.2025 12:00"), ErrNotExtended},
		{"initial absent", absent, present("2025-01-11 12:00"), ErrObservationUnavailable},
		{"new absent", present("2025-01-10 12:00"), absent, ErrObservationUnavailable},
		{"both absent", absent, absent, ErrObservationUnavailable},
		{"initial unparseable", present("soon"), present("2025-01-11 12:00"), ErrObservationUnavailable},
		{"new unparseable", present("2025-01-10 12:00"), present("tomorrow-ish"), ErrObservationUnavailable},
		{"new fault", present("2025-01-10 12:00"), fault, ErrAutomationFault},
		{"initial fault", fault, present("2025-01-11 12:00"), ErrAutomationFault},
		{"absent beats fault", absent, fault, ErrObservationUnavailable},
		{"unparseable beats fault", fault, present("???"), ErrObservationUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Judge(parser, tt.initial, tt.renewed)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

// Success holds exactly when both readings parse and new is strictly later.
func TestJudgeSucceedsOnlyWhenLater(t *testing.T) {
	parser := expiry.NewParser(time.UTC)
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	for _, delta := range []time.Duration{-48 * time.Hour, -time.Minute, 0, time.Minute, time.Hour, 24 * time.Hour} {
		t.Run(delta.String(), func(t *testing.T) {
			initial := present(base.Format("2006-01-02 15:04"))
			renewed := present(base.Add(delta).Format("2006-01-02 15:04"))

			got := Judge(parser, initial, renewed)
			if delta > 0 {
				assert.Nil(t, got)
			} else {
				assert.ErrorIs(t, got, ErrNotExtended)
			}
		})
	}
}

func TestErrorIsMatchesKindOnly(t *testing.T) {
	cause := errors.New("boom")
	err := newError(KindControlNotFound, "renew button not found", cause)

	assert.ErrorIs(t, err, ErrControlNotFound)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTargetNotFound)
	assert.Equal(t, "ControlNotFound: renew button not found: boom", err.Error())

	wrapped := fmt.Errorf("run: %w", err)
	assert.ErrorIs(t, wrapped, ErrControlNotFound)
}

func TestClassify(t *testing.T) {
	inner := newError(KindNotExtended, "same", nil)
	assert.Same(t, inner, classify(fmt.Errorf("outer: %w", inner), "ignored"))

	plain := errors.New("socket hang up")
	got := classify(plain, "reload")
	assert.Equal(t, KindUnexpectedAutomationFault, got.Kind)
	assert.ErrorIs(t, got, plain)
	assert.Equal(t, "UnexpectedAutomationFault: reload: socket hang up", got.Error())
}

func TestStateTerminal(t *testing.T) {
	for s := StateInit; s <= StateFailed; s++ {
		assert.Equal(t, s == StateSucceeded || s == StateFailed, s.Terminal(), s.String())
	}
	assert.Equal(t, "Unknown", State(99).String())
}
