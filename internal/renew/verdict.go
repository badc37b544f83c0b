package renew

import (
	"fmt"
	"time"

	"github.com/MrSnakeDoc/tickrenew/internal/expiry"
	"github.com/MrSnakeDoc/tickrenew/internal/inspect"
)

// Judge decides whether the renewal extended the expiration.
//
// An absent or unparseable reading on either side yields
// ObservationUnavailable whatever the other side holds. Otherwise a query
// fault on either side is an automation fault. Success needs renewed strictly
// after initial; anything else is NotExtended.
func Judge(parser *expiry.Parser, initial, renewed inspect.Observation) *Error {
	before, beforeErr := parseObservation(parser, "initial", initial)
	after, afterErr := parseObservation(parser, "new", renewed)

	for _, err := range []*Error{beforeErr, afterErr} {
		if err != nil && err.Kind == KindObservationUnavailable {
			return err
		}
	}
	for _, err := range []*Error{beforeErr, afterErr} {
		if err != nil {
			return err
		}
	}

	if !after.After(before) {
		return newError(KindNotExtended,
			fmt.Sprintf("expiration not extended (initial %q, new %q)", initial.Raw, renewed.Raw), nil)
	}
	return nil
}

func parseObservation(parser *expiry.Parser, label string, obs inspect.Observation) (time.Time, *Error) {
	switch obs.Status {
	case inspect.StatusPresent:
		t, err := parser.Parse(obs.Raw)
		if err != nil {
			return time.Time{}, newError(KindObservationUnavailable, label+" expiration unparseable", err)
		}
		return t, nil
	case inspect.StatusFault:
		return time.Time{}, newError(KindUnexpectedAutomationFault, "reading "+label+" expiration", obs.Err)
	default:
		return time.Time{}, newError(KindObservationUnavailable, label+" expiration missing", nil)
	}
}
