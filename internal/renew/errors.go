package renew

import (
	"errors"
	"fmt"
)

// Kind classifies why a run failed.
type Kind int

const (
	KindUnexpectedAutomationFault Kind = iota
	KindConfigurationMissing
	KindAuthenticationFailed
	KindTargetNotFound
	KindControlNotFound
	KindObservationUnavailable
	KindNotExtended
)

func (k Kind) String() string {
	switch k {
	case KindConfigurationMissing:
		return "ConfigurationMissing"
	case KindAuthenticationFailed:
		return "AuthenticationFailed"
	case KindTargetNotFound:
		return "TargetNotFound"
	case KindControlNotFound:
		return "ControlNotFound"
	case KindObservationUnavailable:
		return "ObservationUnavailable"
	case KindNotExtended:
		return "NotExtended"
	default:
		return "UnexpectedAutomationFault"
	}
}

// Error is a classified run failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, ErrNotExtended) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrConfigurationMissing   = &Error{Kind: KindConfigurationMissing}
	ErrAuthenticationFailed   = &Error{Kind: KindAuthenticationFailed}
	ErrTargetNotFound         = &Error{Kind: KindTargetNotFound}
	ErrControlNotFound        = &Error{Kind: KindControlNotFound}
	ErrObservationUnavailable = &Error{Kind: KindObservationUnavailable}
	ErrNotExtended            = &Error{Kind: KindNotExtended}
	ErrAutomationFault        = &Error{Kind: KindUnexpectedAutomationFault}
)

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// classify turns any error into an *Error, keeping an existing classification.
func classify(err error, msg string) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return newError(KindUnexpectedAutomationFault, msg, err)
}
