package renew

import (
	"context"

	"github.com/MrSnakeDoc/tickrenew/internal/browser"
)

// State is a step of a renewal run. A run only moves forward, one edge at a
// time, and ends in StateSucceeded or StateFailed.
type State int

const (
	StateInit State = iota
	StateAuthenticated
	StateTargetSelected
	StateBaselineCaptured
	StateActionInvoked
	StateResultObserved
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateAuthenticated:
		return "Authenticated"
	case StateTargetSelected:
		return "TargetSelected"
	case StateBaselineCaptured:
		return "BaselineCaptured"
	case StateActionInvoked:
		return "ActionInvoked"
	case StateResultObserved:
		return "ResultObserved"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// stepFunc performs one edge. It mutates the run record and returns a
// classified error to send the run to StateFailed.
type stepFunc func(ctx context.Context, page browser.Page, r *Result) *Error

type transition struct {
	to   State
	name string
	step stepFunc
}

// transitions returns the edge table. Every non-terminal state has exactly one
// outgoing edge, so a run makes at most one attempt at each step.
func (w *Workflow) transitions() map[State]transition {
	return map[State]transition{
		StateInit:             {to: StateAuthenticated, name: "authenticate", step: w.authenticate},
		StateAuthenticated:    {to: StateTargetSelected, name: "select target", step: w.selectTarget},
		StateTargetSelected:   {to: StateBaselineCaptured, name: "capture baseline", step: w.captureBaseline},
		StateBaselineCaptured: {to: StateActionInvoked, name: "invoke renewal", step: w.invokeRenewal},
		StateActionInvoked:    {to: StateResultObserved, name: "observe result", step: w.observeResult},
		StateResultObserved:   {to: StateSucceeded, name: "judge", step: w.judge},
	}
}
