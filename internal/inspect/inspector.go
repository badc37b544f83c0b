// Package inspect reads the few facts the renewer needs from the current page.
// Every query is a single snapshot; waiting is the caller's job.
package inspect

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/tickrenew/internal/browser"
	"github.com/MrSnakeDoc/tickrenew/internal/site"
)

// ObservationStatus tells a genuinely absent value apart from a failed query.
type ObservationStatus int

const (
	StatusAbsent ObservationStatus = iota
	StatusPresent
	StatusFault
)

func (s ObservationStatus) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusFault:
		return "fault"
	default:
		return "absent"
	}
}

// Observation is one reading of the expiration text.
type Observation struct {
	Raw    string
	Status ObservationStatus
	Err    error // set when Status is StatusFault
}

// Present reports whether a non-empty reading was taken.
func (o Observation) Present() bool { return o.Status == StatusPresent }

func (o Observation) String() string {
	switch o.Status {
	case StatusPresent:
		return o.Raw
	case StatusFault:
		return fmt.Sprintf("<fault: %v>", o.Err)
	default:
		return "<absent>"
	}
}

// Inspector queries pages using a site profile's selectors.
type Inspector struct {
	profile *site.Profile
}

// New creates an inspector for profile.
func New(profile *site.Profile) *Inspector {
	return &Inspector{profile: profile}
}

// FindServerCards returns the server cards in document order, possibly none.
func (i *Inspector) FindServerCards(ctx context.Context, page browser.Page) ([]browser.Element, error) {
	return page.Query(ctx, i.profile.Selectors.ServerCard)
}

// FindRenewControls returns the renew buttons in document order, possibly none.
func (i *Inspector) FindRenewControls(ctx context.Context, page browser.Page) ([]browser.Element, error) {
	return page.QueryXPath(ctx, i.profile.RenewControlXPath())
}

// ReadExpiration reads the first expiration element with the label prefix removed.
func (i *Inspector) ReadExpiration(ctx context.Context, page browser.Page) Observation {
	els, err := page.Query(ctx, i.profile.Selectors.Expiration)
	if err != nil {
		return Observation{Status: StatusFault, Err: fmt.Errorf("query expiration: %w", err)}
	}
	if len(els) == 0 {
		return Observation{Status: StatusAbsent}
	}

	text, err := els[0].Text(ctx)
	if err != nil {
		return Observation{Status: StatusFault, Err: fmt.Errorf("read expiration text: %w", err)}
	}

	raw := i.profile.StripExpirationPrefix(text)
	if raw == "" {
		return Observation{Status: StatusAbsent}
	}
	return Observation{Raw: raw, Status: StatusPresent}
}
