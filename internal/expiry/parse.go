// Package expiry parses the expiration timestamps scraped from the panel.
package expiry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("empty expiration text")

// layouts are tried before the general parser; they cover the panel's
// day-first renderings that dateparse would read month-first.
var layouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006 15:04:05",
	"2 January 2006 15:04",
	"2 Jan 2006 15:04",
}

// Parser turns scraped text into a point in time.
type Parser struct {
	loc *time.Location
}

// NewParser returns a parser that interprets zone-less text in loc.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc}
}

// Parse is lenient: surrounding whitespace, repeated spaces and a trailing
// comma or period are ignored, and most common date renderings are accepted.
func (p *Parser) Parse(raw string) (time.Time, error) {
	text := normalize(raw)
	if text == "" {
		return time.Time{}, ErrEmpty
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, p.loc); err == nil {
			return t, nil
		}
	}

	t, err := dateparse.ParseIn(text, p.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable expiration %q: %w", raw, err)
	}
	return t, nil
}

func normalize(raw string) string {
	text := strings.Join(strings.Fields(raw), " ")
	return strings.TrimRight(text, ",.")
}
