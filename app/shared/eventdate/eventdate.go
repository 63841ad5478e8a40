// Package eventdate turns operator input such as "2026-09-30", "yesterday"
// or "last friday 7pm" into an event timestamp.
package eventdate

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// layouts are tried before natural-language parsing.
var layouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parser resolves event dates relative to a clock in a fixed timezone.
type Parser struct {
	TimezoneMap map[string]string
	parser      *when.Parser
}

// NewParser creates a Parser with the US timezone abbreviations.
func NewParser() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{
		TimezoneMap: map[string]string{
			"UTC": "UTC",
			"PST": "America/Los_Angeles",
			"PDT": "America/Los_Angeles",
			"MST": "America/Denver",
			"MDT": "America/Denver",
			"CST": "America/Chicago",
			"CDT": "America/Chicago",
			"EST": "America/New_York",
			"EDT": "America/New_York",
		},
		parser: w,
	}
}

// Location resolves an abbreviation or IANA name. Empty means UTC.
func (p *Parser) Location(timezone string) (*time.Location, error) {
	tz := strings.TrimSpace(timezone)
	if tz == "" {
		return time.UTC, nil
	}
	if full, ok := p.TimezoneMap[strings.ToUpper(tz)]; ok {
		tz = full
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %s", timezone)
	}
	return loc, nil
}

// Parse returns the UTC instant input refers to, read in timezone relative
// to now. Empty input means now. Past and future dates are both accepted.
func (p *Parser) Parse(input, timezone string, now time.Time) (time.Time, error) {
	loc, err := p.Location(timezone)
	if err != nil {
		return time.Time{}, err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return now.UTC(), nil
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return t.UTC(), nil
		}
	}

	r, err := p.parser.Parse(strings.ToLower(input), now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse date %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize date format: %s", input)
	}
	return r.Time.In(loc).UTC(), nil
}
