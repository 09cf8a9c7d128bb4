// Package season resolves which seasonal ticket is in circulation at a
// given moment.
package season

import (
	_ "embed"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultTicket is paid out when no season covers a timestamp.
const DefaultTicket = "Bertie Ticket"

//go:embed seasons.yaml
var defaultSeasonsYAML []byte

// Season is one ticket period, inclusive on both ends (unix ms).
type Season struct {
	Name   string `yaml:"name"`
	Ticket string `yaml:"ticket"`
	Start  int64  `yaml:"start"`
	End    int64  `yaml:"end"`
}

// Calendar is an ordered list of seasons.
type Calendar struct {
	Seasons []Season `yaml:"seasons"`
}

// Default returns the embedded calendar.
func Default() *Calendar {
	cal, err := Parse(defaultSeasonsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded seasons.yaml is invalid: %v", err))
	}
	return cal
}

// Load reads a calendar from r.
func Load(r io.Reader) (*Calendar, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read season calendar: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML calendar and checks that seasons do not overlap.
func Parse(data []byte) (*Calendar, error) {
	var cal Calendar
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("failed to parse season calendar: %w", err)
	}
	sort.Slice(cal.Seasons, func(i, j int) bool {
		return cal.Seasons[i].Start < cal.Seasons[j].Start
	})
	for i, s := range cal.Seasons {
		if s.Ticket == "" {
			return nil, fmt.Errorf("season %q has no ticket", s.Name)
		}
		if s.Start > s.End {
			return nil, fmt.Errorf("season %q starts after it ends", s.Name)
		}
		if i > 0 && s.Start <= cal.Seasons[i-1].End {
			return nil, fmt.Errorf("season %q overlaps %q", s.Name, cal.Seasons[i-1].Name)
		}
	}
	return &cal, nil
}

// At returns the season covering at.
func (c *Calendar) At(at int64) (Season, bool) {
	if c == nil {
		return Season{}, false
	}
	for _, s := range c.Seasons {
		if at >= s.Start && at <= s.End {
			return s, true
		}
	}
	return Season{}, false
}

// TicketAt returns the ticket for the season covering at. Between or after
// seasons the most recently started season's ticket is used; before the
// first season it is DefaultTicket.
func (c *Calendar) TicketAt(at int64) string {
	if s, ok := c.At(at); ok {
		return s.Ticket
	}
	ticket := DefaultTicket
	if c == nil {
		return ticket
	}
	for _, s := range c.Seasons {
		if s.Start > at {
			break
		}
		ticket = s.Ticket
	}
	return ticket
}
