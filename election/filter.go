// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"strings"

	"github.com/danielhkuo/ranked-pick/ballot"
)

// Filter selects the ballots a report is computed over. Filters narrow the
// view only; the elimination sequence always comes from the full run.
type Filter func(*ballot.Ballot) bool

// BySchool keeps ballots from the named school, ignoring case.
func BySchool(school string) Filter {
	return func(b *ballot.Ballot) bool {
		return strings.EqualFold(b.School, school)
	}
}

// ByYear keeps ballots cast in year.
func ByYear(year int) Filter {
	return func(b *ballot.Ballot) bool {
		return b.Year == year
	}
}

func (e *Election) filtered(filters []Filter) []*ballot.Ballot {
	if len(filters) == 0 {
		return e.ballots
	}
	out := make([]*ballot.Ballot, 0, len(e.ballots))
next:
	for _, b := range e.ballots {
		for _, f := range filters {
			if f != nil && !f(b) {
				continue next
			}
		}
		out = append(out, b)
	}
	return out
}
