// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/danielhkuo/ranked-pick/ballot"
)

// RoundRow is one candidate's line in a single-round report.
type RoundRow struct {
	Candidate string `json:"candidate"`
	Votes     int    `json:"votes"`
	// Ranks holds how many ballots place the candidate at each position
	// among the candidates active in the round.
	Ranks []int `json:"ranks"`
}

// RoundReport is the table for one round.
type RoundReport struct {
	Round int        `json:"round"`
	Total int        `json:"total"`
	Rows  []RoundRow `json:"rows"`
}

// Cell is a vote count in the full results table. Blank cells mark rounds
// after the candidate was eliminated.
type Cell struct {
	Votes int
	Blank bool
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Blank {
		return []byte("null"), nil
	}
	return json.Marshal(c.Votes)
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Cell{Blank: true}
		return nil
	}
	c.Blank = false
	return json.Unmarshal(data, &c.Votes)
}

// ResultRow is one candidate's counts across every round.
type ResultRow struct {
	Candidate string `json:"candidate"`
	Rounds    []Cell `json:"rounds"`
}

// FullResults is the round-by-round table of a completed run.
type FullResults struct {
	Rounds int         `json:"rounds"`
	Totals []int       `json:"totals"`
	Rows   []ResultRow `json:"rows"`
}

// RoundTally recomputes round (1-based) over the ballots passing filters,
// using the elimination sequence of the full run. Rows are ordered by votes,
// highest first, with ties in candidate order.
func (e *Election) RoundTally(round int, filters ...Filter) (RoundReport, error) {
	if !e.done {
		return RoundReport{}, ErrNotRun
	}
	if round < 1 || round > e.roundCount {
		return RoundReport{}, fmt.Errorf("%w: %d not in [1, %d]", ErrRoundOutOfRange, round, e.roundCount)
	}

	snap := e.tally.Snapshot(e.filtered(filters), e.eliminatedBefore(round))

	rows := make([]RoundRow, 0, len(snap.Active))
	for _, c := range snap.Active {
		rows = append(rows, RoundRow{
			Candidate: c,
			Votes:     snap.Votes[c],
			Ranks:     snap.Distribution[c],
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Votes > rows[j].Votes
	})

	return RoundReport{
		Round: round,
		Total: snap.Votes.Total(),
		Rows:  rows,
	}, nil
}

// FullResults builds the round-by-round table over the ballots passing
// filters. Rows list the winner first, then candidates that were never
// eliminated, then the eliminated ones, most recently eliminated first.
func (e *Election) FullResults(filters ...Filter) (FullResults, error) {
	if !e.done {
		return FullResults{}, ErrNotRun
	}

	ballots := e.filtered(filters)
	order := e.reportOrder()

	rows := make([]ResultRow, len(order))
	for i, c := range order {
		rows[i] = ResultRow{Candidate: c, Rounds: make([]Cell, e.roundCount)}
	}
	totals := make([]int, e.roundCount)

	for r := 1; r <= e.roundCount; r++ {
		eliminated := e.eliminatedBefore(r)
		counts := e.tally.Count(ballots, eliminated)
		totals[r-1] = counts.Total()
		for i, c := range order {
			if eliminated.Has(c) {
				rows[i].Rounds[r-1] = Cell{Blank: true}
				continue
			}
			rows[i].Rounds[r-1] = Cell{Votes: counts[c]}
		}
	}

	return FullResults{
		Rounds: e.roundCount,
		Totals: totals,
		Rows:   rows,
	}, nil
}

// eliminatedBefore returns the set in force while round was counted.
func (e *Election) eliminatedBefore(round int) ballot.Set {
	return ballot.NewSet(e.eliminated[:round-1]...)
}

func (e *Election) reportOrder() []string {
	out := make([]string, 0, len(e.candidates))
	if e.winner != "" {
		out = append(out, e.winner)
	}

	gone := ballot.NewSet(e.eliminated...)
	for _, c := range e.candidates {
		if c != e.winner && !gone.Has(c) {
			out = append(out, c)
		}
	}

	for i := len(e.eliminated) - 1; i >= 0; i-- {
		out = append(out, e.eliminated[i])
	}
	return out
}
