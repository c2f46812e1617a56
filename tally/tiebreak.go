// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"fmt"

	"github.com/danielhkuo/ranked-pick/ballot"
)

// Elimination is the outcome of choosing a candidate to eliminate.
type Elimination struct {
	// Candidate is empty when the tie could not be broken.
	Candidate string `json:"candidate,omitempty"`
	// Tied holds the candidates sharing the fewest votes this round, or
	// the ones still level after every comparison when unresolved.
	Tied []string `json:"tied"`
	// DecidedBy names the comparison that separated the candidates.
	DecidedBy string `json:"decided_by,omitempty"`
}

// Resolved reports whether a single candidate was chosen.
func (e Elimination) Resolved() bool {
	return e.Candidate != ""
}

// ChooseElimination picks the candidate to eliminate in the round following
// prior, given that round's vote counts.
//
// Candidates with the fewest votes are compared, in order, by:
//
//  1. lower-rank support this round (rank 2, 3, ...);
//  2. for each earlier round, most recent first, votes in that round and
//     then support at every rank in that round.
//
// At each step only the candidates with the minimum value survive. If more
// than one candidate survives every comparison the result is unresolved;
// the tie is never broken arbitrarily.
func (t *Tally) ChooseElimination(ballots []*ballot.Ballot, prior []string, current Counts) Elimination {
	eliminated := ballot.NewSet(prior...)
	round := len(prior) + 1

	tied := t.fewest(current, eliminated)
	result := Elimination{Tied: append([]string(nil), tied...)}

	switch len(tied) {
	case 0:
		t.logger.Warn("no active candidates to eliminate", "round", round)
		return result
	case 1:
		result.Candidate = tied[0]
		result.DecidedBy = "votes"
		return result
	}

	t.logger.Info("tie for fewest votes",
		"round", round,
		"candidates", tied,
		"votes", current[tied[0]],
	)

	// Rank 1 this round is exactly the count compared above.
	var rank int
	tied, rank = narrowByRank(tied, t.RankDistribution(ballots, eliminated), 2)
	if len(tied) == 1 {
		result.Candidate = tied[0]
		result.DecidedBy = fmt.Sprintf("round %d rank %d", round, rank)
		return result
	}

	for p := len(prior); p >= 1; p-- {
		past := ballot.NewSet(prior[:p-1]...)

		votes := t.Count(ballots, past)
		tied = narrow(tied, func(c string) (int, bool) {
			n, ok := votes[c]
			return n, ok
		})
		if len(tied) == 1 {
			result.Candidate = tied[0]
			result.DecidedBy = fmt.Sprintf("round %d votes", p)
			return result
		}

		tied, rank = narrowByRank(tied, t.RankDistribution(ballots, past), 1)
		if len(tied) == 1 {
			result.Candidate = tied[0]
			result.DecidedBy = fmt.Sprintf("round %d rank %d", p, rank)
			return result
		}
	}

	t.logger.Warn("tie unresolved",
		"round", round,
		"candidates", tied,
	)
	result.Tied = tied
	return result
}

// fewest returns the active candidates with the minimum count, in
// candidate order.
func (t *Tally) fewest(current Counts, eliminated ballot.Set) []string {
	lowest := -1
	var tied []string
	for _, c := range t.candidates {
		if eliminated.Has(c) {
			continue
		}
		n, ok := current[c]
		if !ok {
			continue
		}
		switch {
		case lowest < 0 || n < lowest:
			lowest = n
			tied = []string{c}
		case n == lowest:
			tied = append(tied, c)
		}
	}
	return tied
}

// narrowByRank narrows tied by each rank position of dist from the given
// 1-indexed rank onward. A position that some tied candidate lacks is
// skipped. It returns the survivors and the rank that left a single
// candidate, or 0.
func narrowByRank(tied []string, dist Distribution, from int) ([]string, int) {
	longest := 0
	for _, c := range tied {
		longest = max(longest, len(dist[c]))
	}

	for rank := from; rank <= longest; rank++ {
		pos := rank - 1
		tied = narrow(tied, func(c string) (int, bool) {
			slots := dist[c]
			if pos >= len(slots) {
				return 0, false
			}
			return slots[pos], true
		})
		if len(tied) == 1 {
			return tied, rank
		}
	}
	return tied, 0
}

// narrow keeps the candidates with the minimum value. If any candidate has
// no value the comparison is skipped and tied is returned unchanged.
func narrow(tied []string, value func(string) (int, bool)) []string {
	values := make([]int, len(tied))
	lowest := 0
	for i, c := range tied {
		v, ok := value(c)
		if !ok {
			return tied
		}
		values[i] = v
		if i == 0 || v < lowest {
			lowest = v
		}
	}

	kept := make([]string, 0, len(tied))
	for i, c := range tied {
		if values[i] == lowest {
			kept = append(kept, c)
		}
	}
	return kept
}
