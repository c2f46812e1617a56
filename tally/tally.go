// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"log/slog"

	"github.com/danielhkuo/ranked-pick/ballot"
)

// Counts maps each active candidate to the number of ballots whose effective
// vote resolves to it.
type Counts map[string]int

// Total is the number of counted (non-exhausted) ballots.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Distribution maps each active candidate to per-rank counts: slot k holds
// the number of ballots ranking the candidate (k+1)-th among active
// candidates.
type Distribution map[string][]int

// Snapshot is one round's view of the ballots for a given eliminated set.
type Snapshot struct {
	Active       []string
	Votes        Counts
	Distribution Distribution
}

type Option func(*Tally)

// WithTruncateAtNoConfidence enables the No Confidence truncation rule.
func WithTruncateAtNoConfidence(on bool) Option {
	return func(t *Tally) { t.truncate = on }
}

// WithLogger sets the logger used for data-integrity warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tally) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Tally aggregates ballots for one election's candidate list. It holds no
// per-round state; every method computes a fresh result from its arguments.
type Tally struct {
	candidates []string
	truncate   bool
	logger     *slog.Logger
}

// New creates a Tally over candidates. The candidate order is used for
// deterministic iteration only and carries no preference weight.
func New(candidates []string, opts ...Option) *Tally {
	t := &Tally{
		candidates: append([]string(nil), candidates...),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Active returns the candidates not in eliminated, in candidate order.
func (t *Tally) Active(eliminated ballot.Set) []string {
	active := make([]string, 0, len(t.candidates))
	for _, c := range t.candidates {
		if !eliminated.Has(c) {
			active = append(active, c)
		}
	}
	return active
}

// Count resolves every ballot against eliminated and counts the votes for
// each active candidate. Exhausted ballots are not counted. A vote naming a
// candidate outside the active set is logged and dropped.
func (t *Tally) Count(ballots []*ballot.Ballot, eliminated ballot.Set) Counts {
	counts := make(Counts, len(t.candidates))
	for _, c := range t.Active(eliminated) {
		counts[c] = 0
	}

	for _, b := range ballots {
		vote, ok := b.ResolveVote(eliminated, t.truncate)
		if !ok {
			continue
		}
		if _, active := counts[vote]; !active {
			t.logger.Warn("vote for unknown candidate dropped",
				"voter_id", b.VoterID,
				"candidate", vote,
			)
			continue
		}
		counts[vote]++
	}

	return counts
}

// RankDistribution counts, for each active candidate, how many ballots
// place it at each position of their remaining preference order.
func (t *Tally) RankDistribution(ballots []*ballot.Ballot, eliminated ballot.Set) Distribution {
	active := t.Active(eliminated)
	dist := make(Distribution, len(active))
	for _, c := range active {
		dist[c] = make([]int, len(active))
	}

	for _, b := range ballots {
		for pos, name := range b.PreferenceOrder(eliminated, t.truncate) {
			slots, ok := dist[name]
			if !ok {
				t.logger.Warn("ranked candidate not active",
					"voter_id", b.VoterID,
					"candidate", name,
				)
				continue
			}
			if pos >= len(slots) {
				t.logger.Warn("rank position out of range",
					"voter_id", b.VoterID,
					"candidate", name,
					"position", pos+1,
				)
				continue
			}
			slots[pos]++
		}
	}

	return dist
}

// Snapshot computes both the vote counts and the rank distribution.
func (t *Tally) Snapshot(ballots []*ballot.Ballot, eliminated ballot.Set) Snapshot {
	return Snapshot{
		Active:       t.Active(eliminated),
		Votes:        t.Count(ballots, eliminated),
		Distribution: t.RankDistribution(ballots, eliminated),
	}
}
