// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"errors"
	"log/slog"

	"github.com/danielhkuo/ranked-pick/ballot"
	"github.com/danielhkuo/ranked-pick/tally"
)

// Outcome is the state of an election run
type Outcome string

const (
	OutcomeRunning       Outcome = "running"
	OutcomeMajority      Outcome = "majority"
	OutcomeLastRemaining Outcome = "last_remaining"
	OutcomeTieUnresolved Outcome = "tie_unresolved"
	OutcomeRoundLimit    Outcome = "round_limit"
)

var (
	ErrNoCandidates    = errors.New("election has no candidates")
	ErrNotRun          = errors.New("election has not been run")
	ErrRoundOutOfRange = errors.New("round out of range")
)

// Result summarises a completed run.
type Result struct {
	Winner     string              `json:"winner,omitempty"`
	Outcome    Outcome             `json:"outcome"`
	RoundCount int                 `json:"round_count"`
	Eliminated []string            `json:"eliminated"`
	Decisions  []tally.Elimination `json:"decisions"`
}

// HasWinner reports whether the run produced a winner.
func (r Result) HasWinner() bool {
	return r.Winner != ""
}

type Option func(*Election)

// WithTruncateAtNoConfidence stops every ballot at its No Confidence entry.
func WithTruncateAtNoConfidence(on bool) Option {
	return func(e *Election) { e.truncate = on }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Election) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Election runs an instant-runoff count over a fixed set of ballots.
// Ballots and candidates are never modified. Run owns all mutable state.
type Election struct {
	ballots    []*ballot.Ballot
	candidates []string
	truncate   bool
	logger     *slog.Logger
	tally      *tally.Tally

	eliminated []string
	decisions  []tally.Elimination
	roundCount int
	winner     string
	outcome    Outcome
	done       bool
}

// New prepares an election. Duplicate candidate names are collapsed; the
// remaining order is kept for default reporting only.
func New(ballots []*ballot.Ballot, candidates []string, opts ...Option) *Election {
	e := &Election{
		ballots:    append([]*ballot.Ballot(nil), ballots...),
		candidates: dedupe(candidates),
		logger:     slog.Default(),
		outcome:    OutcomeRunning,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.tally = tally.New(e.candidates,
		tally.WithTruncateAtNoConfidence(e.truncate),
		tally.WithLogger(e.logger),
	)
	return e
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Run tabulates rounds until a terminal outcome. Calling Run again starts
// over from the original ballots.
func (e *Election) Run() (Result, error) {
	if len(e.candidates) == 0 {
		return Result{}, ErrNoCandidates
	}

	e.reset()
	for e.outcome == OutcomeRunning {
		e.round()
	}
	e.done = true

	switch e.outcome {
	case OutcomeRoundLimit:
		e.logger.Error("round limit exceeded",
			"rounds", e.roundCount,
			"candidates", len(e.candidates),
			"eliminated", e.eliminated,
		)
	case OutcomeTieUnresolved:
		e.logger.Warn("election ended in unresolved tie",
			"rounds", e.roundCount,
			"tied", e.decisions[len(e.decisions)-1].Tied,
		)
	default:
		e.logger.Info("election complete",
			"winner", e.winner,
			"outcome", e.outcome,
			"rounds", e.roundCount,
		)
	}

	return e.Result(), nil
}

func (e *Election) reset() {
	e.eliminated = nil
	e.decisions = nil
	e.roundCount = 0
	e.winner = ""
	e.outcome = OutcomeRunning
	e.done = false
}

// round performs one tally-then-eliminate cycle.
func (e *Election) round() {
	eliminated := ballot.NewSet(e.eliminated...)
	counts := e.tally.Count(e.ballots, eliminated)
	e.roundCount++

	// Exhausted ballots are left out of the total, so they lower the
	// majority threshold as well.
	total := counts.Total()
	active := e.tally.Active(eliminated)

	e.logger.Debug("round tallied",
		"round", e.roundCount,
		"counted", total,
		"exhausted", len(e.ballots)-total,
	)

	for _, c := range active {
		if 2*counts[c] > total {
			e.finish(OutcomeMajority, c)
			return
		}
	}

	if len(active) == 1 {
		e.finish(OutcomeLastRemaining, active[0])
		return
	}

	choice := e.tally.ChooseElimination(e.ballots, e.eliminated, counts)
	e.decisions = append(e.decisions, choice)
	if !choice.Resolved() {
		e.finish(OutcomeTieUnresolved, "")
		return
	}

	e.eliminated = append(e.eliminated, choice.Candidate)
	e.logger.Info("candidate eliminated",
		"round", e.roundCount,
		"candidate", choice.Candidate,
		"votes", counts[choice.Candidate],
		"decided_by", choice.DecidedBy,
	)

	if len(e.eliminated) == len(e.candidates)-1 {
		e.finish(OutcomeLastRemaining, e.tally.Active(ballot.NewSet(e.eliminated...))[0])
		return
	}

	if e.roundCount > len(e.candidates) {
		e.finish(OutcomeRoundLimit, "")
	}
}

func (e *Election) finish(outcome Outcome, winner string) {
	e.outcome = outcome
	e.winner = winner
}

// Result returns a copy of the run's outcome.
func (e *Election) Result() Result {
	return Result{
		Winner:     e.winner,
		Outcome:    e.outcome,
		RoundCount: e.roundCount,
		Eliminated: e.Eliminated(),
		Decisions:  append([]tally.Elimination{}, e.decisions...),
	}
}

// Winner returns the winner, if any.
func (e *Election) Winner() (string, bool) {
	return e.winner, e.winner != ""
}

func (e *Election) RoundCount() int { return e.roundCount }

func (e *Election) Outcome() Outcome { return e.outcome }

// Eliminated returns the candidates in elimination order, earliest first.
func (e *Election) Eliminated() []string {
	return append([]string{}, e.eliminated...)
}

// Candidates returns the candidate list in its original order.
func (e *Election) Candidates() []string {
	return append([]string{}, e.candidates...)
}

// BallotCount returns the number of ballots in the election.
func (e *Election) BallotCount() int {
	return len(e.ballots)
}
