// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally aggregates ranked ballots for one round of an instant-runoff
count and chooses which candidate to eliminate.

# Counting

A Tally is built over the election's candidate list:

	t := tally.New(candidates, tally.WithTruncateAtNoConfidence(true))
	counts := t.Count(ballots, ballot.NewSet(eliminated...))

Count gives each active candidate the ballots whose effective vote resolves
to it. RankDistribution gives, per candidate, how many ballots rank it 1st,
2nd, ... among the active candidates. Neither keeps state between calls.

# Elimination

ChooseElimination takes the current round's counts explicitly:

	e := t.ChooseElimination(ballots, eliminated, counts)
	if !e.Resolved() {
		// persistent tie: report it, never pick at random
	}

Ties for fewest votes are broken by lower-rank support in the current round,
then by votes and rank support in each earlier round, most recent first.

# Data integrity

A vote or ranking that names a candidate outside the active set is logged
at warn level and dropped.
*/
package tally
