// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package election runs an instant-runoff count to completion and reports on it.

# Running

	e := election.New(ballots, candidates, election.WithTruncateAtNoConfidence(true))
	res, err := e.Run()

Each round counts the ballots against the current eliminated set. A candidate
holding more than half of the counted (non-exhausted) ballots wins. Otherwise
one candidate is eliminated using the tie-break cascade in package tally.
The run ends with one of these outcomes:

  - majority: a candidate passed the threshold
  - last_remaining: every other candidate was eliminated
  - tie_unresolved: the fewest-votes tie could not be broken
  - round_limit: more rounds than candidates, which indicates a bug

# Reports

RoundTally and FullResults recompute counts for any subset of ballots
(BySchool, ByYear) against the elimination sequence of the full run. In the
full table a blank cell marks a round after the candidate's elimination.
*/
package election
