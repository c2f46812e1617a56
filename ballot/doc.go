// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ballot defines the ranked ballot record used by the tabulator.

# Construction

A ballot has a fixed number of preference slots, set once:

	b := ballot.New(42, "Weinberg", 2027, 5)
	_ = b.SetChoice(1, "Alice & Bob")
	_ = b.SetChoice(2, ballot.NoConfidence)

Ranks are 1-indexed. A rank outside [1, Len()] returns ErrInvalidRank.

# Resolution

Given the set of eliminated candidates, a ballot resolves to its effective
vote (ResolveVote) or to its full remaining preference order
(PreferenceOrder). Both optionally stop at the No Confidence sentinel:

	vote, ok := b.ResolveVote(ballot.NewSet("Carol"), true)

A ballot with no remaining choice is exhausted and does not count.
*/
package ballot
