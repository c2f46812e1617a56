// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package generate draws synthetic ranked ballots for rehearsals and tests.

Each voter's first choice is drawn from the candidate weights after a
per-candidate time drift and gaussian jitter. Every other candidate is
ranked with probability 0.2, raised by its positive correlation with the
first choice, and the ranked ones are shuffled below the first choice.

	ballots, err := generate.Ballots(generate.Params{
		Voters:     500,
		Candidates: []string{"A", "B", "No Confidence"},
		Weights:    []float64{0.5, 0.4, 0.1},
		Seed:       7,
	})

Batches splits a ballot stream into uneven reveal batches for a simulated
election night.
*/
package generate
