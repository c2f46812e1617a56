// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ranked-pick/ballot"
)

func baseParams() Params {
	return Params{
		Voters:      200,
		Candidates:  []string{"A", "B", "C", ballot.NoConfidence},
		Weights:     []float64{0.4, 0.3, 0.2, 0.1},
		Variances:   []float64{0.05, 0.05, 0.05, 0.01},
		TimeFactors: []float64{0.2, -0.2, 0, 0},
		Correlation: [][]float64{
			{1, 0.5, -0.2, 0},
			{0.5, 1, 0.1, 0},
			{-0.2, 0.1, 1, 0},
			{0, 0, 0, 1},
		},
		Seed: 42,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"no candidates", func(p *Params) { p.Candidates = nil }},
		{"duplicate candidates", func(p *Params) { p.Candidates[1] = "A" }},
		{"negative voters", func(p *Params) { p.Voters = -1 }},
		{"weights length", func(p *Params) { p.Weights = p.Weights[:2] }},
		{"negative weight", func(p *Params) { p.Weights[0] = -1 }},
		{"variances length", func(p *Params) { p.Variances = []float64{0.1} }},
		{"time factors length", func(p *Params) { p.TimeFactors = []float64{0.1} }},
		{"correlation rows", func(p *Params) { p.Correlation = p.Correlation[:3] }},
		{"correlation columns", func(p *Params) { p.Correlation[2] = []float64{0} }},
		{"correlation range", func(p *Params) { p.Correlation[0][1] = 1.5 }},
	}

	require.NoError(t, baseParams().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mutate(&p)

			_, err := Ballots(p)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestBallots_Shape(t *testing.T) {
	p := baseParams()
	ballots, err := Ballots(p)
	require.NoError(t, err)
	require.Len(t, ballots, p.Voters)

	for i, b := range ballots {
		assert.Equal(t, i+1, b.VoterID)
		assert.Equal(t, "N/A", b.School)
		assert.Equal(t, len(p.Candidates), b.Len())

		choices := b.Choices()
		require.NotEmpty(t, choices[0], "first choice always set")

		seen := map[string]bool{}
		blank := false
		for _, c := range choices {
			if c == "" {
				blank = true
				continue
			}
			assert.False(t, blank, "ranks are filled in order")
			assert.False(t, seen[c], "candidate ranked twice")
			assert.Contains(t, p.Candidates, c)
			seen[c] = true
		}
	}
}

func TestBallots_Deterministic(t *testing.T) {
	choices := func(seed uint64) [][]string {
		p := baseParams()
		p.Seed = seed
		ballots, err := Ballots(p)
		require.NoError(t, err)
		out := make([][]string, len(ballots))
		for i, b := range ballots {
			out[i] = b.Choices()
		}
		return out
	}

	assert.Equal(t, choices(7), choices(7))
	assert.NotEqual(t, choices(7), choices(8))
}

func TestBallots_FullCorrelationRanksEveryone(t *testing.T) {
	p := baseParams()
	for i := range p.Correlation {
		for j := range p.Correlation[i] {
			p.Correlation[i][j] = 1
		}
	}

	ballots, err := Ballots(p)
	require.NoError(t, err)
	for _, b := range ballots {
		assert.NotContains(t, b.Choices(), "")
	}
}

func TestBallots_DominantWeight(t *testing.T) {
	p := Params{
		Voters:     300,
		Candidates: []string{"A", "B", "C"},
		Weights:    []float64{1e6, 0, 0},
		Seed:       1,
	}

	ballots, err := Ballots(p)
	require.NoError(t, err)
	for _, b := range ballots {
		first, err := b.Choice(1)
		require.NoError(t, err)
		assert.Equal(t, "A", first)
	}
}

func TestBallots_ZeroVoters(t *testing.T) {
	p := baseParams()
	p.Voters = 0

	ballots, err := Ballots(p)
	require.NoError(t, err)
	assert.Empty(t, ballots)
}

func TestBatches(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		n        int
		variance float64
		wantLen  int
	}{
		{"even split", 100, 4, 0, 4},
		{"with variance", 1000, 20, 0.2, 20},
		{"more batches than ballots", 3, 10, 0.5, 3},
		{"single batch", 50, 0, 0.2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ends := Batches(tt.total, tt.n, tt.variance, 9)

			require.Len(t, ends, tt.wantLen)
			assert.Equal(t, tt.total, ends[len(ends)-1])
			prev := 0
			for _, end := range ends {
				assert.Greater(t, end, prev)
				prev = end
			}
		})
	}

	assert.Equal(t, []int{25, 50, 75, 100}, Batches(100, 4, 0, 1))
	assert.Nil(t, Batches(0, 4, 0.2, 1))
}
