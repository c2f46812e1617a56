// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package generate

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/go-playground/validator/v10"

	"github.com/danielhkuo/ranked-pick/ballot"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var ErrInvalidParams = errors.New("invalid generator parameters")

const (
	minWeight  = 1e-6
	baseRankP  = 0.2
	corrRankP  = 0.8
	seedStream = 0x9e3779b97f4a7c15
)

// Params controls synthetic ballot generation. Weights, Variances and
// TimeFactors are per candidate; Correlation is a candidates x candidates
// matrix in [-1, 1]. Nil Variances, TimeFactors or Correlation mean zero.
type Params struct {
	Voters      int         `validate:"min=0"`
	Candidates  []string    `validate:"required,min=1,unique,dive,required"`
	Weights     []float64   `validate:"required,dive,gte=0"`
	Variances   []float64   `validate:"omitempty,dive,gte=0"`
	Correlation [][]float64 `validate:"omitempty,dive,dive,gte=-1,lte=1"`
	TimeFactors []float64
	Seed        uint64
	School      string
	Year        int
}

// Validate checks field constraints and that the per-candidate slices line
// up with Candidates.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	n := len(p.Candidates)
	if len(p.Weights) != n {
		return fmt.Errorf("%w: %d weights for %d candidates", ErrInvalidParams, len(p.Weights), n)
	}
	if p.Variances != nil && len(p.Variances) != n {
		return fmt.Errorf("%w: %d variances for %d candidates", ErrInvalidParams, len(p.Variances), n)
	}
	if p.TimeFactors != nil && len(p.TimeFactors) != n {
		return fmt.Errorf("%w: %d time factors for %d candidates", ErrInvalidParams, len(p.TimeFactors), n)
	}
	if p.Correlation != nil {
		if len(p.Correlation) != n {
			return fmt.Errorf("%w: correlation has %d rows, want %d", ErrInvalidParams, len(p.Correlation), n)
		}
		for i, row := range p.Correlation {
			if len(row) != n {
				return fmt.Errorf("%w: correlation row %d has %d columns, want %d", ErrInvalidParams, i, len(row), n)
			}
		}
	}
	return nil
}

// Ballots draws p.Voters ballots. The same Params always yield the same
// ballots.
func Ballots(p Params) ([]*ballot.Ballot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^seedStream))
	n := len(p.Candidates)
	school := p.School
	if school == "" {
		school = "N/A"
	}

	out := make([]*ballot.Ballot, 0, p.Voters)
	for i := 0; i < p.Voters; i++ {
		weights := make([]float64, n)
		for c := range weights {
			w := p.Weights[c]
			if p.TimeFactors != nil {
				tf := p.TimeFactors[c]
				w *= 1 - tf/2 + tf*float64(i)/float64(p.Voters)
			}
			if p.Variances != nil {
				w += rng.NormFloat64() * p.Variances[c]
			}
			weights[c] = max(minWeight, w)
		}

		first := pick(rng, weights)

		var rest []string
		for c, name := range p.Candidates {
			if c == first {
				continue
			}
			prob := baseRankP
			if p.Correlation != nil {
				prob += corrRankP * max(0, p.Correlation[first][c])
			}
			if rng.Float64() < prob {
				rest = append(rest, name)
			}
		}
		rng.Shuffle(len(rest), func(a, b int) { rest[a], rest[b] = rest[b], rest[a] })

		b := ballot.New(i+1, school, p.Year, n)
		for rank, name := range append([]string{p.Candidates[first]}, rest...) {
			if err := b.SetChoice(rank+1, name); err != nil {
				return nil, err
			}
		}
		out = append(out, b)
	}

	return out, nil
}

// pick returns an index drawn in proportion to weights.
func pick(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// Batches splits total ballots into n reveal batches of roughly equal size,
// each varying by up to variance of the average. It returns the cumulative
// end index of each batch; the last is always total.
func Batches(total, n int, variance float64, seed uint64) []int {
	if total <= 0 {
		return nil
	}
	n = min(max(n, 1), total)

	rng := rand.New(rand.NewPCG(seed, seed^seedStream))
	avg := total / n
	spread := int(float64(avg) * variance)

	ends := make([]int, 0, n)
	remaining := total
	for i := 0; i < n; i++ {
		size := remaining
		if i < n-1 {
			size = avg
			if spread > 0 {
				size += rng.IntN(2*spread+1) - spread
			}
			size = max(1, min(size, remaining-(n-i-1)))
		}
		remaining -= size
		ends = append(ends, total-remaining)
	}
	return ends
}
