// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NoConfidence is the reserved sentinel candidate. It is counted like any
// other candidate but can optionally truncate a ballot's preferences.
const NoConfidence = "No Confidence"

var ErrInvalidRank = errors.New("invalid rank")

// Set is a set of candidate names, typically the eliminated candidates.
type Set map[string]struct{}

// NewSet builds a Set from names
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set. A nil Set is empty.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Ballot is one voter's ranked preferences. The number of slots is fixed at
// construction; an empty slot means the rank was left blank.
type Ballot struct {
	VoterID   int
	School    string
	Year      int
	Timestamp time.Time // zero when the source had no submission time

	choices []string
}

// New creates a ballot with nCandidates blank slots
func New(voterID int, school string, year int, nCandidates int) *Ballot {
	if nCandidates < 0 {
		nCandidates = 0
	}
	return &Ballot{
		VoterID: voterID,
		School:  school,
		Year:    year,
		choices: make([]string, nCandidates),
	}
}

// Len returns the number of preference slots.
func (b *Ballot) Len() int {
	return len(b.choices)
}

// SetChoice places candidate at the 1-indexed rank. An empty candidate
// clears the slot.
func (b *Ballot) SetChoice(rank int, candidate string) error {
	if err := b.checkRank(rank); err != nil {
		return err
	}
	b.choices[rank-1] = candidate
	return nil
}

// Choice returns the candidate at the 1-indexed rank ("" when unranked).
func (b *Ballot) Choice(rank int) (string, error) {
	if err := b.checkRank(rank); err != nil {
		return "", err
	}
	return b.choices[rank-1], nil
}

// Choices returns a copy of all slots in rank order.
func (b *Ballot) Choices() []string {
	out := make([]string, len(b.choices))
	copy(out, b.choices)
	return out
}

func (b *Ballot) checkRank(rank int) error {
	if rank < 1 || rank > len(b.choices) {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidRank, rank, len(b.choices))
	}
	return nil
}

// WithoutCandidate returns a copy of the ballot with the first slot naming
// candidate cleared. The receiver is left untouched.
func (b *Ballot) WithoutCandidate(candidate string) *Ballot {
	c := *b
	c.choices = b.Choices()
	for i, name := range c.choices {
		if name == candidate {
			c.choices[i] = ""
			break
		}
	}
	return &c
}

// ResolveVote returns the ballot's effective vote for the given eliminated
// set: the highest-ranked candidate that is neither blank nor eliminated.
// When truncate is set, scanning stops after the first slot holding
// NoConfidence, whether or not that slot was itself eliminated.
// The boolean is false when the ballot is exhausted.
func (b *Ballot) ResolveVote(eliminated Set, truncate bool) (string, bool) {
	for _, name := range b.choices {
		if name == "" {
			continue
		}
		if !eliminated.Has(name) {
			return name, true
		}
		if truncate && name == NoConfidence {
			break
		}
	}
	return "", false
}

// PreferenceOrder returns the distinct remaining candidates in the order the
// voter ranked them, applying the same truncation rule as ResolveVote.
func (b *Ballot) PreferenceOrder(eliminated Set, truncate bool) []string {
	order := make([]string, 0, len(b.choices))
	seen := make(map[string]bool, len(b.choices))
	for _, name := range b.choices {
		if name == "" {
			continue
		}
		if !eliminated.Has(name) && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
		if truncate && name == NoConfidence {
			break
		}
	}
	return order
}

func (b *Ballot) String() string {
	ranked := make([]string, len(b.choices))
	for i, name := range b.choices {
		if name == "" {
			name = "-"
		}
		ranked[i] = name
	}
	return fmt.Sprintf("Voter ID: %d, School: %s, Year: %d, Choices: [%s]",
		b.VoterID, b.School, b.Year, strings.Join(ranked, ", "))
}
