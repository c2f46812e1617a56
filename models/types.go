// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"time"

	"github.com/danielhkuo/ranked-pick/election"
)

// Election status constants
const (
	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Tabulation method constants
const (
	MethodIRV = "irv"
)

// Ballot source constants
const (
	SourceVoter  = "voter"
	SourceImport = "import"
)

// Request types

type CreateElectionRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	CreatorName string `json:"creator_name" validate:"required,max=100"`
	// BallotLength caps how many candidates a voter may rank. Zero means
	// every candidate.
	BallotLength           int        `json:"ballot_length" validate:"min=0,max=100"`
	TruncateAtNoConfidence bool       `json:"truncate_at_no_confidence"`
	ClosesAt               *time.Time `json:"closes_at,omitempty"`
}

type AddCandidateRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type ClaimUsernameRequest struct {
	Username string `json:"username" validate:"required,min=2,max=50"`
}

// Choices are candidate names in rank order, most preferred first.
type SubmitBallotRequest struct {
	Choices []string `json:"choices" validate:"required,min=1,dive,required"`
	School  string   `json:"school" validate:"max=200"`
	Year    int      `json:"year" validate:"min=0,max=9999"`
}

// BallotInput is one imported ballot. Empty choices mark unranked positions.
type BallotInput struct {
	VoterID     int        `json:"voter_id" validate:"min=0"`
	School      string     `json:"school"`
	Year        int        `json:"year"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Choices     []string   `json:"choices" validate:"required,min=1"`
}

type ImportBallotsRequest struct {
	Ballots []BallotInput `json:"ballots" validate:"required,min=1,dive"`
}

// Response types

type CreateElectionResponse struct {
	ElectionID string `json:"election_id"`
	AdminKey   string `json:"admin_key"`
}

type AddCandidateResponse struct {
	CandidateID string `json:"candidate_id"`
	Position    int    `json:"position"`
}

type ImportBallotsResponse struct {
	Imported int `json:"imported"`
	// Candidates lists names found in the ballots that were added to the
	// election.
	Candidates []string `json:"candidates"`
}

type PublishElectionResponse struct {
	ShareSlug string `json:"share_slug"`
	ShareURL  string `json:"share_url"`
}

type ClaimUsernameResponse struct {
	VoterToken string `json:"voter_token"`
	VoterID    int    `json:"voter_id"`
}

type SubmitBallotResponse struct {
	BallotID string `json:"ballot_id"`
	Message  string `json:"message"`
}

type MyBallotResponse struct {
	BallotID    string    `json:"ballot_id"`
	Choices     []string  `json:"choices"`
	School      string    `json:"school"`
	Year        int       `json:"year"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type CloseElectionResponse struct {
	ClosedAt time.Time      `json:"closed_at"`
	Snapshot ResultSnapshot `json:"snapshot"`
}

type BallotCountResponse struct {
	BallotCount int `json:"ballot_count"`
}

// Domain types

type Election struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title"`
	Description            string     `json:"description"`
	CreatorName            string     `json:"creator_name"`
	Method                 string     `json:"method"`
	Status                 string     `json:"status"`
	BallotLength           int        `json:"ballot_length"`
	TruncateAtNoConfidence bool       `json:"truncate_at_no_confidence"`
	ShareSlug              *string    `json:"share_slug,omitempty"`
	ClosesAt               *time.Time `json:"closes_at,omitempty"`
	ClosedAt               *time.Time `json:"closed_at,omitempty"`
	FinalSnapshotID        *string    `json:"final_snapshot_id,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

type Candidate struct {
	ID         string `json:"id"`
	ElectionID string `json:"election_id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
}

type ElectionWithCandidates struct {
	Election   Election    `json:"election"`
	Candidates []Candidate `json:"candidates"`
}

// ResultSnapshot is the frozen outcome stored when an election closes.
type ResultSnapshot struct {
	ID          string               `json:"id"`
	ElectionID  string               `json:"election_id"`
	Method      string               `json:"method"`
	ComputedAt  time.Time            `json:"computed_at"`
	Result      election.Result      `json:"result"`
	FullResults election.FullResults `json:"full_results"`
	BallotCount int                  `json:"ballot_count"`
	// InputsHash is a SHA-256 over every counted ballot, for verification.
	InputsHash string `json:"inputs_hash"`
}

type ResultsResponse struct {
	Election    Election       `json:"election"`
	Snapshot    ResultSnapshot `json:"snapshot"`
	BallotCount int            `json:"ballot_count"`
}

// Filters echoes the ballot filters applied to a report.
type Filters struct {
	School string `json:"school,omitempty"`
	Year   int    `json:"year,omitempty"`
}

type RoundTallyResponse struct {
	ElectionID string               `json:"election_id"`
	Filters    Filters              `json:"filters"`
	Report     election.RoundReport `json:"report"`
}

type FullResultsResponse struct {
	ElectionID string               `json:"election_id"`
	Filters    Filters              `json:"filters"`
	Result     election.Result      `json:"result"`
	Results    election.FullResults `json:"results"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
