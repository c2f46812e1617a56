// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON, checked with validator tags:

  - CreateElectionRequest: title, description, creator_name, ballot_length,
    truncate_at_no_confidence, closes_at
  - AddCandidateRequest: name
  - ImportBallotsRequest: ballots ([]BallotInput)
  - ClaimUsernameRequest: username
  - SubmitBallotRequest: choices (names in rank order), school, year

# Response Types

  - CreateElectionResponse: election_id, admin_key
  - AddCandidateResponse: candidate_id, position
  - ImportBallotsResponse: imported, candidates
  - PublishElectionResponse: share_slug, share_url
  - ClaimUsernameResponse: voter_token, voter_id
  - SubmitBallotResponse: ballot_id, message
  - CloseElectionResponse: closed_at, snapshot
  - RoundTallyResponse, FullResultsResponse: filtered reports
  - ErrorResponse: error, message

# Domain Types

  - Election: election metadata and lifecycle state
  - Candidate: candidate name and declaration order
  - ResultSnapshot: immutable result record with the round-by-round table

# Constants

Status values:

	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"

Tabulation method:

	MethodIRV = "irv"
*/
package models
