// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the ranked-pick API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - ElectionHandler: Election lifecycle (create, candidates, import, publish, close)
  - VotingHandler: Username claims and ranked ballot submission
  - ResultsHandler: Election info, sealed results and per-round reports

Handlers are created via constructor functions that accept *sql.DB and Config:

	electionHandler := handlers.NewElectionHandler(db, cfg, mapping)

# Election Lifecycle

Elections progress through three states: draft → open → closed

	POST /elections                      → CreateElection (returns admin_key)
	POST /elections/{id}/candidates      → AddCandidate (draft only)
	POST /elections/{id}/ballots/import  → ImportBallots (CSV or JSON)
	POST /elections/{id}/publish         → PublishElection (generates share_slug)
	POST /elections/{id}/close           → CloseElection (runs the count)

Admin operations require the X-Admin-Key header.

# Voting Flow

Voters interact via the share slug:

	POST /elections/{slug}/claim-username → ClaimUsername (returns voter_token)
	POST /elections/{slug}/ballots        → SubmitBallot (create or replace)

Voter operations require the X-Voter-Token header.

# Counting

Closing an election runs instant-runoff over every stored ballot and freezes
the outcome in a result snapshot together with a hash of the counted
ballots. Per-round and full-table reports re-run the count against the
frozen ballots so they can be filtered by school and year:

	snapshot, err := handlers.CloseElection(db, electionID)

# Scheduled Close

Closer sweeps open elections whose closes_at has passed:

	closer := handlers.NewCloser(db)
	closer.Start("@every 1m")
*/
package handlers
