// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the ranked-pick API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, mapping, limiter)

mapping is the CSV column mapping used by ballot import. limiter throttles
ballot submission per client IP and may be nil.

# Endpoints

Health:

	GET /health

Election management (admin, requires X-Admin-Key):

	POST /elections                     - Create election
	GET  /elections/{id}/admin          - Get election details
	POST /elections/{id}/candidates     - Add candidate
	POST /elections/{id}/ballots/import - Import ballots (CSV or JSON)
	POST /elections/{id}/publish        - Open for voting
	POST /elections/{id}/close          - Count and seal results

Voting (public, uses share slug):

	POST /elections/{slug}/claim-username - Claim voter identity
	POST /elections/{slug}/ballots        - Submit/replace ranked ballot
	GET  /elections/{slug}/my-ballot      - Read own ballot

Results (public, closed only unless noted):

	GET /elections/{slug}                   - Election info and candidates (any state)
	GET /elections/{slug}/results           - Final result snapshot
	GET /elections/{slug}/rounds/{n}        - One round, ?school= and ?year= filters
	GET /elections/{slug}/full-results      - Round-by-round table, same filters
	GET /elections/{slug}/ballot-count      - Ballot count (any state)

Every route except /health and / is wrapped in middleware.WithLogging.
*/
package router
