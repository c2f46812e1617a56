// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the ranked-pick API server.

ranked-pick runs ranked-choice elections: voters rank candidates, and when
an election closes the ballots are counted by instant-runoff, eliminating
the weakest candidate each round until one holds a majority. A reserved
"No Confidence" candidate is counted like any other and can optionally end
a ballot's preferences once it is eliminated.

# Starting the Server

The server reads a .env file if present, then environment variables or CLI
flags:

	DATABASE_URL=ranked.db ADMIN_KEY_SALT=... ELECTION_SLUG_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - ADMIN_KEY_SALT (-admin-salt): Secret for admin key HMAC
  - ELECTION_SLUG_SALT (-slug-salt): Secret for share slug generation

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - BASE_URL (-base-url): Public URL used in share links
  - LOG_LEVEL, LOG_FILE: slog level and rotating log file
  - RCV_MAPPING (-mapping): Column mapping for CSV ballot imports
  - CLOSE_SCHEDULE (-close-schedule): Cron spec for closing due elections
  - BALLOT_RATE_LIMIT (-ballot-rate, -ballot-burst): Per-IP ballot throttle

# Architecture

  - ballot, tally, election: the instant-runoff engine
  - ingest, generate: CSV ballot import and synthetic ballots
  - report: text tables for the rcvtab command
  - handlers: HTTP request handlers and the scheduled closer
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, request logging, rate limiting, JSON helpers
  - models: Request/response types
  - auth: Admin keys, share slugs and voter tokens
  - db: Driver selection and schema creation
  - cliparse: Configuration parsing
  - logging: slog setup with log rotation

The rcvtab command in cmd/rcvtab counts an exported CSV offline.

See package documentation for each component.
*/
package main
