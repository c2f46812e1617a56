// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Connecting

Open accepts "sqlite" (modernc.org/sqlite, pure Go) or "postgres" (lib/pq):

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The SQL is shared by both drivers: $n placeholders, TEXT JSON payloads and
CURRENT_TIMESTAMP defaults.

# Tables

  - election: metadata, tabulation options and lifecycle state
  - candidate: declared candidates in declaration order
  - voter_claim: maps usernames to voter tokens and numeric voter IDs
  - ballot: ranked choices as a JSON array, one row per voter or import ID
  - result_snapshot: immutable tabulation results

# Relationships

	election 1──* candidate
	election 1──* voter_claim
	election 1──* ballot
	election 1──* result_snapshot

All foreign keys use ON DELETE CASCADE.
*/
package db
