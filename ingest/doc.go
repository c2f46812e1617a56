// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ingest reads ranked ballots from CSV exports. A Mapping names the
// voter ID, school, graduation year, submission time and choice columns;
// LoadMapping reads one from a config file with RCV_ environment overrides.
package ingest
