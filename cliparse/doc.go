// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Server Configuration

ParseFlags returns a Config struct with all server settings:

	if err := cliparse.LoadEnv(".env"); err != nil {
		log.Fatal(err)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

LoadEnv copies a .env file into the environment through godotenv. Variables
that are already set win, and a missing file is ignored.

# CLI Flags and Environment Variables

CLI flags take precedence over environment variables:

	-p               PORT                (default 3318)
	-d               DATABASE_URL        (required)
	-t               DATABASE_TYPE       sqlite or postgres (default sqlite)
	-base-url        BASE_URL            prefix for share links
	-admin-salt      ADMIN_KEY_SALT      (required)
	-slug-salt       ELECTION_SLUG_SALT  (required)
	-log-level       LOG_LEVEL
	-log-file        LOG_FILE
	-close-schedule  CLOSE_SCHEDULE      cron spec (default "@every 1m")
	-ballot-rate     BALLOT_RATE_LIMIT   per client, per second (default 1)
	-ballot-burst                        (default 5)
	-mapping         RCV_MAPPING         CSV import column mapping

# Tabulator Configuration

ParseTabulateFlags parses the rcvtab command line. Ballots come either from
a CSV file given as the only positional argument, or from -generate with
-candidates. Both at once is an error, as is neither.
*/
package cliparse
