// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort          = 3318
	DefaultCloseSchedule = "@every 1m"
	DefaultBallotRate    = 1.0
	DefaultBallotBurst   = 5
)

type Config struct {
	Port             int
	DatabaseURL      string
	DatabaseType     string
	AdminKeySalt     string
	ElectionSlugSalt string
	BaseURL          string
	LogLevel         string
	LogFile          string
	CloseSchedule    string
	BallotRateLimit  float64
	BallotBurst      int
	MappingFile      string
}

// LoadEnv reads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("ranked-pick", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "Public URL used in share links")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.ElectionSlugSalt, "slug-salt", "", "Election slug salt (prefer env)")

	fs.StringVar(&cfg.LogLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Also write logs to this file, rotated")
	fs.StringVar(&cfg.CloseSchedule, "close-schedule", "", "Cron spec for closing elections past closes_at")
	fs.Float64Var(&cfg.BallotRateLimit, "ballot-rate", 0, "Ballot submissions per second per client")
	fs.IntVar(&cfg.BallotBurst, "ballot-burst", DefaultBallotBurst, "Ballot submission burst per client")
	fs.StringVar(&cfg.MappingFile, "mapping", "", "CSV column mapping for ballot imports")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("BASE_URL")
		if cfg.BaseURL == "" {
			cfg.BaseURL = "http://localhost:" + strconv.Itoa(cfg.Port)
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	if cfg.ElectionSlugSalt == "" {
		cfg.ElectionSlugSalt = os.Getenv("ELECTION_SLUG_SALT")
	}
	if cfg.ElectionSlugSalt == "" {
		return Config{}, errors.New("ELECTION_SLUG_SALT required")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("LOG_LEVEL")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = os.Getenv("LOG_FILE")
	}
	if cfg.MappingFile == "" {
		cfg.MappingFile = os.Getenv("RCV_MAPPING")
	}
	if cfg.CloseSchedule == "" {
		cfg.CloseSchedule = os.Getenv("CLOSE_SCHEDULE")
		if cfg.CloseSchedule == "" {
			cfg.CloseSchedule = DefaultCloseSchedule
		}
	}

	if cfg.BallotRateLimit == 0 {
		if s := os.Getenv("BALLOT_RATE_LIMIT"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Config{}, errors.New("invalid BALLOT_RATE_LIMIT env variable")
			}
			cfg.BallotRateLimit = v
		} else {
			cfg.BallotRateLimit = DefaultBallotRate
		}
	}
	if cfg.BallotRateLimit < 0 || cfg.BallotBurst < 1 {
		return Config{}, errors.New("ballot rate and burst must be positive")
	}

	return cfg, nil
}

// TabulateConfig configures the rcvtab command.
type TabulateConfig struct {
	Input       string
	MappingFile string

	// Generated ballots, used when Input is empty
	Voters      int
	Candidates  []string
	Seed        uint64
	TimeFactor  float64
	Correlation float64

	// Withdrawn candidates are struck from every ballot before counting
	Withdrawn []string

	Truncate bool
	Round    int
	Full     bool
	School   string
	Year     int
	Batches  int
	Format   string
	LogLevel string
}

// ParseTabulateFlags parses rcvtab arguments. A single positional argument
// is the input CSV.
func ParseTabulateFlags(args []string) (TabulateConfig, error) {
	var cfg TabulateConfig
	var candidates, withdrawn string

	fs := flag.NewFlagSet("rcvtab", flag.ContinueOnError)
	fs.StringVar(&cfg.MappingFile, "mapping", "", "Column mapping file (yaml, json or toml)")
	fs.IntVar(&cfg.Voters, "generate", 0, "Generate this many ballots instead of reading a CSV")
	fs.StringVar(&candidates, "candidates", "", "Comma-separated candidates for generated ballots")
	fs.Uint64Var(&cfg.Seed, "seed", 1, "Seed for generated ballots")
	fs.Float64Var(&cfg.TimeFactor, "time-factor", 0, "Drift in candidate support over the voting period")
	fs.Float64Var(&cfg.Correlation, "correlation", 0, "Chance that voters rank every other candidate")
	fs.StringVar(&withdrawn, "withdraw", "", "Comma-separated candidates withdrawn before the count")
	fs.BoolVar(&cfg.Truncate, "truncate", false, "Discard preferences after No Confidence once it is eliminated")
	fs.IntVar(&cfg.Round, "round", 0, "Print a single round instead of the summary")
	fs.BoolVar(&cfg.Full, "full", false, "Print every round side by side")
	fs.StringVar(&cfg.School, "school", "", "Only count ballots from this school")
	fs.IntVar(&cfg.Year, "year", 0, "Only count ballots from this class year")
	fs.IntVar(&cfg.Batches, "batches", 0, "Reveal results in this many cumulative batches")
	fs.StringVar(&cfg.Format, "format", "text", "Output format (text or json)")
	fs.StringVar(&cfg.LogLevel, "log-level", "warn", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return TabulateConfig{}, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.Input = fs.Arg(0)
	default:
		return TabulateConfig{}, errors.New("expected at most one input file")
	}

	cfg.Candidates = splitList(candidates)
	cfg.Withdrawn = splitList(withdrawn)

	if cfg.Input == "" && cfg.Voters == 0 {
		return TabulateConfig{}, errors.New("input CSV or -generate required")
	}
	if cfg.Input != "" && cfg.Voters != 0 {
		return TabulateConfig{}, errors.New("input CSV and -generate are mutually exclusive")
	}
	if cfg.Voters < 0 {
		return TabulateConfig{}, errors.New("-generate must be positive")
	}
	if cfg.Voters > 0 && len(cfg.Candidates) < 2 {
		return TabulateConfig{}, errors.New("-generate needs at least two -candidates")
	}
	if cfg.Round < 0 || cfg.Batches < 0 {
		return TabulateConfig{}, errors.New("-round and -batches must not be negative")
	}
	if cfg.Format != "text" && cfg.Format != "json" {
		return TabulateConfig{}, fmt.Errorf("unknown format %q", cfg.Format)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
