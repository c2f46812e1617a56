// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command rcvtab tabulates an instant-runoff election from a ballot export
// or from generated ballots and prints the results.
//
//	rcvtab -mapping columns.yaml ballots.csv
//	rcvtab -round 2 -school Oak ballots.csv
//	rcvtab -generate 500 -candidates "A,B,C,No Confidence" -full
//	rcvtab -batches 4 -format json ballots.csv
//	rcvtab -withdraw C ballots.csv
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/danielhkuo/ranked-pick/ballot"
	"github.com/danielhkuo/ranked-pick/cliparse"
	"github.com/danielhkuo/ranked-pick/election"
	"github.com/danielhkuo/ranked-pick/generate"
	"github.com/danielhkuo/ranked-pick/ingest"
	"github.com/danielhkuo/ranked-pick/logging"
	"github.com/danielhkuo/ranked-pick/report"
)

// batchVariance is how far batch sizes may stray from the average.
const batchVariance = 0.2

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "rcvtab:", err)
		os.Exit(1)
	}
}

type batchResult struct {
	Through    int                  `json:"through"`
	FirstRound election.RoundReport `json:"first_round"`
	Result     election.Result      `json:"result"`
}

type output struct {
	Ballots     int                   `json:"ballots"`
	Candidates  []string              `json:"candidates"`
	Result      election.Result       `json:"result"`
	Round       *election.RoundReport `json:"round,omitempty"`
	FullResults *election.FullResults `json:"full_results,omitempty"`
	Batches     []batchResult         `json:"batches,omitempty"`
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := cliparse.ParseTabulateFlags(args)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ballots, candidates, err := loadBallots(cfg)
	if err != nil {
		return err
	}
	logger.Info("ballots loaded", "ballots", len(ballots), "candidates", len(candidates))

	ballots, candidates, err = withdraw(ballots, candidates, cfg.Withdrawn)
	if err != nil {
		return err
	}
	if len(cfg.Withdrawn) > 0 {
		logger.Info("candidates withdrawn", "withdrawn", cfg.Withdrawn, "remaining", len(candidates))
	}

	tabulate := func(bs []*ballot.Ballot) (*election.Election, election.Result, error) {
		e := election.New(bs, candidates,
			election.WithTruncateAtNoConfidence(cfg.Truncate),
			election.WithLogger(logger),
		)
		res, err := e.Run()
		return e, res, err
	}

	e, res, err := tabulate(ballots)
	if err != nil {
		return err
	}

	var filters []election.Filter
	if cfg.School != "" {
		filters = append(filters, election.BySchool(cfg.School))
	}
	if cfg.Year != 0 {
		filters = append(filters, election.ByYear(cfg.Year))
	}

	out := output{
		Ballots:    len(ballots),
		Candidates: candidates,
		Result:     res,
	}

	if cfg.Round > 0 {
		round, err := e.RoundTally(cfg.Round, filters...)
		if err != nil {
			return err
		}
		out.Round = &round
	}
	if cfg.Full {
		full, err := e.FullResults(filters...)
		if err != nil {
			return err
		}
		out.FullResults = &full
	}
	if cfg.Batches > 0 {
		for _, end := range generate.Batches(len(ballots), cfg.Batches, batchVariance, cfg.Seed) {
			pe, partial, err := tabulate(ballots[:end])
			if err != nil {
				return err
			}
			first, err := pe.RoundTally(1)
			if err != nil {
				return err
			}
			out.Batches = append(out.Batches, batchResult{Through: end, FirstRound: first, Result: partial})
		}
	}

	if cfg.Format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return writeText(stdout, out)
}

// loadBallots reads the input CSV or generates ballots. Candidates are
// returned in first-seen or declared order.
func loadBallots(cfg cliparse.TabulateConfig) ([]*ballot.Ballot, []string, error) {
	if cfg.Input != "" {
		mapping, err := ingest.LoadMapping(cfg.MappingFile)
		if err != nil {
			return nil, nil, err
		}
		return ingest.ReadFile(cfg.Input, mapping)
	}

	n := len(cfg.Candidates)
	p := generate.Params{
		Voters:      cfg.Voters,
		Candidates:  cfg.Candidates,
		Weights:     make([]float64, n),
		TimeFactors: make([]float64, n),
		Correlation: make([][]float64, n),
		Seed:        cfg.Seed,
		School:      cfg.School,
		Year:        cfg.Year,
	}
	for i := range n {
		p.Weights[i] = 1
		p.TimeFactors[i] = cfg.TimeFactor
		p.Correlation[i] = make([]float64, n)
		for j := range n {
			if i != j {
				p.Correlation[i][j] = cfg.Correlation
			}
		}
	}

	ballots, err := generate.Ballots(p)
	if err != nil {
		return nil, nil, err
	}
	return ballots, cfg.Candidates, nil
}

// withdraw strikes each named candidate from every ballot and from the
// candidate list.
func withdraw(ballots []*ballot.Ballot, candidates, names []string) ([]*ballot.Ballot, []string, error) {
	if len(names) == 0 {
		return ballots, candidates, nil
	}

	known := ballot.NewSet(candidates...)
	gone := ballot.NewSet()
	for _, name := range names {
		if !known.Has(name) {
			return nil, nil, fmt.Errorf("cannot withdraw unknown candidate %q", name)
		}
		gone[name] = struct{}{}
	}

	kept := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !gone.Has(c) {
			kept = append(kept, c)
		}
	}

	out := make([]*ballot.Ballot, len(ballots))
	for i, b := range ballots {
		for _, name := range names {
			b = b.WithoutCandidate(name)
		}
		out[i] = b
	}
	return out, kept, nil
}

func writeText(w io.Writer, out output) error {
	if err := report.WriteSummary(w, out.Result, out.Ballots); err != nil {
		return err
	}
	if out.Round != nil {
		fmt.Fprintln(w)
		if err := report.WriteRound(w, *out.Round); err != nil {
			return err
		}
	}
	if out.FullResults != nil {
		fmt.Fprintln(w)
		if err := report.WriteFullResults(w, *out.FullResults); err != nil {
			return err
		}
	}
	for i, b := range out.Batches {
		fmt.Fprintf(w, "\nBatch %d of %d (%s of %d ballots)\n", i+1, len(out.Batches),
			report.Percent(b.Through, out.Ballots), out.Ballots)
		if err := report.WriteRound(w, b.FirstRound); err != nil {
			return err
		}
		if err := report.WriteSummary(w, b.Result, b.Through); err != nil {
			return err
		}
	}
	return nil
}
