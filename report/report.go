// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package report renders election results as aligned text tables.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/ranked-pick/election"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// Percent formats part of total to one decimal place. A zero total gives 0.0%.
func Percent(part, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(part)/float64(total))
}

// WriteRound writes one round's table: votes, share of counted ballots and
// support at each rank.
func WriteRound(w io.Writer, r election.RoundReport) error {
	if _, err := fmt.Fprintf(w, "Round %d (%s counted)\n", r.Round, humanize.Comma(int64(r.Total))); err != nil {
		return err
	}

	tw := newTable(w)
	ranks := 0
	for _, row := range r.Rows {
		ranks = max(ranks, len(row.Ranks))
	}

	header := []string{"Candidate", "Votes", "Share"}
	for i := 1; i <= ranks; i++ {
		header = append(header, humanize.Ordinal(i))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range r.Rows {
		cols := []string{row.Candidate, humanize.Comma(int64(row.Votes)), Percent(row.Votes, r.Total)}
		for i := 0; i < ranks; i++ {
			n := 0
			if i < len(row.Ranks) {
				n = row.Ranks[i]
			}
			cols = append(cols, humanize.Comma(int64(n)))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}

	return tw.Flush()
}

// WriteFullResults writes every round side by side. Rounds after a
// candidate's elimination are shown as "-".
func WriteFullResults(w io.Writer, full election.FullResults) error {
	tw := newTable(w)

	header := []string{"Candidate"}
	for i := 1; i <= full.Rounds; i++ {
		header = append(header, fmt.Sprintf("Round %d", i))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range full.Rows {
		cols := []string{row.Candidate}
		for _, cell := range row.Rounds {
			if cell.Blank {
				cols = append(cols, "-")
				continue
			}
			cols = append(cols, humanize.Comma(int64(cell.Votes)))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}

	cols := []string{"Counted"}
	for _, n := range full.Totals {
		cols = append(cols, humanize.Comma(int64(n)))
	}
	fmt.Fprintln(tw, strings.Join(cols, "\t"))

	return tw.Flush()
}

// WriteSummary writes the outcome, the elimination order and how each
// elimination was decided.
func WriteSummary(w io.Writer, res election.Result, ballots int) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Ballots: %s\n", humanize.Comma(int64(ballots)))
	fmt.Fprintf(&b, "Rounds: %d\n", res.RoundCount)

	switch res.Outcome {
	case election.OutcomeMajority:
		fmt.Fprintf(&b, "Winner: %s (majority in round %d)\n", res.Winner, res.RoundCount)
	case election.OutcomeLastRemaining:
		fmt.Fprintf(&b, "Winner: %s (last remaining after round %d)\n", res.Winner, res.RoundCount)
	case election.OutcomeTieUnresolved:
		var tied []string
		if len(res.Decisions) > 0 {
			tied = res.Decisions[len(res.Decisions)-1].Tied
		}
		fmt.Fprintf(&b, "No winner: unresolved tie in round %d between %s\n", res.RoundCount, strings.Join(tied, ", "))
	case election.OutcomeRoundLimit:
		fmt.Fprintf(&b, "No winner: round limit exceeded after %d rounds\n", res.RoundCount)
	default:
		fmt.Fprintf(&b, "No winner: %s\n", res.Outcome)
	}

	for i, d := range res.Decisions {
		if !d.Resolved() {
			continue
		}
		fmt.Fprintf(&b, "Round %d: eliminated %s (%s)\n", i+1, d.Candidate, d.DecidedBy)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
