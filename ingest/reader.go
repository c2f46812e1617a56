// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/ranked-pick/ballot"
)

var (
	ErrMissingColumns = errors.New("missing required columns")
	ErrEmptyFile      = errors.New("file has no header row")
)

var yearPattern = regexp.MustCompile(`\d{4}`)

// Read parses ballot rows from CSV. It returns the ballots in file order and
// the distinct candidate names in the order they first appear.
func Read(r io.Reader, m Mapping) ([]*ballot.Ballot, []string, error) {
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range m.Columns() {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	replacements := lowerKeys(m.Replacements)
	layouts := m.TimeLayouts
	if len(layouts) == 0 {
		layouts = DefaultTimeLayouts
	}

	var (
		ballots    []*ballot.Ballot
		candidates []string
		seen       = map[string]bool{}
	)

	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}

		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		voterID, err := strconv.Atoi(cell(m.IDColumn))
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: invalid voter id %q: %w", line, cell(m.IDColumn), err)
		}

		b := ballot.New(voterID, cell(m.SchoolColumn), parseYear(cell(m.YearColumn)), len(m.ChoiceColumns))
		b.Timestamp = parseTime(cell(m.SubmittedColumn), layouts)

		for rank, col := range m.ChoiceColumns {
			choice := cell(col)
			if choice == "" {
				continue
			}
			if canonical, ok := replacements[strings.ToLower(choice)]; ok {
				choice = canonical
			}
			if err := b.SetChoice(rank+1, choice); err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", line, err)
			}
			if !seen[choice] {
				seen[choice] = true
				candidates = append(candidates, choice)
			}
		}

		ballots = append(ballots, b)
	}

	return ballots, candidates, nil
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string, m Mapping) ([]*ballot.Ballot, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ballots file: %w", err)
	}
	defer f.Close()

	return Read(f, m)
}

// parseYear returns the first four-digit run in s, or 0.
func parseYear(s string) int {
	match := yearPattern.FindString(s)
	if match == "" {
		return 0
	}
	year, _ := strconv.Atoi(match)
	return year
}

// parseTime returns the zero time when no layout matches.
func parseTime(s string, layouts []string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
