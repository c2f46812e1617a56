// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/ranked-pick/auth"
	"github.com/danielhkuo/ranked-pick/ballot"
	"github.com/danielhkuo/ranked-pick/election"
	"github.com/danielhkuo/ranked-pick/models"
)

var (
	ErrElectionNotFound = errors.New("election not found")
	ErrNotOpen          = errors.New("election is not open")
)

const electionColumns = `id, title, description, creator_name, method, status,
	ballot_length, truncate_at_no_confidence, share_slug, closes_at, closed_at,
	final_snapshot_id, created_at`

func scanElection(row *sql.Row) (models.Election, error) {
	var e models.Election
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.CreatorName, &e.Method, &e.Status,
		&e.BallotLength, &e.TruncateAtNoConfidence, &e.ShareSlug, &e.ClosesAt, &e.ClosedAt,
		&e.FinalSnapshotID, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Election{}, ErrElectionNotFound
	}
	return e, err
}

func electionByID(db *sql.DB, electionID string) (models.Election, error) {
	return scanElection(db.QueryRow(`SELECT `+electionColumns+` FROM election WHERE id = $1`, electionID))
}

func electionBySlug(db *sql.DB, shareSlug string) (models.Election, error) {
	return scanElection(db.QueryRow(`SELECT `+electionColumns+` FROM election WHERE share_slug = $1`, shareSlug))
}

func loadCandidates(db *sql.DB, electionID string) ([]models.Candidate, error) {
	rows, err := db.Query(`
		SELECT id, election_id, name, position
		FROM candidate
		WHERE election_id = $1
		ORDER BY position
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &c.Position); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func candidateNames(candidates []models.Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}

// storedBallot is a ballot row together with the raw choices it was
// decoded from.
type storedBallot struct {
	key     string
	choices string
	ballot  *ballot.Ballot
}

// loadBallots reads an election's ballots in key order. Each ballot gets at
// least slots preference slots.
func loadBallots(db *sql.DB, electionID string, slots int) ([]storedBallot, error) {
	rows, err := db.Query(`
		SELECT ballot_key, voter_id, school, year, choices, submitted_at
		FROM ballot
		WHERE election_id = $1
		ORDER BY ballot_key
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ballots: %w", err)
	}
	defer rows.Close()

	var stored []storedBallot
	for rows.Next() {
		var (
			sb          storedBallot
			voterID     int
			school      string
			year        int
			submittedAt time.Time
		)
		if err := rows.Scan(&sb.key, &voterID, &school, &year, &sb.choices, &submittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}

		b, err := decodeBallot(voterID, school, year, sb.choices, slots)
		if err != nil {
			return nil, fmt.Errorf("ballot %s: %w", sb.key, err)
		}
		b.Timestamp = submittedAt
		sb.ballot = b
		stored = append(stored, sb)
	}
	return stored, rows.Err()
}

func decodeBallot(voterID int, school string, year int, raw string, slots int) (*ballot.Ballot, error) {
	var choices []string
	if err := json.Unmarshal([]byte(raw), &choices); err != nil {
		return nil, fmt.Errorf("invalid choices: %w", err)
	}
	b := ballot.New(voterID, school, year, max(len(choices), slots))
	for i, name := range choices {
		if err := b.SetChoice(i+1, name); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// encodeChoices stores ranked names without trailing blank slots.
func encodeChoices(choices []string) (string, error) {
	n := len(choices)
	for n > 0 && choices[n-1] == "" {
		n--
	}
	trimmed := make([]string, n)
	copy(trimmed, choices)
	encoded, err := json.Marshal(trimmed)
	if err != nil {
		return "", fmt.Errorf("failed to encode choices: %w", err)
	}
	return string(encoded), nil
}

// inputsHash is a SHA-256 over every counted ballot in key order.
func inputsHash(stored []storedBallot) string {
	h := sha256.New()
	for _, sb := range stored {
		h.Write([]byte(sb.key))
		h.Write([]byte{0})
		h.Write([]byte(sb.choices))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// tabulate loads the election's candidates and ballots and runs the count.
func tabulate(db *sql.DB, electionID string, truncate bool) (*election.Election, []storedBallot, error) {
	candidates, err := loadCandidates(db, electionID)
	if err != nil {
		return nil, nil, err
	}
	stored, err := loadBallots(db, electionID, len(candidates))
	if err != nil {
		return nil, nil, err
	}

	ballots := make([]*ballot.Ballot, len(stored))
	for i, sb := range stored {
		ballots[i] = sb.ballot
	}

	e := election.New(ballots, candidateNames(candidates),
		election.WithTruncateAtNoConfidence(truncate),
		election.WithLogger(slog.Default().With("election_id", electionID)),
	)
	if _, err := e.Run(); err != nil {
		return nil, nil, err
	}
	return e, stored, nil
}

// CloseElection tabulates an open election, stores the result snapshot and
// marks the election closed. Ballots are frozen from then on.
func CloseElection(db *sql.DB, electionID string) (models.ResultSnapshot, error) {
	var status string
	var truncate bool
	err := db.QueryRow(`
		SELECT status, truncate_at_no_confidence FROM election WHERE id = $1
	`, electionID).Scan(&status, &truncate)
	if err == sql.ErrNoRows {
		return models.ResultSnapshot{}, ErrElectionNotFound
	}
	if err != nil {
		return models.ResultSnapshot{}, fmt.Errorf("failed to query election: %w", err)
	}
	if status != models.StatusOpen {
		return models.ResultSnapshot{}, ErrNotOpen
	}

	e, stored, err := tabulate(db, electionID, truncate)
	if err != nil {
		return models.ResultSnapshot{}, err
	}
	full, err := e.FullResults()
	if err != nil {
		return models.ResultSnapshot{}, err
	}

	snapshotID, err := auth.GenerateID(16)
	if err != nil {
		return models.ResultSnapshot{}, err
	}
	closedAt := time.Now().UTC()

	snapshot := models.ResultSnapshot{
		ID:          snapshotID,
		ElectionID:  electionID,
		Method:      models.MethodIRV,
		ComputedAt:  closedAt,
		Result:      e.Result(),
		FullResults: full,
		BallotCount: len(stored),
		InputsHash:  inputsHash(stored),
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return models.ResultSnapshot{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return models.ResultSnapshot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The status guard makes a concurrent close lose cleanly.
	res, err := tx.Exec(`
		UPDATE election
		SET status = $1, closed_at = $2, final_snapshot_id = $3
		WHERE id = $4 AND status = $5
	`, models.StatusClosed, closedAt, snapshotID, electionID, models.StatusOpen)
	if err != nil {
		return models.ResultSnapshot{}, fmt.Errorf("failed to close election: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ResultSnapshot{}, ErrNotOpen
	}

	_, err = tx.Exec(`
		INSERT INTO result_snapshot (id, election_id, method, computed_at, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, snapshotID, electionID, models.MethodIRV, closedAt, string(payload))
	if err != nil {
		return models.ResultSnapshot{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.ResultSnapshot{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if !snapshot.Result.HasWinner() {
		slog.Warn("election closed without a winner",
			"election_id", electionID,
			"snapshot_id", snapshotID,
			"ballots", len(stored),
			"outcome", snapshot.Result.Outcome,
		)
		return snapshot, nil
	}
	slog.Info("election closed",
		"election_id", electionID,
		"snapshot_id", snapshotID,
		"ballots", len(stored),
		"outcome", snapshot.Result.Outcome,
		"winner", snapshot.Result.Winner,
	)
	return snapshot, nil
}

func loadSnapshot(db *sql.DB, snapshotID string) (models.ResultSnapshot, error) {
	var payload string
	err := db.QueryRow(`SELECT payload FROM result_snapshot WHERE id = $1`, snapshotID).Scan(&payload)
	if err != nil {
		return models.ResultSnapshot{}, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var snapshot models.ResultSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return models.ResultSnapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}

func countBallots(db *sql.DB, electionID string) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM ballot WHERE election_id = $1`, electionID).Scan(&count)
	return count, err
}
