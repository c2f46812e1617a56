// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/danielhkuo/ranked-pick/auth"
	"github.com/danielhkuo/ranked-pick/cliparse"
	"github.com/danielhkuo/ranked-pick/db"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:             3318,
		DatabaseURL:      ":memory:",
		DatabaseType:     db.TypeSQLite,
		AdminKeySalt:     "test-admin-salt",
		ElectionSlugSalt: "test-slug-salt",
		BaseURL:          "http://localhost:3318",
		CloseSchedule:    cliparse.DefaultCloseSchedule,
		BallotRateLimit:  100,
		BallotBurst:      100,
	}
}

// Keys returns the keyring matching cfg.
func Keys(cfg cliparse.Config) auth.Keyring {
	return auth.NewKeyring(cfg.AdminKeySalt, cfg.ElectionSlugSalt)
}

// CreateTestElection creates an election in the database and returns its ID,
// admin key and share slug (empty for drafts).
// status should be "draft", "open", or "closed"
func CreateTestElection(t *testing.T, db *sql.DB, cfg cliparse.Config, status string) (electionID, adminKey, shareSlug string) {
	t.Helper()

	keys := Keys(cfg)
	electionID, _ = auth.GenerateID(16)
	adminKey = keys.AdminKey(electionID)

	var slug *string
	if status == "open" || status == "closed" {
		s := keys.ShareSlug(electionID)
		slug = &s
		shareSlug = s
	}

	var closedAt *time.Time
	if status == "closed" {
		now := time.Now().UTC()
		closedAt = &now
	}

	_, err := db.Exec(`
		INSERT INTO election (id, title, description, creator_name, status, share_slug, closed_at, created_at)
		VALUES ($1, 'Test Election', 'A test election', 'TestUser', $2, $3, $4, $5)
	`, electionID, status, slug, closedAt, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return electionID, adminKey, shareSlug
}

// SetElectionOptions updates the tabulation options of an existing election.
func SetElectionOptions(t *testing.T, db *sql.DB, electionID string, ballotLength int, truncate bool) {
	t.Helper()

	_, err := db.Exec(`
		UPDATE election SET ballot_length = $1, truncate_at_no_confidence = $2 WHERE id = $3
	`, ballotLength, truncate, electionID)
	if err != nil {
		t.Fatalf("Failed to update test election: %v", err)
	}
}

// AddTestCandidate appends a candidate and returns its ID
func AddTestCandidate(t *testing.T, db *sql.DB, electionID, name string) string {
	t.Helper()

	var position int
	err := db.QueryRow(`
		SELECT COALESCE(MAX(position), 0) + 1 FROM candidate WHERE election_id = $1
	`, electionID).Scan(&position)
	if err != nil {
		t.Fatalf("Failed to read candidate positions: %v", err)
	}

	candidateID, _ := auth.GenerateID(12)
	_, err = db.Exec(`
		INSERT INTO candidate (id, election_id, name, position)
		VALUES ($1, $2, $3, $4)
	`, candidateID, electionID, name, position)
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return candidateID
}

// CreateTestVoter claims a username for an election and returns the voter token
func CreateTestVoter(t *testing.T, db *sql.DB, electionID, username string) string {
	t.Helper()

	var voterID int
	err := db.QueryRow(`
		SELECT COALESCE(MAX(voter_id), 0) + 1 FROM voter_claim WHERE election_id = $1
	`, electionID).Scan(&voterID)
	if err != nil {
		t.Fatalf("Failed to read voter IDs: %v", err)
	}

	voterToken, _ := auth.GenerateVoterToken()
	_, err = db.Exec(`
		INSERT INTO voter_claim (election_id, username, voter_token, voter_id)
		VALUES ($1, $2, $3, $4)
	`, electionID, username, voterToken, voterID)
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	return voterToken
}

// InsertTestBallot stores an imported ballot directly. Empty strings in
// choices are unranked positions.
func InsertTestBallot(t *testing.T, db *sql.DB, electionID string, voterID int, school string, year int, choices ...string) string {
	t.Helper()

	ballotID, _ := auth.GenerateID(16)
	encoded, _ := json.Marshal(choices)
	_, err := db.Exec(`
		INSERT INTO ballot (id, election_id, ballot_key, source, voter_id, school, year, choices, submitted_at)
		VALUES ($1, $2, $3, 'import', $4, $5, $6, $7, $8)
	`, ballotID, electionID, "import:"+strconv.Itoa(voterID), voterID, school, year, string(encoded), time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test ballot: %v", err)
	}

	return ballotID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
