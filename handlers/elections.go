// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/ranked-pick/auth"
	"github.com/danielhkuo/ranked-pick/ballot"
	"github.com/danielhkuo/ranked-pick/cliparse"
	"github.com/danielhkuo/ranked-pick/election"
	"github.com/danielhkuo/ranked-pick/ingest"
	"github.com/danielhkuo/ranked-pick/middleware"
	"github.com/danielhkuo/ranked-pick/models"
)

// maxImportBytes bounds a single ballot import request.
const maxImportBytes = 32 << 20

type ElectionHandler struct {
	db      *sql.DB
	cfg     cliparse.Config
	keys    auth.Keyring
	mapping ingest.Mapping
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config, mapping ingest.Mapping) *ElectionHandler {
	return &ElectionHandler{
		db:      db,
		cfg:     cfg,
		keys:    auth.NewKeyring(cfg.AdminKeySalt, cfg.ElectionSlugSalt),
		mapping: mapping,
	}
}

// authorize checks the path election ID against X-Admin-Key and writes the
// error response itself.
func (h *ElectionHandler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return "", false
	}
	if err := h.keys.ValidateAdminKey(electionID, r.Header.Get("X-Admin-Key")); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return "", false
	}
	return electionID, true
}

func (h *ElectionHandler) status(w http.ResponseWriter, electionID string) (string, bool) {
	var status string
	err := h.db.QueryRow("SELECT status FROM election WHERE id = $1", electionID).Scan(&status)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return "", false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return "", false
	}
	return status, true
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

	var closesAt *time.Time
	if req.ClosesAt != nil {
		if !req.ClosesAt.After(time.Now()) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "closes_at must be in the future")
			return
		}
		t := req.ClosesAt.UTC()
		closesAt = &t
	}

	electionID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate election ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO election (id, title, description, creator_name, method, status,
			ballot_length, truncate_at_no_confidence, closes_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, electionID, req.Title, req.Description, req.CreatorName, models.MethodIRV, models.StatusDraft,
		req.BallotLength, req.TruncateAtNoConfidence, closesAt, time.Now().UTC())
	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", electionID, "creator", req.CreatorName)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{
		ElectionID: electionID,
		AdminKey:   h.keys.AdminKey(electionID),
	})
}

// GetElectionAdmin handles GET /elections/{id}/admin
func (h *ElectionHandler) GetElectionAdmin(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	e, err := electionByID(h.db, electionID)
	if errors.Is(err, ErrElectionNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	candidates, err := loadCandidates(h.db, electionID)
	if err != nil {
		slog.Error("failed to load candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionWithCandidates{
		Election:   e,
		Candidates: candidates,
	})
}

// AddCandidate handles POST /elections/{id}/candidates
func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req models.AddCandidateRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	status, ok := h.status(w, electionID)
	if !ok {
		return
	}
	if status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot add candidates to non-draft election")
		return
	}

	var exists bool
	var position int
	err := h.db.QueryRow(`
		SELECT
			EXISTS (SELECT 1 FROM candidate WHERE election_id = $1 AND name = $2),
			COALESCE((SELECT MAX(position) FROM candidate WHERE election_id = $3), 0) + 1
	`, electionID, name, electionID).Scan(&exists, &position)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if exists {
		middleware.ErrorResponse(w, http.StatusConflict, "Candidate already exists")
		return
	}

	candidateID, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate candidate ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add candidate")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO candidate (id, election_id, name, position)
		VALUES ($1, $2, $3, $4)
	`, candidateID, electionID, name, position)
	if err != nil {
		slog.Error("failed to insert candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add candidate")
		return
	}

	slog.Info("candidate added", "election_id", electionID, "candidate", name, "position", position)

	middleware.JSONResponse(w, http.StatusCreated, models.AddCandidateResponse{
		CandidateID: candidateID,
		Position:    position,
	})
}

// ImportBallots handles POST /elections/{id}/ballots/import. The body is
// either a CSV export read with the configured column mapping
// (Content-Type: text/csv) or a JSON ImportBallotsRequest. Names not yet on
// the ballot are appended as candidates in first-seen order.
func (h *ElectionHandler) ImportBallots(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	status, ok := h.status(w, electionID)
	if !ok {
		return
	}
	if status == models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot import ballots into a closed election")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	existing, err := loadCandidates(h.db, electionID)
	if err != nil {
		slog.Error("failed to load candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var ballots []*ballot.Ballot
	var names []string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		ballots, names, err = ingest.Read(r.Body, h.mapping)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		var req models.ImportBallotsRequest
		if !middleware.DecodeAndValidate(w, r, &req) {
			return
		}
		ballots, names, err = ballotsFromInput(req.Ballots, candidateNames(existing))
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if len(ballots) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "No ballots to import")
		return
	}

	known := ballot.NewSet(candidateNames(existing)...)
	position := 0
	if n := len(existing); n > 0 {
		position = existing[n-1].Position
	}

	type newCandidate struct {
		id, name string
		position int
	}
	var added []newCandidate
	for _, name := range names {
		if known.Has(name) {
			continue
		}
		known[name] = struct{}{}
		id, err := auth.GenerateID(12)
		if err != nil {
			slog.Error("failed to generate candidate ID", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to import ballots")
			return
		}
		position++
		added = append(added, newCandidate{id: id, name: name, position: position})
	}

	type row struct {
		id, key, choices string
		b                *ballot.Ballot
		submittedAt      time.Time
	}
	rows := make([]row, 0, len(ballots))
	now := time.Now().UTC()
	for _, b := range ballots {
		id, err := auth.GenerateID(16)
		if err != nil {
			slog.Error("failed to generate ballot ID", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to import ballots")
			return
		}
		choices, err := encodeChoices(b.Choices())
		if err != nil {
			slog.Error("failed to encode ballot", "error", err, "voter_id", b.VoterID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to import ballots")
			return
		}
		submittedAt := now
		if !b.Timestamp.IsZero() {
			submittedAt = b.Timestamp.UTC()
		}
		rows = append(rows, row{
			id:          id,
			key:         importKey(b.VoterID),
			choices:     choices,
			b:           b,
			submittedAt: submittedAt,
		})
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	for _, c := range added {
		_, err := tx.Exec(`
			INSERT INTO candidate (id, election_id, name, position)
			VALUES ($1, $2, $3, $4)
		`, c.id, electionID, c.name, c.position)
		if err != nil {
			slog.Error("failed to insert candidate", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to import ballots")
			return
		}
	}

	for _, rw := range rows {
		_, err := tx.Exec(`
			INSERT INTO ballot (id, election_id, ballot_key, source, voter_id, school, year, choices, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (election_id, ballot_key) DO UPDATE SET
				voter_id = excluded.voter_id,
				school = excluded.school,
				year = excluded.year,
				choices = excluded.choices,
				submitted_at = excluded.submitted_at
		`, rw.id, electionID, rw.key, models.SourceImport, rw.b.VoterID, rw.b.School, rw.b.Year,
			rw.choices, rw.submittedAt)
		if err != nil {
			slog.Error("failed to insert ballot", "error", err, "voter_id", rw.b.VoterID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to import ballots")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to import ballots")
		return
	}

	addedNames := make([]string, len(added))
	for i, c := range added {
		addedNames[i] = c.name
	}

	slog.Info("ballots imported",
		"election_id", electionID,
		"ballots", len(rows),
		"new_candidates", len(added),
	)

	middleware.JSONResponse(w, http.StatusOK, models.ImportBallotsResponse{
		Imported:   len(rows),
		Candidates: addedNames,
	})
}

func importKey(voterID int) string {
	return "import:" + strconv.Itoa(voterID)
}

// ballotsFromInput converts JSON ballots and collects candidate names not in
// existing, in first-seen order. Every ballot gets one slot per candidate.
func ballotsFromInput(in []models.BallotInput, existing []string) ([]*ballot.Ballot, []string, error) {
	known := ballot.NewSet(existing...)
	var names []string
	for _, bi := range in {
		for _, name := range bi.Choices {
			name = strings.TrimSpace(name)
			if name != "" && !known.Has(name) {
				known[name] = struct{}{}
				names = append(names, name)
			}
		}
	}

	ballots := make([]*ballot.Ballot, 0, len(in))
	for _, bi := range in {
		b := ballot.New(bi.VoterID, strings.TrimSpace(bi.School), bi.Year, max(len(bi.Choices), len(known)))
		if bi.SubmittedAt != nil {
			b.Timestamp = *bi.SubmittedAt
		}
		for i, name := range bi.Choices {
			if err := b.SetChoice(i+1, strings.TrimSpace(name)); err != nil {
				return nil, nil, fmt.Errorf("voter %d: %w", bi.VoterID, err)
			}
		}
		ballots = append(ballots, b)
	}
	return ballots, names, nil
}

// PublishElection handles POST /elections/{id}/publish
func (h *ElectionHandler) PublishElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var status string
	var candidateCount int
	err := h.db.QueryRow(`
		SELECT e.status, COUNT(c.id)
		FROM election e
		LEFT JOIN candidate c ON e.id = c.election_id
		WHERE e.id = $1
		GROUP BY e.status
	`, electionID).Scan(&status, &candidateCount)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not in draft status")
		return
	}
	if candidateCount < 2 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Election must have at least 2 candidates")
		return
	}

	shareSlug := h.keys.ShareSlug(electionID)

	_, err = h.db.Exec(`
		UPDATE election
		SET status = $1, share_slug = $2
		WHERE id = $3
	`, models.StatusOpen, shareSlug, electionID)
	if err != nil {
		slog.Error("failed to publish election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to publish election")
		return
	}

	slog.Info("election published", "election_id", electionID, "share_slug", shareSlug)

	middleware.JSONResponse(w, http.StatusOK, models.PublishElectionResponse{
		ShareSlug: shareSlug,
		ShareURL:  h.cfg.BaseURL + "/elections/" + shareSlug,
	})
}

// CloseElection handles POST /elections/{id}/close
func (h *ElectionHandler) CloseElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	snapshot, err := CloseElection(h.db, electionID)
	switch {
	case errors.Is(err, ErrElectionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	case errors.Is(err, ErrNotOpen):
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open")
		return
	case errors.Is(err, election.ErrNoCandidates):
		middleware.ErrorResponse(w, http.StatusConflict, "Election has no candidates")
		return
	case err != nil:
		slog.Error("failed to close election", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close election")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CloseElectionResponse{
		ClosedAt: snapshot.ComputedAt,
		Snapshot: snapshot,
	})
}
