// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/ranked-pick/auth"
	"github.com/danielhkuo/ranked-pick/ballot"
	"github.com/danielhkuo/ranked-pick/cliparse"
	"github.com/danielhkuo/ranked-pick/middleware"
	"github.com/danielhkuo/ranked-pick/models"
)

type VotingHandler struct {
	db   *sql.DB
	cfg  cliparse.Config
	keys auth.Keyring
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{
		db:   db,
		cfg:  cfg,
		keys: auth.NewKeyring(cfg.AdminKeySalt, cfg.ElectionSlugSalt),
	}
}

// openElection looks up the election behind the path slug and writes the
// error response when it is missing or not accepting votes.
func (h *VotingHandler) openElection(w http.ResponseWriter, r *http.Request) (models.Election, bool) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return models.Election{}, false
	}

	e, err := electionBySlug(h.db, shareSlug)
	if errors.Is(err, ErrElectionNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return models.Election{}, false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Election{}, false
	}

	if e.Status != models.StatusOpen {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open for voting")
		return models.Election{}, false
	}
	return e, true
}

// voterID resolves X-Voter-Token to the voter's numeric ID within the
// election.
func (h *VotingHandler) voterID(w http.ResponseWriter, r *http.Request, electionID string) (string, int, bool) {
	voterToken := r.Header.Get("X-Voter-Token")
	if voterToken == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Token header required")
		return "", 0, false
	}
	if err := auth.CheckVoterToken(voterToken); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token for this election")
		return "", 0, false
	}

	var voterID int
	err := h.db.QueryRow(`
		SELECT voter_id FROM voter_claim
		WHERE election_id = $1 AND voter_token = $2
	`, electionID, voterToken).Scan(&voterID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token for this election")
		return "", 0, false
	}
	if err != nil {
		slog.Error("failed to verify voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return "", 0, false
	}
	return voterToken, voterID, true
}

func voterKey(voterToken string) string {
	return "voter:" + voterToken
}

// ClaimUsername handles POST /elections/{slug}/claim-username
func (h *VotingHandler) ClaimUsername(w http.ResponseWriter, r *http.Request) {
	var req models.ClaimUsernameRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)

	e, ok := h.openElection(w, r)
	if !ok {
		return
	}

	var taken bool
	err := h.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM voter_claim
			WHERE election_id = $1 AND username = $2
		)
	`, e.ID, username).Scan(&taken)
	if err != nil {
		slog.Error("failed to query voter claims", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "Username already taken")
		return
	}

	voterToken, err := auth.GenerateVoterToken()
	if err != nil {
		slog.Error("failed to generate voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim username")
		return
	}

	// Voter IDs count up per election so claimed voters look like the
	// numbered rows of an imported export.
	_, err = h.db.Exec(`
		INSERT INTO voter_claim (election_id, username, voter_token, voter_id)
		SELECT $1, $2, $3, COALESCE(MAX(voter_id), 0) + 1
		FROM voter_claim
		WHERE election_id = $4
	`, e.ID, username, voterToken, e.ID)
	if err != nil {
		slog.Error("failed to insert voter claim", "error", err, "election_id", e.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim username")
		return
	}

	var voterID int
	err = h.db.QueryRow(`
		SELECT voter_id FROM voter_claim WHERE election_id = $1 AND voter_token = $2
	`, e.ID, voterToken).Scan(&voterID)
	if err != nil {
		slog.Error("failed to read voter claim", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim username")
		return
	}

	slog.Info("username claimed", "election_id", e.ID, "username", username, "voter_id", voterID)

	middleware.JSONResponse(w, http.StatusCreated, models.ClaimUsernameResponse{
		VoterToken: voterToken,
		VoterID:    voterID,
	})
}

// checkChoices trims the submitted names and checks them against the
// declared candidates.
func checkChoices(choices []string, candidates []string, ballotLength int) ([]string, error) {
	limit := len(candidates)
	if ballotLength > 0 && ballotLength < limit {
		limit = ballotLength
	}
	if len(choices) > limit {
		return nil, fmt.Errorf("at most %d choices allowed", limit)
	}

	declared := ballot.NewSet(candidates...)
	seen := ballot.NewSet()
	out := make([]string, len(choices))
	for i, name := range choices {
		name = strings.TrimSpace(name)
		if !declared.Has(name) {
			return nil, fmt.Errorf("unknown candidate %q", name)
		}
		if seen.Has(name) {
			return nil, fmt.Errorf("candidate %q ranked more than once", name)
		}
		seen[name] = struct{}{}
		out[i] = name
	}
	return out, nil
}

// SubmitBallot handles POST /elections/{slug}/ballots. A second submission
// by the same voter replaces the first.
func (h *VotingHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitBallotRequest
	if !middleware.DecodeAndValidate(w, r, &req) {
		return
	}

	e, ok := h.openElection(w, r)
	if !ok {
		return
	}
	voterToken, voterID, ok := h.voterID(w, r, e.ID)
	if !ok {
		return
	}

	candidates, err := loadCandidates(h.db, e.ID)
	if err != nil {
		slog.Error("failed to load candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	choices, err := checkChoices(req.Choices, candidateNames(candidates), e.BallotLength)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	encoded, err := encodeChoices(choices)
	if err != nil {
		slog.Error("failed to encode choices", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
		return
	}

	key := voterKey(voterToken)
	var ballotID string
	err = h.db.QueryRow(`
		SELECT id FROM ballot WHERE election_id = $1 AND ballot_key = $2
	`, e.ID, key).Scan(&ballotID)
	isUpdate := err == nil
	if err != nil && err != sql.ErrNoRows {
		slog.Error("failed to query ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !isUpdate {
		if ballotID, err = auth.GenerateID(16); err != nil {
			slog.Error("failed to generate ballot ID", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
			return
		}
	}

	ipHash := h.keys.HashIP(middleware.GetClientIP(r))

	_, err = h.db.Exec(`
		INSERT INTO ballot (id, election_id, ballot_key, source, voter_id, school, year, choices,
			submitted_at, ip_hash, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (election_id, ballot_key) DO UPDATE SET
			school = excluded.school,
			year = excluded.year,
			choices = excluded.choices,
			submitted_at = excluded.submitted_at,
			ip_hash = excluded.ip_hash,
			user_agent = excluded.user_agent
	`, ballotID, e.ID, key, models.SourceVoter, voterID, strings.TrimSpace(req.School), req.Year,
		encoded, time.Now().UTC(), ipHash, r.UserAgent())
	if err != nil {
		slog.Error("failed to save ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
		return
	}

	message := "Ballot submitted successfully"
	if isUpdate {
		message = "Ballot updated successfully"
	}

	slog.Info("ballot submitted", "election_id", e.ID, "ballot_id", ballotID, "is_update", isUpdate)

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitBallotResponse{
		BallotID: ballotID,
		Message:  message,
	})
}

// GetMyBallot handles GET /elections/{slug}/my-ballot
func (h *VotingHandler) GetMyBallot(w http.ResponseWriter, r *http.Request) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return
	}

	e, err := electionBySlug(h.db, shareSlug)
	if errors.Is(err, ErrElectionNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	voterToken, _, ok := h.voterID(w, r, e.ID)
	if !ok {
		return
	}

	var resp models.MyBallotResponse
	var choices string
	err = h.db.QueryRow(`
		SELECT id, choices, school, year, submitted_at
		FROM ballot
		WHERE election_id = $1 AND ballot_key = $2
	`, e.ID, voterKey(voterToken)).Scan(&resp.BallotID, &choices, &resp.School, &resp.Year, &resp.SubmittedAt)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "No ballot submitted yet")
		return
	}
	if err != nil {
		slog.Error("failed to query ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := json.Unmarshal([]byte(choices), &resp.Choices); err != nil {
		slog.Error("failed to decode ballot choices", "error", err, "ballot_id", resp.BallotID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
