// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielhkuo/ranked-pick/cliparse"
	"github.com/danielhkuo/ranked-pick/election"
	"github.com/danielhkuo/ranked-pick/middleware"
	"github.com/danielhkuo/ranked-pick/models"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

func (h *ResultsHandler) election(w http.ResponseWriter, r *http.Request) (models.Election, bool) {
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
	return e, true
}

// closedElection is election plus the seal: results stay hidden while
// voting is open.
func (h *ResultsHandler) closedElection(w http.ResponseWriter, r *http.Request) (models.Election, bool) {
	e, ok := h.election(w, r)
	if !ok {
		return models.Election{}, false
	}
	if e.Status != models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusForbidden, "Results are hidden until the election is closed")
		return models.Election{}, false
	}
	return e, true
}

// parseFilters reads ?school= and ?year= into ballot filters.
func parseFilters(r *http.Request) (models.Filters, []election.Filter, error) {
	var f models.Filters
	var filters []election.Filter

	q := r.URL.Query()
	if school := strings.TrimSpace(q.Get("school")); school != "" {
		f.School = school
		filters = append(filters, election.BySchool(school))
	}
	if year := q.Get("year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil || y <= 0 {
			return models.Filters{}, nil, errors.New("year must be a positive integer")
		}
		f.Year = y
		filters = append(filters, election.ByYear(y))
	}
	return f, filters, nil
}

// recount re-runs the count of a closed election. Ballots cannot change
// once closed, so the elimination order matches the stored snapshot.
func (h *ResultsHandler) recount(w http.ResponseWriter, e models.Election) (*election.Election, bool) {
	ec, _, err := tabulate(h.db, e.ID, e.TruncateAtNoConfidence)
	if err != nil {
		slog.Error("failed to tabulate election", "error", err, "election_id", e.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute results")
		return nil, false
	}
	return ec, true
}

// GetElection handles GET /elections/{slug}
// Returns election details and candidates, but NOT results
func (h *ResultsHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	e, ok := h.election(w, r)
	if !ok {
		return
	}

	candidates, err := loadCandidates(h.db, e.ID)
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

// GetResults handles GET /elections/{slug}/results
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	e, ok := h.closedElection(w, r)
	if !ok {
		return
	}

	if e.FinalSnapshotID == nil {
		slog.Error("closed election has no snapshot", "election_id", e.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Results not available")
		return
	}

	snapshot, err := loadSnapshot(h.db, *e.FinalSnapshotID)
	if err != nil {
		slog.Error("failed to load snapshot", "error", err, "election_id", e.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		Election:    e,
		Snapshot:    snapshot,
		BallotCount: snapshot.BallotCount,
	})
}

// GetRound handles GET /elections/{slug}/rounds/{n}?school=&year=
func (h *ResultsHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "round must be an integer")
		return
	}
	filters, fns, err := parseFilters(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	e, ok := h.closedElection(w, r)
	if !ok {
		return
	}
	ec, ok := h.recount(w, e)
	if !ok {
		return
	}

	report, err := ec.RoundTally(round, fns...)
	if errors.Is(err, election.ErrRoundOutOfRange) {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to tally round", "error", err, "election_id", e.ID, "round", round)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute results")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.RoundTallyResponse{
		ElectionID: e.ID,
		Filters:    filters,
		Report:     report,
	})
}

// GetFullResults handles GET /elections/{slug}/full-results?school=&year=
func (h *ResultsHandler) GetFullResults(w http.ResponseWriter, r *http.Request) {
	filters, fns, err := parseFilters(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	e, ok := h.closedElection(w, r)
	if !ok {
		return
	}
	ec, ok := h.recount(w, e)
	if !ok {
		return
	}

	full, err := ec.FullResults(fns...)
	if err != nil {
		slog.Error("failed to build full results", "error", err, "election_id", e.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute results")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.FullResultsResponse{
		ElectionID: e.ID,
		Filters:    filters,
		Result:     ec.Result(),
		Results:    full,
	})
}

// GetBallotCount handles GET /elections/{slug}/ballot-count
// Visible while the election is open
func (h *ResultsHandler) GetBallotCount(w http.ResponseWriter, r *http.Request) {
	e, ok := h.election(w, r)
	if !ok {
		return
	}

	count, err := countBallots(h.db, e.ID)
	if err != nil {
		slog.Error("failed to count ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.BallotCountResponse{BallotCount: count})
}
