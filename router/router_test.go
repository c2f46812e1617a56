// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ranked-pick/ingest"
	"github.com/danielhkuo/ranked-pick/middleware"
	"github.com/danielhkuo/ranked-pick/models"
	"github.com/danielhkuo/ranked-pick/testutil"
)

func newTestMux(t *testing.T, limiter *middleware.RateLimiter) *http.ServeMux {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewRouter(db, testutil.GetTestConfig(), ingest.DefaultMapping(), limiter)
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestMux(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRootEndpoint(t *testing.T) {
	mux := newTestMux(t, nil)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ranked-pick API v1", w.Body.String())
}

func TestRouteExistence(t *testing.T) {
	mux := newTestMux(t, nil)

	// Handlers may answer 400, 401 or 404 for made-up IDs; a 405 means no
	// route matched the method.
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/"},

		{"POST", "/elections"},
		{"GET", "/elections/test-id/admin"},
		{"POST", "/elections/test-id/candidates"},
		{"POST", "/elections/test-id/ballots/import"},
		{"POST", "/elections/test-id/publish"},
		{"POST", "/elections/test-id/close"},

		{"POST", "/elections/test-slug/claim-username"},
		{"POST", "/elections/test-slug/ballots"},
		{"GET", "/elections/test-slug/my-ballot"},

		{"GET", "/elections/test-slug"},
		{"GET", "/elections/test-slug/results"},
		{"GET", "/elections/test-slug/rounds/1"},
		{"GET", "/elections/test-slug/full-results"},
		{"GET", "/elections/test-slug/ballot-count"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.NotEqual(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(t, nil)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},
		{"DELETE", "/elections/test-id/admin"},
		{"PUT", "/elections/test-id/candidates"},
		{"DELETE", "/elections/test-slug/rounds/1"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	electionID, adminKey, _ := testutil.CreateTestElection(t, db, cfg, models.StatusDraft)
	_, _, shareSlug := testutil.CreateTestElection(t, db, cfg, models.StatusOpen)

	mux := NewRouter(db, cfg, ingest.DefaultMapping(), nil)

	t.Run("election ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/elections/"+electionID+"/admin", nil)
		req.Header.Set("X-Admin-Key", adminKey)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("share slug", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/elections/"+shareSlug, nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("round number on open election", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/elections/"+shareSlug+"/rounds/1", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	})
}

func TestBallotRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 2)
	mux := newTestMux(t, limiter)

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/elections/test-slug/ballots", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	require.Len(t, codes, 3)
	assert.NotEqual(t, http.StatusTooManyRequests, codes[0])
	assert.NotEqual(t, http.StatusTooManyRequests, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])

	t.Run("other routes are not limited", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/elections/test-slug", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
