// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ranked-pick/ballot"
	"github.com/danielhkuo/ranked-pick/cliparse"
	"github.com/danielhkuo/ranked-pick/ingest"
	"github.com/danielhkuo/ranked-pick/models"
	"github.com/danielhkuo/ranked-pick/testutil"
)

type testEnv struct {
	db      *sql.DB
	cfg     cliparse.Config
	admin   *ElectionHandler
	voting  *VotingHandler
	results *ResultsHandler
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	return testEnv{
		db:      db,
		cfg:     cfg,
		admin:   NewElectionHandler(db, cfg, ingest.DefaultMapping()),
		voting:  NewVotingHandler(db, cfg),
		results: NewResultsHandler(db, cfg),
	}
}

// call runs handler against a request built by testutil.MakeRequest with
// the given name/value path values set.
func call(handler http.HandlerFunc, method, path string, body interface{}, headers map[string]string, pathValues ...string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, headers)
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func adminHeaders(adminKey string) map[string]string {
	return map[string]string{"X-Admin-Key": adminKey}
}

func voterHeaders(voterToken string) map[string]string {
	return map[string]string{"X-Voter-Token": voterToken}
}

// fourWayElection creates an election with candidates A, B, C and
// No Confidence holding ten imported ballots:
//
//	4 x [A]                  Oak 2026
//	3 x [B]                  Elm 2027
//	2 x [C, A]               Oak 2027
//	1 x [No Confidence, A]   Elm 2026
//
// A wins with a majority in round 3 after No Confidence and then C are
// eliminated. A status of closed also closes the election.
func fourWayElection(t *testing.T, status string) (env testEnv, electionID, shareSlug string) {
	t.Helper()

	env = newTestEnv(t)
	electionID, _, shareSlug = testutil.CreateTestElection(t, env.db, env.cfg, models.StatusOpen)
	for _, name := range []string{"A", "B", "C", ballot.NoConfidence} {
		testutil.AddTestCandidate(t, env.db, electionID, name)
	}

	voter := 0
	add := func(n int, school string, year int, choices ...string) {
		for i := 0; i < n; i++ {
			voter++
			testutil.InsertTestBallot(t, env.db, electionID, voter, school, year, choices...)
		}
	}
	add(4, "Oak", 2026, "A")
	add(3, "Elm", 2027, "B")
	add(2, "Oak", 2027, "C", "A")
	add(1, "Elm", 2026, ballot.NoConfidence, "A")

	if status == models.StatusClosed {
		_, err := CloseElection(env.db, electionID)
		require.NoError(t, err)
	}
	return env, electionID, shareSlug
}
