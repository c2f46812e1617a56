// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ranked-pick/models"
	"github.com/danielhkuo/ranked-pick/testutil"
)

// TestConcurrentBallotSubmissions verifies that simultaneous submissions
// from different voters each store exactly one ballot.
func TestConcurrentBallotSubmissions(t *testing.T) {
	env := newTestEnv(t)
	electionID, _, shareSlug := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusOpen)
	candidates := []string{"A", "B", "C"}
	for _, name := range candidates {
		testutil.AddTestCandidate(t, env.db, electionID, name)
	}

	const numVoters = 10
	tokens := make([]string, numVoters)
	for i := range tokens {
		tokens[i] = testutil.CreateTestVoter(t, env.db, electionID, fmt.Sprintf("voter%02d", i))
	}

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			choices := []string{candidates[i%3], candidates[(i+1)%3]}
			w := call(env.voting.SubmitBallot, "POST", "/elections/"+shareSlug+"/ballots",
				models.SubmitBallotRequest{Choices: choices}, voterHeaders(tokens[i]), "slug", shareSlug)
			if w.Code == http.StatusCreated {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(numVoters), created.Load())

	count, err := countBallots(env.db, electionID)
	require.NoError(t, err)
	assert.Equal(t, numVoters, count)
}

// TestConcurrentBallotUpdates has one voter resubmit many times at once.
// Only one row may survive.
func TestConcurrentBallotUpdates(t *testing.T) {
	env := newTestEnv(t)
	electionID, _, shareSlug := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusOpen)
	testutil.AddTestCandidate(t, env.db, electionID, "A")
	testutil.AddTestCandidate(t, env.db, electionID, "B")
	token := testutil.CreateTestVoter(t, env.db, electionID, "alice")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			choices := []string{"A", "B"}
			if i%2 == 1 {
				choices = []string{"B", "A"}
			}
			call(env.voting.SubmitBallot, "POST", "/elections/"+shareSlug+"/ballots",
				models.SubmitBallotRequest{Choices: choices}, voterHeaders(token), "slug", shareSlug)
		}(i)
	}
	wg.Wait()

	count, err := countBallots(env.db, electionID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestConcurrentUsernameClaims races distinct usernames and checks that
// voter IDs stay unique and dense.
func TestConcurrentUsernameClaims(t *testing.T) {
	env := newTestEnv(t)
	_, _, shareSlug := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusOpen)

	const numClaims = 12
	ids := make(chan int, numClaims)
	var wg sync.WaitGroup
	for i := 0; i < numClaims; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := call(env.voting.ClaimUsername, "POST", "/elections/"+shareSlug+"/claim-username",
				models.ClaimUsernameRequest{Username: fmt.Sprintf("racer%02d", i)}, nil, "slug", shareSlug)
			if w.Code != http.StatusCreated {
				return
			}
			var resp models.ClaimUsernameResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err == nil {
				ids <- resp.VoterID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[int]bool{}
	for id := range ids {
		assert.False(t, seen[id], "voter id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, numClaims)
	for id := 1; id <= numClaims; id++ {
		assert.True(t, seen[id], "voter id %d missing", id)
	}
}

// TestConcurrentClose races manual closes; exactly one wins and a single
// snapshot is stored.
func TestConcurrentClose(t *testing.T) {
	env, electionID, _ := fourWayElection(t, models.StatusOpen)

	const closers = 5
	var won, lost atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < closers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := CloseElection(env.db, electionID)
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, ErrNotOpen):
				lost.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, int32(closers-1), lost.Load())

	var snapshots int
	err := env.db.QueryRow(`SELECT COUNT(*) FROM result_snapshot WHERE election_id = $1`, electionID).Scan(&snapshots)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshots)
}
