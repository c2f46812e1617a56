// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ranked-pick/models"
	"github.com/danielhkuo/ranked-pick/testutil"
)

func setClosesAt(t *testing.T, env testEnv, electionID string, at time.Time) {
	t.Helper()
	_, err := env.db.Exec(`UPDATE election SET closes_at = $1 WHERE id = $2`, at.UTC(), electionID)
	require.NoError(t, err)
}

func TestCloser_RunOnce(t *testing.T) {
	env, dueID, _ := fourWayElection(t, models.StatusOpen)
	now := time.Now()
	setClosesAt(t, env, dueID, now.Add(-time.Minute))

	laterID, _, _ := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusOpen)
	testutil.AddTestCandidate(t, env.db, laterID, "A")
	setClosesAt(t, env, laterID, now.Add(time.Hour))

	// Open without a deadline: only closed by hand.
	manualID, _, _ := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusOpen)
	testutil.AddTestCandidate(t, env.db, manualID, "A")

	closer := NewCloser(env.db)

	closed, err := closer.RunOnce(now)
	require.NoError(t, err)
	assert.Equal(t, []string{dueID}, closed)

	e, err := electionByID(env.db, dueID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, e.Status)
	require.NotNil(t, e.FinalSnapshotID)

	snapshot, err := loadSnapshot(env.db, *e.FinalSnapshotID)
	require.NoError(t, err)
	assert.Equal(t, "A", snapshot.Result.Winner)

	for _, id := range []string{laterID, manualID} {
		e, err := electionByID(env.db, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOpen, e.Status)
	}

	t.Run("second sweep is a no-op", func(t *testing.T) {
		closed, err := closer.RunOnce(now)
		require.NoError(t, err)
		assert.Empty(t, closed)
	})

	t.Run("later deadline passes", func(t *testing.T) {
		closed, err := closer.RunOnce(now.Add(2 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{laterID}, closed)
	})
}

func TestCloser_ScheduleRejectsBadSpec(t *testing.T) {
	env := newTestEnv(t)
	closer := NewCloser(env.db)

	assert.Error(t, closer.Start("every minute please"))
	assert.Error(t, closer.Schedule("* *", func() {}))
}

func TestCloser_StartRunsJobs(t *testing.T) {
	env, electionID, _ := fourWayElection(t, models.StatusOpen)
	setClosesAt(t, env, electionID, time.Now().Add(-time.Second))

	closer := NewCloser(env.db)
	var extra atomic.Int32
	require.NoError(t, closer.Schedule("@every 1s", func() { extra.Add(1) }))
	require.NoError(t, closer.Start("@every 1s"))
	defer func() { <-closer.Stop().Done() }()

	assert.Eventually(t, func() bool {
		e, err := electionByID(env.db, electionID)
		return err == nil && e.Status == models.StatusClosed
	}, 5*time.Second, 100*time.Millisecond)
	assert.Eventually(t, func() bool { return extra.Load() > 0 }, 5*time.Second, 100*time.Millisecond)
}
