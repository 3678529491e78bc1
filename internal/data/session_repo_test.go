package data

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajapam/broker/internal/core"
	"github.com/rajapam/broker/internal/domain/model"
	"github.com/rajapam/broker/internal/testutil"
)

// seedSessionParents inserts the directory rows session inserts reference.
func seedSessionParents(t *testing.T, db *sql.DB) {
	t.Helper()

	stmts := []string{
		`INSERT INTO users (id, username) VALUES ('u-1', 'alice') ON CONFLICT DO NOTHING`,
		`INSERT INTO connections (id, name, hostname, protocol)
		 VALUES ('c-1', 'build box', '10.0.0.10', 'rdp') ON CONFLICT DO NOTHING`,
		`INSERT INTO connections (id, name, hostname, protocol)
		 VALUES ('c-2', 'db box', '10.0.0.11', 'ssh') ON CONFLICT DO NOTHING`,
		`INSERT INTO access_rules (id, name) VALUES ('ar-1', 'ops') ON CONFLICT DO NOTHING`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func createTestSession(t *testing.T, repo *SessionRepo, connectionID string, meta model.SessionMeta) *model.Session {
	t.Helper()

	session, err := repo.Create(context.Background(), &model.CreateSessionRequest{
		UserID:       "u-1",
		ConnectionID: connectionID,
		AccessRuleID: "ar-1",
		Meta:         meta,
	})
	require.NoError(t, err)
	return session
}

func TestSessionRepoCreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testutil.WithAutoDB(t, func(db *sql.DB) {
		seedSessionParents(t, db)
		ctx := context.Background()

		repo := NewSessionRepo(db)
		repo.now = testutil.FixedTimeFunc(testutil.TestTime())

		deadline := testutil.TestTime().Add(8 * time.Hour).UnixMilli()
		session := createTestSession(t, repo, "c-1", model.SessionMeta{
			ByUsername:                "alice",
			SessionShouldDisconnectAt: &deadline,
		})

		assert.Equal(t, model.SessionStatusInitializing, session.Status)
		assert.Equal(t, "u-1", session.UserID)
		assert.Equal(t, "c-1", session.ConnectionID)
		assert.Equal(t, "ar-1", session.AccessRuleID)
		assert.Equal(t, "alice", session.Meta.ByUsername)
		require.NotNil(t, session.Meta.SessionShouldDisconnectAt)
		assert.Equal(t, deadline, *session.Meta.SessionShouldDisconnectAt)
		assert.True(t, session.CreatedAt.Equal(testutil.TestTime()))
		assert.True(t, session.UpdatedAt.Equal(testutil.TestTime()))

		t.Run("round-trips through the store", func(t *testing.T) {
			got, err := repo.GetByID(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, session.ID, got.ID)
			assert.Equal(t, "alice", got.Meta.ByUsername)
			require.NotNil(t, got.Meta.SessionShouldDisconnectAt)
			assert.Equal(t, deadline, *got.Meta.SessionShouldDisconnectAt)
		})

		t.Run("unknown id", func(t *testing.T) {
			_, err := repo.GetByID(ctx, "3f1f9a58-3b66-44cc-9f35-07e2dc3c9de2")
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})

		t.Run("malformed id", func(t *testing.T) {
			_, err := repo.GetByID(ctx, "not-a-session-id")
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	})
}

// Status updates patch meta with jsonb concatenation, so every key written by
// earlier stages must survive later transitions.
func TestSessionRepoStatusUpdateKeepsMeta(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testutil.WithAutoDB(t, func(db *sql.DB) {
		seedSessionParents(t, db)
		ctx := context.Background()

		clock := testutil.NewTestTimeProvider(testutil.TestTime())
		repo := NewSessionRepo(db)
		repo.now = clock.Now

		deadline := testutil.TestTime().Add(8 * time.Hour).UnixMilli()
		session := createTestSession(t, repo, "c-1", model.SessionMeta{
			ByUsername:                "alice",
			SessionShouldDisconnectAt: &deadline,
		})

		clock.AddTime(time.Minute)
		sharing := int64(11)
		ready, err := repo.MarkProvisioned(ctx, session.ID, model.ProvisionedUpdate{
			AuthToken:        "tok-1",
			SharingProfileID: &sharing,
		})
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusReady, ready.Status)
		assert.Equal(t, "tok-1", ready.Meta.AuthToken)
		require.NotNil(t, ready.Meta.ReadyAt)
		assert.True(t, ready.Meta.ReadyAt.Equal(testutil.TestTime().Add(time.Minute)))

		clock.AddTime(time.Minute)
		live, err := repo.UpdateStatus(ctx, core.UpdateSessionStatusParams{
			ID:     session.ID,
			Status: model.SessionStatusLive,
		})
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusLive, live.Status)

		// Everything written before the live transition is still there.
		assert.Equal(t, "alice", live.Meta.ByUsername)
		assert.Equal(t, "tok-1", live.Meta.AuthToken)
		require.NotNil(t, live.Meta.SharingProfileID)
		assert.Equal(t, sharing, *live.Meta.SharingProfileID)
		require.NotNil(t, live.Meta.SessionShouldDisconnectAt)
		assert.Equal(t, deadline, *live.Meta.SessionShouldDisconnectAt)
		require.NotNil(t, live.Meta.ReadyAt)
		require.NotNil(t, live.Meta.LiveAt)
		assert.True(t, live.Meta.LiveAt.Equal(testutil.TestTime().Add(2*time.Minute)))
	})
}

func TestSessionRepoClosedRowsNeverChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testutil.WithAutoDB(t, func(db *sql.DB) {
		seedSessionParents(t, db)
		ctx := context.Background()

		repo := NewSessionRepo(db)
		repo.now = testutil.FixedTimeFunc(testutil.TestTime())

		session := createTestSession(t, repo, "c-1", model.SessionMeta{ByUsername: "alice"})

		closed, err := repo.UpdateStatus(ctx, core.UpdateSessionStatusParams{
			ID:     session.ID,
			Status: model.SessionStatusClosed,
		})
		require.NoError(t, err)
		require.Equal(t, model.SessionStatusClosed, closed.Status)
		require.NotNil(t, closed.Meta.ClosedAt)

		t.Run("reopen attempt returns the stored row", func(t *testing.T) {
			got, err := repo.UpdateStatus(ctx, core.UpdateSessionStatusParams{
				ID:     session.ID,
				Status: model.SessionStatusLive,
			})
			require.NoError(t, err)
			assert.Equal(t, model.SessionStatusClosed, got.Status)
			assert.Nil(t, got.Meta.LiveAt)
			require.NotNil(t, got.Meta.ClosedAt)
			assert.True(t, got.Meta.ClosedAt.Equal(*closed.Meta.ClosedAt))
		})

		t.Run("concurrent reopen attempts all lose", func(t *testing.T) {
			runner := testutil.NewConcurrentTestRunner(t, db)
			attempt := func() error {
				got, err := repo.UpdateStatus(ctx, core.UpdateSessionStatusParams{
					ID:     session.ID,
					Status: model.SessionStatusLive,
				})
				if err != nil {
					return err
				}
				if got.Status != model.SessionStatusClosed {
					return fmt.Errorf("session reopened to %q", got.Status)
				}
				return nil
			}
			errs := runner.RunConcurrent(attempt, attempt, attempt, attempt)
			runner.AssertNoErrors(errs)

			testutil.LogSessionStates(t, db, "after concurrent reopen attempts")
			states := testutil.InspectSessionStates(t, db)
			require.Len(t, states, 1)
			assert.Equal(t, string(model.SessionStatusClosed), states[0].Status)
		})

		t.Run("unknown session", func(t *testing.T) {
			_, err := repo.UpdateStatus(ctx, core.UpdateSessionStatusParams{
				ID:     "3f1f9a58-3b66-44cc-9f35-07e2dc3c9de2",
				Status: model.SessionStatusClosed,
			})
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	})
}

func TestSessionRepoMarkProvisioned(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testutil.WithAutoDB(t, func(db *sql.DB) {
		seedSessionParents(t, db)
		ctx := context.Background()

		repo := NewSessionRepo(db)
		repo.now = testutil.FixedTimeFunc(testutil.TestTime())

		session := createTestSession(t, repo, "c-1", model.SessionMeta{})

		ready, err := repo.MarkProvisioned(ctx, session.ID, model.ProvisionedUpdate{
			TransparentMode: true,
			TransparentFile: session.ID + ".rdp",
		})
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusReady, ready.Status)
		assert.True(t, ready.Meta.TransparentMode)
		assert.Equal(t, session.ID+".rdp", ready.Meta.TransparentFile)
		require.NotNil(t, ready.Meta.ReadyAt)

		t.Run("only initializing sessions are eligible", func(t *testing.T) {
			_, err := repo.MarkProvisioned(ctx, session.ID, model.ProvisionedUpdate{})
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	})
}

func TestSessionRepoListUnclosed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testutil.WithAutoDB(t, func(db *sql.DB) {
		seedSessionParents(t, db)
		ctx := context.Background()

		clock := testutil.NewTestTimeProvider(testutil.TestTime())
		repo := NewSessionRepo(db)
		repo.now = clock.Now

		older := createTestSession(t, repo, "c-1", model.SessionMeta{})
		_, err := repo.MarkProvisioned(ctx, older.ID, model.ProvisionedUpdate{AuthToken: "tok-1"})
		require.NoError(t, err)

		clock.AddTime(time.Minute)
		newer := createTestSession(t, repo, "c-2", model.SessionMeta{})
		_, err = repo.MarkProvisioned(ctx, newer.ID, model.ProvisionedUpdate{AuthToken: "tok-2"})
		require.NoError(t, err)
		_, err = repo.UpdateStatus(ctx, core.UpdateSessionStatusParams{
			ID:     newer.ID,
			Status: model.SessionStatusLive,
		})
		require.NoError(t, err)

		clock.AddTime(time.Minute)
		// Still provisioning: not part of the working set.
		createTestSession(t, repo, "c-1", model.SessionMeta{})

		clock.AddTime(time.Minute)
		done := createTestSession(t, repo, "c-2", model.SessionMeta{})
		_, err = repo.UpdateStatus(ctx, core.UpdateSessionStatusParams{
			ID:     done.ID,
			Status: model.SessionStatusClosed,
		})
		require.NoError(t, err)

		sessions, err := repo.ListUnclosed(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, older.ID, sessions[0].ID)
		assert.Equal(t, newer.ID, sessions[1].ID)
	})
}

func TestSessionRepoUsageCounts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testutil.WithAutoDB(t, func(db *sql.DB) {
		seedSessionParents(t, db)
		ctx := context.Background()

		repo := NewSessionRepo(db)
		repo.now = testutil.FixedTimeFunc(testutil.TestTime())

		// Two unclosed sessions on the same connection count once.
		first := createTestSession(t, repo, "c-1", model.SessionMeta{})
		_, err := repo.MarkProvisioned(ctx, first.ID, model.ProvisionedUpdate{AuthToken: "tok-1"})
		require.NoError(t, err)
		_, err = repo.UpdateStatus(ctx, core.UpdateSessionStatusParams{
			ID:     first.ID,
			Status: model.SessionStatusLive,
		})
		require.NoError(t, err)

		createTestSession(t, repo, "c-1", model.SessionMeta{})

		// Closed sessions do not hold their connection.
		gone := createTestSession(t, repo, "c-2", model.SessionMeta{})
		_, err = repo.UpdateStatus(ctx, core.UpdateSessionStatusParams{
			ID:     gone.ID,
			Status: model.SessionStatusClosed,
		})
		require.NoError(t, err)

		inUse, err := repo.CountConnectionsInUse(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, inUse)

		live, err := repo.CountLiveSessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, live)
	})
}
