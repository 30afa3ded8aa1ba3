package userstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orbitbot/lib/telemetry"
	"orbitbot/services/userstore/db"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) Store {
	cleanup := telemetry.SetupForTesting(t, "test:userstore")
	t.Cleanup(cleanup)

	sqlite, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	_, err = sqlite.Exec(db.Schema)
	require.NoError(t, err)

	return NewStore(sqlite)
}

func TestStore(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := store.GetUser(ctx, 100)
	require.ErrorIs(t, err, ErrNotFound)

	err = store.UpsertUser(ctx, User{ID: 100, Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	user, err := store.GetUser(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, User{ID: 100, Username: "alice", Password: "pw1", ScheduleMode: ScheduleNone}, user)

	err = store.UpdateScheduleMode(ctx, 100, ScheduleDaily)
	require.NoError(t, err)
	err = store.UpdateActiveYear(ctx, 100, 5784)
	require.NoError(t, err)

	// re-enrolling replaces credentials only, the schedule mode and the
	// year override survive
	err = store.UpsertUser(ctx, User{ID: 100, Username: "alice", Password: "pw2"})
	require.NoError(t, err)
	user, err = store.GetUser(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, "pw2", user.Password)
	require.Equal(t, 5784, user.ActiveYear)
	require.Equal(t, ScheduleDaily, user.ScheduleMode)

	err = store.DeleteUser(ctx, 100)
	require.NoError(t, err)
	_, err = store.GetUser(ctx, 100)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListByScheduleMode(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	require.NoError(t, store.UpsertUser(ctx, User{ID: 1, Username: "a", Password: "x"}))
	require.NoError(t, store.UpsertUser(ctx, User{ID: 2, Username: "b", Password: "y", ScheduleMode: ScheduleDaily}))
	require.NoError(t, store.UpsertUser(ctx, User{ID: 3, Username: "c", Password: "z", ScheduleMode: ScheduleDaily}))

	daily, err := store.ListUsersByScheduleMode(ctx, ScheduleDaily)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	require.Equal(t, int64(2), daily[0].ID)
	require.Equal(t, int64(3), daily[1].ID)

	weekly, err := store.ListUsersByScheduleMode(ctx, ScheduleWeekly)
	require.NoError(t, err)
	require.Empty(t, weekly)
}

func TestStoreUpdateMissingUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.ErrorIs(t, store.UpdateScheduleMode(ctx, 7, ScheduleWeekly), ErrNotFound)
	require.ErrorIs(t, store.UpdateActiveYear(ctx, 7, 5784), ErrNotFound)
	require.ErrorIs(t, store.UpdatePassword(ctx, 7, "pw"), ErrNotFound)
	require.ErrorIs(t, store.DeleteUser(ctx, 7), ErrNotFound)
}
