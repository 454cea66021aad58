package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyattend/internal/model"
)

func newTestRepo(t *testing.T) (*Repository, *DB) {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return NewRepository(db), db
}

func TestCreateAndFindUser(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateUser(ctx, "alice", "hash", model.RoleUser)
	require.NoError(t, err)
	assert.Positive(t, id)

	u, err := repo.FindUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, model.RoleUser, u.Role)

	_, err = repo.FindUserByName(ctx, "Alice")
	assert.ErrorIs(t, err, ErrNotFound, "usernames are case-sensitive")
}

func TestCreateUserDuplicate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "alice", "h1", model.RoleUser)
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, "alice", "h2", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrDuplicate)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestConcurrentRegistrationSingleWinner(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateUser(ctx, "race", "h", model.RoleUser)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, dup := 0, 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicate)
		dup++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestInsertAttendanceFirstWriteWins(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	inserted, err := repo.InsertAttendanceIfAbsent(ctx, 1, "2024-05-01", "Present")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertAttendanceIfAbsent(ctx, 1, "2024-05-01", "Absent")
	require.NoError(t, err)
	assert.False(t, inserted)

	recs, err := repo.ListAttendance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Record{{Date: "2024-05-01", Status: "Present"}}, recs)
}

func TestConcurrentMarkSingleRow(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	type result struct {
		inserted bool
		err      error
	}
	results := make(chan result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inserted, err := repo.InsertAttendanceIfAbsent(ctx, 1, "2024-05-01", fmt.Sprintf("status-%d", i))
			results <- result{inserted, err}
		}(i)
	}
	wg.Wait()
	close(results)

	inserted := 0
	for res := range results {
		require.NoError(t, res.err)
		if res.inserted {
			inserted++
		}
	}
	assert.Equal(t, 1, inserted)

	recs, err := repo.ListAttendance(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestListAttendanceOrderAndIsolation(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, day := range []string{"2024-05-02", "2024-04-30", "2024-05-10"} {
		_, err := repo.InsertAttendanceIfAbsent(ctx, 1, day, "Present")
		require.NoError(t, err)
	}
	_, err := repo.InsertAttendanceIfAbsent(ctx, 2, "2024-05-03", "Late")
	require.NoError(t, err)

	recs, err := repo.ListAttendance(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "2024-05-10", recs[0].Date)
	assert.Equal(t, "2024-05-02", recs[1].Date)
	assert.Equal(t, "2024-04-30", recs[2].Date)

	empty, err := repo.ListAttendance(ctx, 99)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMigrateIsIdempotent(t *testing.T) {
	_, db := newTestRepo(t)
	assert.NoError(t, db.Migrate(context.Background()))
	assert.True(t, db.Healthy(context.Background()))
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))
	lite := &DB{Dialect: SQLite}
	assert.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.Error(t, err)
}

func TestRedisHealth(t *testing.T) {
	assert.Nil(t, NewRedis(""))
	var none *Redis
	assert.False(t, none.Healthy(context.Background()))

	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr())
	t.Cleanup(func() { _ = r.Close() })
	assert.True(t, r.Healthy(context.Background()))
}
