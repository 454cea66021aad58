package attendance

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyattend/internal/apperr"
	"dailyattend/internal/model"
	"dailyattend/internal/queue"
)

type key struct {
	user int64
	day  string
}

type memRecords struct {
	mu   sync.Mutex
	rows map[key]string
	fail error
}

func newMemRecords() *memRecords {
	return &memRecords{rows: map[key]string{}}
}

func (m *memRecords) InsertAttendanceIfAbsent(_ context.Context, userID int64, day, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	k := key{userID, day}
	if _, ok := m.rows[k]; ok {
		return false, nil
	}
	m.rows[k] = status
	return true, nil
}

func (m *memRecords) ListAttendance(_ context.Context, userID int64) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var out []model.Record
	for k, status := range m.rows {
		if k.user == userID {
			out = append(out, model.Record{Date: k.day, Status: status})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func fixedClock(s string) func() time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

func TestMarkTwiceSameDayKeepsFirst(t *testing.T) {
	recs := newMemRecords()
	svc := NewService(recs, WithClock(fixedClock("2024-05-01T09:00:00Z")))
	ctx := context.Background()

	require.NoError(t, svc.Mark(ctx, 1, "Present"))
	require.NoError(t, svc.Mark(ctx, 1, "Absent"), "second mark still acknowledges")

	got, err := svc.Own(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Record{{Date: "2024-05-01", Status: "Present"}}, got)
}

func TestMarkUsesConfiguredTimeZone(t *testing.T) {
	recs := newMemRecords()
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	svc := NewService(recs,
		WithClock(fixedClock("2024-05-01T20:00:00Z")),
		WithLocation(kolkata),
	)

	assert.Equal(t, "2024-05-02", svc.Today())
	require.NoError(t, svc.Mark(context.Background(), 1, "Present"))
	_, ok := recs.rows[key{1, "2024-05-02"}]
	assert.True(t, ok)
}

func TestMarkStoresStatusVerbatim(t *testing.T) {
	recs := newMemRecords()
	svc := NewService(recs, WithClock(fixedClock("2024-05-01T09:00:00Z")))
	ctx := context.Background()

	statuses := map[int64]string{
		1: "",
		2: "   ",
		3: " Present ",
		4: strings.Repeat("x", 65),
		5: "Working from the library",
	}
	for user, status := range statuses {
		require.NoError(t, svc.Mark(ctx, user, status))
	}
	for user, status := range statuses {
		got, err := svc.Own(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, []model.Record{{Date: "2024-05-01", Status: status}}, got)
	}
}

func TestMarkPublishesOnlyNewRecords(t *testing.T) {
	q := queue.NewInMemory(4)
	svc := NewService(newMemRecords(),
		WithClock(fixedClock("2024-05-01T09:00:00Z")),
		WithQueue(q),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.Mark(ctx, 7, "Present"))
	require.NoError(t, svc.Mark(ctx, 7, "Present"))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	msg := <-ch
	assert.Equal(t, MarkedType, msg.Type)
	assert.NotEmpty(t, msg.ID)
	var m Marked
	require.NoError(t, msg.Decode(&m))
	assert.Equal(t, Marked{UserID: 7, Date: "2024-05-01", Status: "Present"}, m)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected second message %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOwnHistoryOrderedAndNeverNil(t *testing.T) {
	recs := newMemRecords()
	ctx := context.Background()

	empty, err := NewService(recs).Own(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, ts := range []string{"2024-05-02T08:00:00Z", "2024-04-30T08:00:00Z", "2024-05-10T08:00:00Z"} {
		require.NoError(t, NewService(recs, WithClock(fixedClock(ts))).Mark(ctx, 1, "Present"))
	}
	got, err := NewService(recs).Own(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-05-10", got[0].Date)
	assert.Equal(t, "2024-04-30", got[2].Date)
}

func TestForUserRequiresAdmin(t *testing.T) {
	recs := newMemRecords()
	svc := NewService(recs, WithClock(fixedClock("2024-05-01T09:00:00Z")))
	ctx := context.Background()
	require.NoError(t, svc.Mark(ctx, 1, "Present"))

	_, err := svc.ForUser(ctx, model.RoleUser, 1)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied, "own id through the admin path")
	_, err = svc.ForUser(ctx, model.RoleUser, 2)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	got, err := svc.ForUser(ctx, model.RoleAdmin, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	recs := newMemRecords()
	recs.fail = assert.AnError
	svc := NewService(recs)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Mark(ctx, 1, "Present"), apperr.ErrStorage)
	_, err := svc.Own(ctx, 1)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	_, err = svc.ForUser(ctx, model.RoleAdmin, 1)
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestParseUserID(t *testing.T) {
	id, err := ParseUserID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-1"} {
		_, err := ParseUserID(raw)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, raw)
	}
}
