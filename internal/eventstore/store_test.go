package eventstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_AppendAndRetrieve(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	ev := &BaseEvent{
		EventBuildID:  "b-1",
		EventType:     "Custom",
		EventPayload:  []byte(`{"k":"v"}`),
		EventMetadata: map[string]string{"host": "ci"},
	}
	require.NoError(t, store.Append(ctx, ev))

	events, err := store.GetByBuildID(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Custom", events[0].Type())
	assert.JSONEq(t, `{"k":"v"}`, string(events[0].Payload()))
	assert.Equal(t, "ci", events[0].Metadata()["host"])
	assert.False(t, events[0].Timestamp().IsZero())
	assert.Positive(t, events[0].ID())

	none, err := store.GetByBuildID(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_GetRange(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(ctx, &BaseEvent{
			EventBuildID:   id,
			EventType:      TypeBuildStarted,
			EventTimestamp: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	events, err := store.GetRange(ctx, base.Add(30*time.Minute), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].BuildID())
	assert.Equal(t, "c", events[1].BuildID())
	assert.True(t, events[0].Timestamp().Equal(base.Add(time.Hour)))
}

func TestSQLiteStore_Closed(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	err = store.Append(context.Background(), &BaseEvent{EventBuildID: "x", EventType: "y"})
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.GetByBuildID(context.Background(), "x")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.True(t, errors.HasCategory(err, errors.CategoryEventStore))
}

func TestSQLiteStore_Persistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	ev, err := NewBuildStarted("persist", BuildStartedMeta{Source: "./site"})
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), ev))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	events, err := reopened.GetByBuildID(context.Background(), "persist")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestRecent_Summaries(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	started, err := NewBuildStarted("first", BuildStartedMeta{Source: "./site", Trigger: "cli"})
	require.NoError(t, err)
	started.EventTimestamp = time.Now().Add(-2 * time.Minute)
	require.NoError(t, store.Append(ctx, started))

	done, err := NewBuildCompleted("first", BuildCompletedMeta{DurationMS: 1500, Pages: 4, Files: 4, Fingerprint: "abc"})
	require.NoError(t, err)
	done.EventTimestamp = time.Now().Add(-time.Minute)
	require.NoError(t, store.Append(ctx, done))

	second, err := NewBuildStarted("second", BuildStartedMeta{Trigger: "watch"})
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, second))
	failed, err := NewBuildFailed("second", BuildFailedMeta{Stage: "render", Status: StatusCancelled, Message: "context canceled"})
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, failed))

	third, err := NewBuildStarted("third", BuildStartedMeta{})
	require.NoError(t, err)
	third.EventTimestamp = time.Now().Add(time.Second)
	require.NoError(t, store.Append(ctx, third))

	all, err := Recent(ctx, store, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, "third", all[0].BuildID)
	assert.Equal(t, StatusRunning, all[0].Status)
	assert.Nil(t, all[0].CompletedAt)

	assert.Equal(t, "second", all[1].BuildID)
	assert.Equal(t, StatusCancelled, all[1].Status)
	assert.Equal(t, "render", all[1].ErrorStage)

	assert.Equal(t, "first", all[2].BuildID)
	assert.Equal(t, StatusSucceeded, all[2].Status)
	assert.Equal(t, 1500*time.Millisecond, all[2].Duration)
	assert.Equal(t, 4, all[2].Pages)
	assert.Equal(t, "cli", all[2].Trigger)
	require.NotNil(t, all[2].CompletedAt)

	limited, err := Recent(ctx, store, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "third", limited[0].BuildID)
}

func TestDecode_InvalidPayload(t *testing.T) {
	err := Decode(&BaseEvent{EventType: "x", EventPayload: []byte("{")}, &BuildStartedMeta{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnmarshalPayloadFailed)
}
