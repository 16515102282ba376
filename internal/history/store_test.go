package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2012, 5, 3, 10, 0, 0, 0, time.UTC)

	for i, cmd := range []string{"index", "swap", "status"} {
		r := &Run{
			Command:    cmd,
			Server:     "http://solr:8983",
			Cores:      "stage",
			Outcome:    "succeeded",
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + 5*time.Minute),
			Log:        "log " + cmd,
		}
		require.NoError(t, s.Record(ctx, r))
		assert.NotEmpty(t, r.ID)
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "status", runs[0].Command)
	assert.Equal(t, "swap", runs[1].Command)
	assert.Equal(t, 5*time.Minute, runs[0].Duration())
	assert.True(t, runs[0].StartedAt.Equal(base.Add(2*time.Hour)))
}

func TestStore_Get(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	r := &Run{ID: "fixed-id", Command: "backup", Outcome: "rejected", ExitCode: 4, Log: "ERROR busy"}
	require.NoError(t, s.Record(ctx, r))

	got, err := s.Get(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, 4, got.ExitCode)
	assert.Equal(t, "ERROR busy", got.Log)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStore_DuplicateID(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, &Run{ID: "dup", Command: "status"}))
	assert.Error(t, s.Record(ctx, &Run{ID: "dup", Command: "status"}))
}

func TestNewRunID(t *testing.T) {
	assert.NotEqual(t, NewRunID(), NewRunID())
	assert.Len(t, NewRunID(), 36)
}
