package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rkerrors "github.com/vinayprograms/recoverkit/errors"
)

func TestNewBadgerStore_RequiresPath(t *testing.T) {
	_, err := NewBadgerStore(BadgerConfig{})
	assert.True(t, rkerrors.Is(err, rkerrors.ErrCodeInvalidInput), "got %v", err)
}

func TestBadgerStore_Persistent(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBadgerStore(BadgerConfig{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Save("err_a", Record{Phase: 3, AttemptsInPhase: 1}))
	require.NoError(t, s.Close())

	s2, err := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer s2.Close()

	r, err := s2.Load("err_a")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Phase)
}

func TestBadgerStore_SecondOpenIsLockFailure(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	_, err = NewBadgerStore(BadgerConfig{Path: dir})
	require.Error(t, err, "directory lock rejects a second open")
	assert.True(t, rkerrors.Is(err, rkerrors.ErrCodeLockFailed), "got %v", err)
	assert.True(t, rkerrors.IsRetryable(err))
}

func TestBadgerStore_PruneRemovesSession(t *testing.T) {
	s, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	require.NoError(t, s.SaveSession(NewErrorState("err_old", "", "Bash", now)))
	require.NoError(t, s.Save("err_old", Record{Phase: 1, LastAttemptAt: now}))

	removed, err := s.PruneBefore(now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{"err_old"}, removed)

	_, err = s.LoadSession("err_old")
	assert.ErrorIs(t, err, ErrNotFound, "session is pruned too")
}

func TestBadgerStore_CloseTwice(t *testing.T) {
	s, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "second Close is harmless")

	_, err = s.Load("err_a")
	assert.ErrorIs(t, err, ErrClosed)
}
