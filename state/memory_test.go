package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinayprograms/recoverkit/classify"
)

func TestMemoryStore_OperationsAfterClose(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Load("err_a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Save("err_a", NewRecord()), ErrClosed)
	_, err = s.All()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.SaveSession(NewErrorState("err_a", classify.Unknown, "Bash", time.Now())), ErrClosed)
}

func TestMemoryStore_SessionIsolation(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	st := NewErrorState("err_a", classify.NPMInstall, "Bash", time.Now())
	st.MarkSearched(true, "ERESOLVE")
	st.FixStrategiesAttempted = []FixAttempt{{Phase: 1, Strategy: "x"}}
	require.NoError(t, s.SaveSession(st))

	st.OfficialDocsSearched[0] = "mutated"
	st.FixStrategiesAttempted[0].Strategy = "mutated"

	got, err := s.LoadSession("err_a")
	require.NoError(t, err)
	assert.Equal(t, []string{"ERESOLVE"}, got.OfficialDocsSearched, "stored slice does not alias the caller's")
	assert.Equal(t, "x", got.FixStrategiesAttempted[0].Strategy, "stored slice does not alias the caller's")

	got.PendingFix = "changed"
	again, err := s.LoadSession("err_a")
	require.NoError(t, err)
	assert.Empty(t, again.PendingFix, "loaded value is a copy")
}

func TestMemoryStore_RecordIsolation(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.Save("err_a", Record{Phase: 1}))
	all, err := s.All()
	require.NoError(t, err)
	all["err_a"] = Record{Phase: 3}
	delete(all, "err_a")

	r, err := s.Load("err_a")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Phase, "All returns a copy")
}
