package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinayprograms/recoverkit/classify"
)

func sessionBackends(t *testing.T) map[string]SessionStore {
	fs, err := NewSessionFile(t.TempDir())
	require.NoError(t, err)
	bs, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	return map[string]SessionStore{
		"memory": NewMemoryStore(),
		"file":   fs,
		"badger": bs,
	}
}

func TestSessionStore_RoundTrip(t *testing.T) {
	for name, s := range sessionBackends(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now().UTC().Truncate(time.Second)
			st := NewErrorState("err_a", classify.TestFailure, "Bash", now)
			st.ErrorMessage = "FAIL src/app.test.ts"
			st.Phase = 2
			st.AttemptsInPhase = 1
			st.PendingFix = "run the single failing test"
			st.MarkSearched(true, "jest expect")
			st.FixStrategiesAttempted = []FixAttempt{{Phase: 1, Strategy: "update snapshot", Timestamp: now}}

			require.NoError(t, s.SaveSession(st))

			got, err := s.LoadSession("err_a")
			require.NoError(t, err)
			assert.Equal(t, "err_a", got.Signature)
			assert.Equal(t, classify.TestFailure, got.Category)
			assert.Equal(t, 2, got.Phase)
			assert.Equal(t, 1, got.AttemptsInPhase)
			assert.Equal(t, st.PendingFix, got.PendingFix)
			require.Len(t, got.FixStrategiesAttempted, 1)
			assert.Equal(t, "update snapshot", got.FixStrategiesAttempted[0].Strategy)
			assert.Equal(t, []string{"jest expect"}, got.OfficialDocsSearched)
		})
	}
}

func TestSessionStore_Clear(t *testing.T) {
	for name, s := range sessionBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveSession(NewErrorState("err_a", classify.Unknown, "Bash", time.Now())))
			require.NoError(t, s.ClearSession("err_a"))

			_, err := s.LoadSession("err_a")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.NoError(t, s.ClearSession("err_none"), "clearing a missing session succeeds")
		})
	}
}
