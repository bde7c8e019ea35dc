package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinayprograms/recoverkit/classify"
)

func TestBleveRecorder_WriteSearch(t *testing.T) {
	r := NewBleveRecorder(BleveRecorderConfig{BasePath: t.TempDir()})
	defer r.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	records := []FailureRecord{
		NewFailureRecord("err_1", classify.NPMInstall, "Bash", "npm ERR! ERESOLVE unable to resolve dependency tree", 6, now),
		NewFailureRecord("err_2", classify.DatabaseError, "Bash", `relation "users" does not exist`, 6, now.Add(time.Minute)),
		NewFailureRecord("err_3", classify.NPMInstall, "Bash", "npm ERR! EINTEGRITY sha512 checksum failed", 6, now.Add(2*time.Minute)),
	}
	for _, rec := range records {
		require.NoError(t, r.WriteFailure(ctx, rec))
	}

	n, err := r.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	res, err := r.Search(ctx, "dependency tree", SearchOpts{})
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "err_1", res[0].Signature, "best match first")
	assert.Equal(t, "npm_install", res[0].Category)
	assert.Equal(t, 6, res[0].TotalAttempts)
	assert.True(t, res[0].CreatedAt.Equal(now), "created_at %v vs %v", res[0].CreatedAt, now)
}

func TestBleveRecorder_CategoryFilterAndListAll(t *testing.T) {
	r := NewBleveRecorder(BleveRecorderConfig{BasePath: t.TempDir()})
	defer r.Close()

	ctx := context.Background()
	now := time.Now()
	require.NoError(t, r.WriteFailure(ctx, NewFailureRecord("err_a", classify.NPMInstall, "Bash", "npm ERR! failed install", 6, now)))
	require.NoError(t, r.WriteFailure(ctx, NewFailureRecord("err_b", classify.BuildFailure, "Bash", "build failed install step", 6, now.Add(time.Second))))

	res, err := r.Search(ctx, "install", SearchOpts{Category: "build_failure"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "err_b", res[0].Signature)

	all, err := r.Search(ctx, "", SearchOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "err_b", all[0].Signature, "listing is newest first")
}

func TestBleveRecorder_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	r := NewBleveRecorder(BleveRecorderConfig{BasePath: dir})
	require.NoError(t, r.WriteFailure(ctx, NewFailureRecord("err_a", classify.Unknown, "Bash", "segfault", 6, time.Now())))
	require.NoError(t, r.Close())

	r2 := NewBleveRecorder(BleveRecorderConfig{BasePath: dir})
	defer r2.Close()
	res, err := r2.Search(ctx, "segfault", SearchOpts{})
	require.NoError(t, err)
	assert.Len(t, res, 1, "record persists across reopen")
}

func TestBleveRecorder_CloseWithoutOpen(t *testing.T) {
	r := NewBleveRecorder(BleveRecorderConfig{BasePath: t.TempDir()})
	assert.NoError(t, r.Close())
}
