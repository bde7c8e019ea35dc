package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		code          ErrorCode
		wantCategory  ErrorCategory
		wantRetryable bool
	}{
		{"lock", ErrCodeLockFailed, CategoryTransient, true},
		{"read", ErrCodeStoreRead, CategoryTransient, true},
		{"not_found", ErrCodeNotFound, CategoryPermanent, false},
		{"invalid", ErrCodeInvalidInput, CategoryPermanent, false},
		{"write", ErrCodeStoreWrite, CategoryResource, true},
		{"recorder", ErrCodeRecorderFailed, CategoryResource, true},
		{"corruption", ErrCodeCorruption, CategoryInternal, false},
		{"panic", ErrCodePanic, CategoryInternal, false},
		{"unknown_code", ErrorCode("SOMETHING"), CategoryInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "msg")
			assert.Equal(t, tt.code, err.Code())
			assert.Equal(t, tt.wantCategory, err.Category())
			assert.Equal(t, tt.wantRetryable, err.Retryable())
			assert.Equal(t, "msg", err.Error())
		})
	}
}

func TestCorrupted(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Corrupted("/state/retry-tracking.json", cause, WithSignature("err_1"))

	assert.Equal(t, ErrCodeCorruption, err.Code())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "/state/retry-tracking.json", err.path)
	assert.Equal(t, "err_1", err.signature)
}

func TestMetadataIsCopied(t *testing.T) {
	err := New(ErrCodeInternal, "x", WithMetadata("k", "v"))
	md := err.Metadata()
	md["k"] = "changed"
	assert.Equal(t, "v", err.Metadata()["k"], "Metadata returns a copy")
	assert.Empty(t, New(ErrCodeInternal, "y").Metadata())
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  ErrorCode
	}{
		{"not_exist", fmt.Errorf("open: %w", os.ErrNotExist), ErrCodeNotFound},
		{"permission", fmt.Errorf("open: %w", os.ErrPermission), ErrCodeStoreWrite},
		{"deadline", context.DeadlineExceeded, ErrCodeLockFailed},
		{"canceled", context.Canceled, ErrCodeLockFailed},
		{"other", errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap(tt.cause, "op")
			assert.Equal(t, tt.want, err.Code())
			assert.ErrorIs(t, err, tt.cause)
		})
	}

	assert.Nil(t, Wrap(nil, "op"))
	assert.Nil(t, WrapWithCode(nil, ErrCodeStoreRead, "op"))
}

func TestWrapKeepsInnerDetails(t *testing.T) {
	inner := New(ErrCodeStoreRead, "read", WithSignature("err_2"), WithPath("/p"))
	outer := Wrap(inner, "load record")

	assert.Equal(t, ErrCodeStoreRead, outer.Code())
	assert.Equal(t, "err_2", outer.signature)
	assert.Equal(t, "/p", outer.path)
	assert.Equal(t, "load record: read", outer.Error())
}

func TestIsAndCode(t *testing.T) {
	err := fmt.Errorf("ctx: %w", WrapWithCode(errors.New("busy"), ErrCodeLockFailed, "lock"))

	assert.True(t, Is(err, ErrCodeLockFailed))
	assert.False(t, Is(err, ErrCodeStoreRead))
	assert.Equal(t, ErrCodeLockFailed, Code(err))
	assert.True(t, IsRetryable(err), "lock failures are retryable")

	plain := errors.New("plain")
	assert.False(t, Is(plain, ErrCodeInternal))
	assert.Empty(t, Code(plain))
	assert.False(t, IsRetryable(plain))
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	inner := NotFound("no session", WithSignature("err_3"))
	assert.Same(t, inner, From(fmt.Errorf("cli: %w", inner)))

	got := From(errors.New("plain"))
	assert.Equal(t, ErrCodeInternal, got.Code())
	assert.Equal(t, "plain", got.Error())
}

func TestMarshalJSON(t *testing.T) {
	err := WrapWithCode(errors.New("disk full"), ErrCodeStoreWrite, "write retry file",
		WithSignature("err_4"), WithPath("/state/retry-tracking.json"))

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))

	want := map[string]interface{}{
		"code":      "STORE_WRITE",
		"category":  "resource",
		"message":   "write retry file",
		"cause":     "disk full",
		"signature": "err_4",
		"path":      "/state/retry-tracking.json",
		"retryable": true,
	}
	for k, v := range want {
		assert.Equal(t, v, got[k], k)
	}
	assert.NotEmpty(t, got["at"])
}

func TestRecoverPanic(t *testing.T) {
	assert.Nil(t, RecoverPanic(nil))

	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"string", "boom", "boom"},
		{"error", errors.New("bad"), "bad"},
		{"other", 42, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RecoverPanic(tt.in)
			assert.Equal(t, ErrCodePanic, err.Code())
			assert.Equal(t, tt.want, err.Error())
			assert.NotEmpty(t, err.Metadata()["panic_type"])
		})
	}
}
