package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/pasokh/pkg/history"
)

var errBroken = errors.New("disk on fire")

// brokenKV fails every operation
type brokenKV struct{}

func (brokenKV) Get(context.Context, string) (string, bool, error) { return "", false, errBroken }
func (brokenKV) Set(context.Context, string, string) error         { return errBroken }
func (brokenKV) Delete(context.Context, string) error              { return errBroken }
func (brokenKV) Name() string                                      { return "broken" }
func (brokenKV) Close() error                                      { return nil }

func newTestStore(kv KV) *Store {
	return New(kv, zerolog.Nop(), "blue")
}

func TestStore_LoadEmpty(t *testing.T) {
	s := newTestStore(NewMemoryKV())

	state := s.Load(context.Background())

	assert.NotNil(t, state.Messages)
	assert.Empty(t, state.Messages)
	assert.False(t, state.DarkMode)
	assert.Equal(t, "blue", state.Theme)
	assert.Equal(t, BackendMemory, s.Backend())
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newTestStore(kv)

	msgs := []history.Message{history.User("hours"), history.Bot("9 to 5")}
	require.NoError(t, s.SaveMessages(ctx, msgs))
	require.NoError(t, s.SaveDarkMode(ctx, true))
	require.NoError(t, s.SaveTheme(ctx, "purple"))

	raw, ok, err := kv.Get(ctx, KeyMessages)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"role":"user","text":"hours"},{"role":"bot","text":"9 to 5"}]`, raw)

	raw, _, _ = kv.Get(ctx, KeyDarkMode)
	assert.Equal(t, "true", raw)

	state := newTestStore(kv).Load(ctx)
	if diff := cmp.Diff(msgs, state.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, state.DarkMode)
	assert.Equal(t, "purple", state.Theme)
}

func TestStore_ClearMessagesKeepsPreferences(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newTestStore(kv)

	require.NoError(t, s.SaveMessages(ctx, []history.Message{history.User("hi")}))
	require.NoError(t, s.SaveDarkMode(ctx, true))
	require.NoError(t, s.ClearMessages(ctx))

	_, ok, err := kv.Get(ctx, KeyMessages)
	require.NoError(t, err)
	assert.False(t, ok)

	state := s.Load(ctx)
	assert.Empty(t, state.Messages)
	assert.True(t, state.DarkMode)
}

func TestStore_LoadRecoversFromCorruptMessages(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, KeyMessages, "{not json"))
	require.NoError(t, kv.Set(ctx, KeyDarkMode, "true"))

	state := newTestStore(kv).Load(ctx)

	assert.NotNil(t, state.Messages)
	assert.Empty(t, state.Messages)
	assert.True(t, state.DarkMode)
}

func TestStore_LoadSkipsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, KeyMessages,
		`[{"role":"user","text":"a"},{"role":"system","text":"b"},{"role":"bot","text":""},{"role":"bot","text":"c"}]`))

	state := newTestStore(kv).Load(ctx)

	assert.Equal(t, []history.Message{history.User("a"), history.Bot("c")}, state.Messages)
}

func TestStore_LoadReadsTypeKeyedHistory(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, KeyMessages, `[{"type":"user","text":"hours"},{"type":"bot","text":"9-5"}]`))
	require.NoError(t, kv.Set(ctx, KeyDarkMode, "true"))

	st := newTestStore(kv)
	state := st.Load(ctx)
	assert.Equal(t, []history.Message{history.User("hours"), history.Bot("9-5")}, state.Messages)
	assert.True(t, state.DarkMode)

	require.NoError(t, st.SaveMessages(ctx, state.Messages))
	raw, ok, err := kv.Get(ctx, KeyMessages)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"role":"user","text":"hours"},{"role":"bot","text":"9-5"}]`, raw)
}

func TestStore_LoadRecoversFromInvalidPreferences(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, KeyDarkMode, "maybe"))
	require.NoError(t, kv.Set(ctx, KeyTheme, ""))

	state := newTestStore(kv).Load(ctx)

	assert.False(t, state.DarkMode)
	assert.Equal(t, "blue", state.Theme)
}

func TestStore_BrokenBackend(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(brokenKV{})

	state := s.Load(ctx)
	assert.Empty(t, state.Messages)
	assert.Equal(t, "blue", state.Theme)

	assert.ErrorIs(t, s.SaveMessages(ctx, nil), errBroken)
	assert.ErrorIs(t, s.SaveDarkMode(ctx, true), errBroken)
	assert.ErrorIs(t, s.SaveTheme(ctx, "green"), errBroken)
	assert.ErrorIs(t, s.ClearMessages(ctx), errBroken)
}
