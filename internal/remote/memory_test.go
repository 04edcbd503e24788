package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

func TestMemoryCreateListUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("de", "fr")

	b, err := m.CreateResource(ctx, "p", "b.json", []byte("b"))
	require.NoError(t, err)
	_, err = m.CreateResource(ctx, "p", "a.json", []byte("a"))
	require.NoError(t, err)

	rs, err := m.ListResources(ctx, "p")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "a.json", rs[0].RemoteKey)
	assert.Equal(t, []string{"de", "fr"}, rs[0].Locales())

	updated, err := m.UpdateResource(ctx, "p", b.RemoteID, []byte("b2"))
	require.NoError(t, err)
	assert.NotEqual(t, b.RemoteHash, updated.RemoteHash)
	content, ok := m.Content("b.json")
	require.True(t, ok)
	assert.Equal(t, "b2", string(content))
}

func TestMemoryDeleteResource(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("de")
	a := m.Seed("a.json", []byte("a"), "de")
	m.Seed("b.json", []byte("b"), "de")

	require.NoError(t, m.DeleteResource(ctx, "p", a.RemoteID))
	require.NoError(t, m.DeleteResource(ctx, "p", a.RemoteID), "deleting twice succeeds")

	rs, err := m.ListResources(ctx, "p")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "b.json", rs[0].RemoteKey)
	_, ok := m.Content("a.json")
	assert.False(t, ok)
	assert.Equal(t, 2, m.CallCount(OpDelete))
}

func TestMemoryDuplicateCreateRejected(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.CreateResource(ctx, "p", "a.json", []byte("a"))
	require.NoError(t, err)

	_, err = m.CreateResource(ctx, "p", "a.json", []byte("a"))
	assert.Equal(t, syncerr.KindValidation, syncerr.KindOf(err))
}

func TestMemoryFailNext(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := syncerr.New(syncerr.KindTransient, OpCreate, errors.New("503"))
	m.FailNext(OpCreate, "a.json", boom, 2)

	_, err := m.CreateResource(ctx, "p", "other.json", []byte("o"))
	require.NoError(t, err, "fault is keyed to a.json only")

	for i := 0; i < 2; i++ {
		_, err = m.CreateResource(ctx, "p", "a.json", []byte("a"))
		assert.ErrorIs(t, err, boom)
	}
	_, err = m.CreateResource(ctx, "p", "a.json", []byte("a"))
	assert.NoError(t, err)
	assert.Equal(t, 4, m.CallCount(OpCreate))
}

func TestMemoryFetchTranslation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	r := m.Seed("ui.json", []byte(`{"hi":"hi"}`), "de", "uk")
	m.SetTranslation("ui.json", "de", []byte(`{"hi":"hallo"}`))

	got, err := m.FetchTranslation(ctx, "p", r.RemoteID, "de")
	require.NoError(t, err)
	assert.Equal(t, `{"hi":"hallo"}`, string(got))

	got, err = m.FetchTranslation(ctx, "p", r.RemoteID, "uk")
	require.NoError(t, err)
	assert.Equal(t, `{"hi":"hi"}`, string(got), "untranslated falls back to source")

	_, err = m.FetchTranslation(ctx, "p", r.RemoteID, "ja")
	assert.Equal(t, syncerr.KindValidation, syncerr.KindOf(err))

	calls := m.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "ui.json", calls[0].Key)
}

func TestMemoryLatencyHonorsContext(t *testing.T) {
	m := NewMemory()
	m.Latency = time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.ListResources(ctx, "p")
	assert.Equal(t, syncerr.KindCancelled, syncerr.KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}
