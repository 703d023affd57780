package history

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	at := time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, Entry{BatchID: "b1", Name: "a.xml", Hash: "h1", Rows: 3, Note: "Hoá đơn mới", Status: StatusOK, CreatedAt: at}))
	require.NoError(t, s.Record(ctx, Entry{BatchID: "b1", Name: "b.xml", Hash: "h2", Status: StatusFailed, Error: "malformed XML"}))
	require.NoError(t, s.Record(ctx, Entry{BatchID: "b2", Name: "c.xml", Hash: "h3", Status: StatusOK}))

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c.xml", recent[0].Name)
	assert.Equal(t, "b.xml", recent[1].Name)
	assert.Equal(t, "malformed XML", recent[1].Error)
	assert.False(t, recent[1].CreatedAt.IsZero())

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	batch, err := s.Batch(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "a.xml", batch[0].Name)
	assert.Equal(t, 3, batch[0].Rows)
	assert.Equal(t, "Hoá đơn mới", batch[0].Note)
	assert.True(t, at.Equal(batch[0].CreatedAt))
}

func TestSeenHash(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.Record(ctx, Entry{BatchID: "b", Name: "ok.xml", Hash: "good", Status: StatusOK}))
	require.NoError(t, s.Record(ctx, Entry{BatchID: "b", Name: "bad.xml", Hash: "bad", Status: StatusFailed}))

	tests := []struct {
		hash string
		want bool
	}{
		{"good", true},
		{"bad", false},
		{"unknown", false},
	}
	for _, tt := range tests {
		got, err := s.SeenHash(ctx, tt.hash)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.hash)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, Entry{BatchID: "b", Name: "a.xml", Hash: "h", Status: StatusOK}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	seen, err := s.SeenHash(ctx, "h")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Record(ctx, Entry{BatchID: "b", Name: "x.xml", Hash: "h", Status: StatusOK}))
		}()
	}
	wg.Wait()

	all, err := s.Batch(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(nil))
	assert.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}
