package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/historyguide/apiserver/config"
	"github.com/historyguide/apiserver/types"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string]Object
	putErr  error
	block   bool
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string]Object{}}
}

func (m *memStorage) EnsureBucket(ctx context.Context) error { return nil }

func (m *memStorage) Put(ctx context.Context, obj Object) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	if _, ok := m.objects[obj.Key]; ok {
		return ErrExists
	}
	m.objects[obj.Key] = obj
	return nil
}

func (m *memStorage) Bucket() string { return "mem" }

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// syncBuffer guards a log buffer written from background goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestSaveWritesJSON(t *testing.T) {
	store := newMemStorage()
	a := New(store, nil)
	fixed := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	key, err := a.Save(context.Background(), types.Transcript{
		UserID:         12,
		Prompt:         "Who was George Washington? What happened in 1776?",
		EnrichedPrompt: "Who was George Washington? What happened in 1776?\n\nHistorical context for 1776: ...",
		Year:           1776,
		Person:         "George Washington",
		Response:       "Independence.",
	})
	require.NoError(t, err)
	require.Regexp(t, `^transcripts/12/[0-9a-f-]{36}\.json$`, key)

	obj := store.objects[key]
	require.Equal(t, "application/json", obj.ContentType)
	require.Equal(t, "12", obj.Metadata["user-id"])
	require.Equal(t, "1776", obj.Metadata["year"])
	require.Equal(t, "George+Washington", obj.Metadata["person"])

	var got types.Transcript
	require.NoError(t, json.Unmarshal(obj.Data, &got))
	require.Equal(t, obj.Metadata["transcript-id"], got.ID)
	require.Equal(t, 1776, got.Year)
	require.Equal(t, "Independence.", got.Response)
	require.True(t, got.CreatedAt.Equal(fixed))
}

func TestMetadataOmitsEmptyFields(t *testing.T) {
	md := Metadata(types.Transcript{ID: "abc", UserID: 7})
	require.Equal(t, map[string]string{"transcript-id": "abc", "user-id": "7"}, md)
}

func TestSaveNeverOverwrites(t *testing.T) {
	store := newMemStorage()
	a := New(store, nil)
	tr := types.Transcript{ID: "fixed", UserID: 1, Response: "first"}

	_, err := a.Save(context.Background(), tr)
	require.NoError(t, err)

	tr.Response = "second"
	_, err = a.Save(context.Background(), tr)
	require.ErrorIs(t, err, ErrExists)
	require.Contains(t, string(store.objects["transcripts/1/fixed.json"].Data), "first")
}

func TestSaveWithoutBackend(t *testing.T) {
	key, err := New(nil, nil).Save(context.Background(), types.Transcript{UserID: 1})
	require.NoError(t, err)
	require.Empty(t, key)
}

func TestRecordWritesInBackground(t *testing.T) {
	store := newMemStorage()
	a := New(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	a.Record(ctx, types.Transcript{UserID: 2})
	cancel()

	require.NoError(t, a.Close())
	require.Equal(t, 1, store.count())
}

func TestRecordLogsFailures(t *testing.T) {
	var buf syncBuffer
	store := newMemStorage()
	store.putErr = errors.New("bucket gone")
	a := New(store, slog.New(slog.NewTextHandler(&buf, nil)))

	a.Record(context.Background(), types.Transcript{UserID: 3})
	require.NoError(t, a.Close())

	require.Contains(t, buf.String(), "transcript not archived")
	require.Contains(t, buf.String(), "bucket gone")
}

func TestRecordDoesNotWaitForHungBackend(t *testing.T) {
	var buf syncBuffer
	store := newMemStorage()
	store.block = true
	a := New(store, slog.New(slog.NewTextHandler(&buf, nil)))
	a.timeout = 500 * time.Millisecond

	start := time.Now()
	a.Record(context.Background(), types.Transcript{UserID: 4})
	require.Less(t, time.Since(start), 250*time.Millisecond)

	require.NoError(t, a.Close())
	require.Contains(t, buf.String(), "deadline exceeded")
}

func TestRecordDropsWhenSaturated(t *testing.T) {
	var buf syncBuffer
	store := newMemStorage()
	store.block = true
	a := New(store, slog.New(slog.NewTextHandler(&buf, nil)))
	a.timeout = 100 * time.Millisecond

	for i := 0; i < maxInFlight+1; i++ {
		a.Record(context.Background(), types.Transcript{UserID: i})
	}
	require.Contains(t, buf.String(), "too many pending writes")
	require.NoError(t, a.Close())
}

func TestKey(t *testing.T) {
	require.Equal(t, "transcripts/5/abc.json", Key(types.Transcript{ID: "abc", UserID: 5}))
}

func TestMinioPutOptions(t *testing.T) {
	obj := Object{
		Key:         "transcripts/1/a.json",
		ContentType: "application/json",
		Metadata:    map[string]string{"user-id": "1", "year": "1945"},
	}
	opts := minioPutOptions(obj)
	require.Equal(t, "application/json", opts.ContentType)
	require.Equal(t, obj.Metadata, opts.UserMetadata)
}

func TestApplyObjectAttrs(t *testing.T) {
	obj := Object{
		Data:        []byte(`{"id":"a"}`),
		ContentType: "application/json",
		Metadata:    map[string]string{"user-id": "9"},
	}
	w := &storage.Writer{}
	applyObjectAttrs(w, obj)

	require.Equal(t, "application/json", w.ContentType)
	require.Equal(t, obj.Metadata, w.Metadata)
	require.True(t, w.SendCRC32C)
	require.Equal(t, crc32.Checksum(obj.Data, crc32.MakeTable(crc32.Castagnoli)), w.CRC32C)
	require.Zero(t, w.ChunkSize)
}

func TestIsPreconditionFailed(t *testing.T) {
	require.True(t, isPreconditionFailed(fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})))
	require.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	require.False(t, isPreconditionFailed(errors.New("boom")))
}

func TestOpenDisabledAndInvalid(t *testing.T) {
	a, err := Open(context.Background(), config.ArchiveConfig{}, nil)
	require.NoError(t, err)
	require.Nil(t, a.backend)

	_, err = Open(context.Background(), config.ArchiveConfig{Backend: "minio"}, nil)
	require.ErrorContains(t, err, "minio endpoint is required")

	_, err = Open(context.Background(), config.ArchiveConfig{Backend: "ftp"}, nil)
	require.Error(t, err)
}

type closingStorage struct {
	*memStorage
	closed bool
}

func (c *closingStorage) Close() error {
	c.closed = true
	return nil
}

func TestCloseReleasesBackend(t *testing.T) {
	require.NoError(t, New(nil, nil).Close())

	backend := &closingStorage{memStorage: newMemStorage()}
	require.NoError(t, New(backend, nil).Close())
	require.True(t, backend.closed)
}
