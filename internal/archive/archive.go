// Package archive writes ask transcripts to object storage.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/historyguide/apiserver/types"
)

const (
	DefaultTimeout  = 10 * time.Second
	contentTypeJSON = "application/json"
	maxInFlight     = 32
)

// ErrExists is returned by a backend when the object key is already taken.
// Transcripts are written once and never overwritten.
var ErrExists = errors.New("object already exists")

// Object is one transcript ready to be written.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
	// Metadata is stored as user metadata next to the object.
	Metadata map[string]string
}

// ObjectStorage defines the object operations the archive needs.
// Put must fail with ErrExists rather than replace an existing object.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, obj Object) error
	Bucket() string
}

// Archive stores transcripts as JSON objects. An Archive without a backend
// discards everything.
type Archive struct {
	backend ObjectStorage
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration

	slots    chan struct{}
	inFlight sync.WaitGroup
}

func New(backend ObjectStorage, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{
		backend: backend,
		logger:  logger,
		now:     time.Now,
		timeout: DefaultTimeout,
		slots:   make(chan struct{}, maxInFlight),
	}
}

// Key returns the object key of t.
func Key(t types.Transcript) string {
	return fmt.Sprintf("transcripts/%d/%s.json", t.UserID, t.ID)
}

// Metadata returns the user metadata stored with t's object.
func Metadata(t types.Transcript) map[string]string {
	md := map[string]string{
		"transcript-id": t.ID,
		"user-id":       strconv.Itoa(t.UserID),
	}
	if t.Year != 0 {
		md["year"] = strconv.Itoa(t.Year)
	}
	if t.Person != "" {
		md["person"] = url.QueryEscape(t.Person)
	}
	return md
}

// EnsureBucket ensures the configured bucket exists.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	if a.backend == nil {
		return nil
	}
	return a.backend.EnsureBucket(ctx)
}

// Save writes t and returns its object key. ID and CreatedAt are filled in when unset.
func (a *Archive) Save(ctx context.Context, t types.Transcript) (string, error) {
	if a.backend == nil {
		return "", nil
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = a.now().UTC()
	}

	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	obj := Object{
		Key:         Key(t),
		Data:        data,
		ContentType: contentTypeJSON,
		Metadata:    Metadata(t),
	}
	if err := a.backend.Put(ctx, obj); err != nil {
		return "", fmt.Errorf("put %s/%s: %w", a.backend.Bucket(), obj.Key, err)
	}
	return obj.Key, nil
}

// Record saves t in the background and returns immediately. The write gets its
// own deadline detached from ctx. When maxInFlight writes are pending the
// transcript is dropped. Failures are logged.
func (a *Archive) Record(ctx context.Context, t types.Transcript) {
	if a.backend == nil {
		return
	}

	select {
	case a.slots <- struct{}{}:
	default:
		a.logger.WarnContext(ctx, "transcript not archived", "user_id", t.UserID, "error", "too many pending writes")
		return
	}

	a.inFlight.Add(1)
	go func() {
		defer a.inFlight.Done()
		defer func() { <-a.slots }()

		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if _, err := a.Save(saveCtx, t); err != nil {
			a.logger.WarnContext(saveCtx, "transcript not archived", "user_id", t.UserID, "error", err)
		}
	}()
}

// Close waits for pending writes and releases the backend if it holds resources.
func (a *Archive) Close() error {
	a.inFlight.Wait()
	if closer, ok := a.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
