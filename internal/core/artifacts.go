package core

// artifacts.go keeps generated files downloadable for a limited time.
//
// Every output of an operation is stored under a random ID with the name it
// should be saved as. A background sweeper removes artifacts once their TTL
// has passed; when a size cap is set, the oldest artifacts are evicted to
// make room for new ones.

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrArtifactNotFound is returned for unknown or expired artifact IDs.
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrArtifactStoreFull is returned when the files of one Put or PutAll are
// together larger than the store's cap.
var ErrArtifactStoreFull = errors.New("artifact storage full")

// Artifact is one generated file.
type Artifact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Data      []byte    `json:"-"`
}

// ArtifactFile is a named payload waiting to be stored.
type ArtifactFile struct {
	Name string
	Data []byte
}

// ArtifactStore is an in-memory, TTL-bounded store of generated files.
type ArtifactStore struct {
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time

	mu    sync.Mutex
	items map[string]*Artifact
	total int64
}

// NewArtifactStore keeps artifacts for ttl. A positive maxBytes caps the
// combined size of all artifacts.
func NewArtifactStore(ttl time.Duration, maxBytes int64) *ArtifactStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ArtifactStore{
		ttl:      ttl,
		maxBytes: maxBytes,
		now:      time.Now,
		items:    make(map[string]*Artifact),
	}
}

// Put stores data under a new ID and returns the artifact's metadata.
func (s *ArtifactStore) Put(name string, data []byte) (Artifact, error) {
	stored, err := s.PutAll([]ArtifactFile{{Name: name, Data: data}})
	if err != nil {
		return Artifact{}, err
	}
	return stored[0], nil
}

// PutAll stores every file or none of them. Room for the whole batch is
// made by evicting older artifacts only, so no file of the batch can push
// out another.
func (s *ArtifactStore) PutAll(files []ArtifactFile) ([]Artifact, error) {
	var size int64
	for _, f := range files {
		size += int64(len(f.Data))
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, ErrArtifactStoreFull
	}

	now := s.now()
	batch := make([]*Artifact, len(files))
	for i, f := range files {
		batch[i] = &Artifact{
			ID:        uuid.NewString(),
			Name:      f.Name,
			Size:      int64(len(f.Data)),
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
			Data:      f.Data,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)
	if s.maxBytes > 0 {
		s.evictLocked(s.maxBytes - size)
	}

	out := make([]Artifact, len(batch))
	for i, a := range batch {
		s.items[a.ID] = a
		s.total += a.Size
		out[i] = a.meta()
	}
	return out, nil
}

// Get returns the artifact stored under id, including its data.
func (s *ArtifactStore) Get(id string) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok || !s.now().Before(a.ExpiresAt) {
		return Artifact{}, ErrArtifactNotFound
	}
	out := a.meta()
	out.Data = a.Data
	return out, nil
}

// Delete removes an artifact. Unknown IDs are ignored.
func (s *ArtifactStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// Len returns the number of stored artifacts.
func (s *ArtifactStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Bytes returns the combined size of stored artifacts.
func (s *ArtifactStore) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Sweep removes expired artifacts and returns how many were removed.
func (s *ArtifactStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// Run sweeps every interval until ctx is cancelled.
func (s *ArtifactStore) Run(ctx context.Context, interval time.Duration) {
	slog.Info("artifact sweeper started", "ttl", s.ttl, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("artifact sweeper stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("expired artifacts removed", "count", n, "remaining", s.Len())
			}
		}
	}
}

func (s *ArtifactStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, a := range s.items {
		if !now.Before(a.ExpiresAt) {
			s.removeLocked(id)
			removed++
		}
	}
	return removed
}

// evictLocked drops the oldest artifacts until at most limit bytes remain.
func (s *ArtifactStore) evictLocked(limit int64) {
	if s.total <= limit {
		return
	}
	byAge := make([]*Artifact, 0, len(s.items))
	for _, a := range s.items {
		byAge = append(byAge, a)
	}
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].CreatedAt.Before(byAge[j].CreatedAt)
	})
	for _, a := range byAge {
		if s.total <= limit {
			return
		}
		s.removeLocked(a.ID)
	}
}

func (s *ArtifactStore) removeLocked(id string) {
	if a, ok := s.items[id]; ok {
		s.total -= a.Size
		delete(s.items, id)
	}
}

func (a *Artifact) meta() Artifact {
	return Artifact{
		ID:        a.ID,
		Name:      a.Name,
		Size:      a.Size,
		CreatedAt: a.CreatedAt,
		ExpiresAt: a.ExpiresAt,
	}
}
