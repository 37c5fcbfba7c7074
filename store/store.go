package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"mp4tomp3/model"
)

// ErrJobNotFound is returned when a job id has no record (or it expired).
var ErrJobNotFound = errors.New("job not found")

// JobStore persists conversion job records for the status API. Records are
// ephemeral: implementations may drop them after the configured TTL.
type JobStore interface {
	Put(ctx context.Context, job *model.ConversionJob) error
	Get(ctx context.Context, id string) (*model.ConversionJob, error)
	Close() error
}

// MemoryJobStore is the in-process JobStore used when Redis is not
// configured, and in tests. Expiry is enforced lazily on Get.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]memoryEntry
	ttl  time.Duration
}

type memoryEntry struct {
	job      model.ConversionJob
	deadline time.Time
}

// NewMemoryJobStore creates a memory store with the given record TTL.
func NewMemoryJobStore(ttl time.Duration) *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]memoryEntry),
		ttl:  ttl,
	}
}

func (s *MemoryJobStore) Put(ctx context.Context, job *model.ConversionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = memoryEntry{job: *job, deadline: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id string) (*model.ConversionJob, error) {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	if time.Now().After(entry.deadline) {
		s.mu.Lock()
		delete(s.jobs, id)
		s.mu.Unlock()
		return nil, ErrJobNotFound
	}
	job := entry.job
	return &job, nil
}

func (s *MemoryJobStore) Close() error {
	return nil
}

var _ JobStore = (*MemoryJobStore)(nil)
