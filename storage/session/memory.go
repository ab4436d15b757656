// Package session implements the enrollment wizard session stores.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-emis/core/enrollment"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte // JSON encoded snapshots, so callers never share state
	updated  map[string]time.Time

	lockMu    sync.Mutex
	locks     map[string]memLock
	lockCount uint64

	now func() time.Time
}

type memLock struct {
	token  uint64
	expiry time.Time
}

var _ enrollment.SessionStore = (*memoryStore)(nil) // interface compliance check

// NewMemoryStore returns an in-process store. Idle wizards are removed by Sweep.
func NewMemoryStore() enrollment.SessionStore {
	return &memoryStore{
		sessions: make(map[string][]byte),
		updated:  make(map[string]time.Time),
		locks:    make(map[string]memLock),
		now:      time.Now,
	}
}

func (s *memoryStore) Save(_ context.Context, snap enrollment.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding wizard")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[snap.ID] = data
	s.updated[snap.ID] = s.now()
	return nil
}

func (s *memoryStore) Load(_ context.Context, id string) (enrollment.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return enrollment.Snapshot{}, enrollment.ErrNotFound
	}

	var snap enrollment.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return enrollment.Snapshot{}, errors.Wrap(err, "decoding wizard")
	}
	return snap, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.updated, id)
	return nil
}

func (s *memoryStore) Lock(_ context.Context, id string, ttl time.Duration) (func(), error) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	now := s.now()
	if l, ok := s.locks[id]; ok && now.Before(l.expiry) {
		return nil, enrollment.ErrLocked
	}
	s.lockCount++
	token := s.lockCount
	s.locks[id] = memLock{token: token, expiry: now.Add(ttl)}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			s.lockMu.Lock()
			defer s.lockMu.Unlock()
			// only release our own lock: it may have expired & been taken over
			if l, ok := s.locks[id]; ok && l.token == token {
				delete(s.locks, id)
			}
		})
	}
	return unlock, nil
}

func (s *memoryStore) Sweep(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, t := range s.updated {
		if t.Before(before) {
			delete(s.sessions, id)
			delete(s.updated, id)
			n++
		}
	}

	s.lockMu.Lock()
	now := s.now()
	for id, l := range s.locks {
		if !now.Before(l.expiry) {
			delete(s.locks, id)
		}
	}
	s.lockMu.Unlock()
	return n, nil
}
