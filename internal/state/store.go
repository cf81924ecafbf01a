package state

import (
	"sync"
	"time"

	"github.com/ukydev/school-transit/internal/models"
)

// LiveState is the transient per-vehicle tracking state. It holds the last
// accepted sample and the membership status for every zone on the vehicle's
// route. It is never persisted; durable history lives in the GPS log.
type LiveState struct {
	Location  models.Location
	Speed     float64
	Heading   float64
	Timestamp time.Time
	Zones     map[string]models.Membership
}

func (s *LiveState) clone() *LiveState {
	c := *s
	c.Zones = make(map[string]models.Membership, len(s.Zones))
	for k, v := range s.Zones {
		c.Zones[k] = v
	}
	return &c
}

// Store is a concurrency-safe table of LiveState keyed by vehicle id.
// Updates for the same vehicle are serialized through a per-vehicle mutex;
// updates for different vehicles proceed in parallel. The table mutex is
// only held while locating or creating an entry, never across an update.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu    sync.Mutex
	state *LiveState // nil until the first successful update
}

// NewStore creates an empty state store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Get returns a snapshot of the vehicle's live state. The second return is
// false when no sample has been accepted for the vehicle yet.
func (s *Store) Get(vehicleID string) (LiveState, bool) {
	s.mu.RLock()
	e, ok := s.entries[vehicleID]
	s.mu.RUnlock()
	if !ok {
		return LiveState{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return LiveState{}, false
	}
	return *e.state.clone(), true
}

// Update applies fn to the vehicle's live state under the per-vehicle lock.
// fn receives a working copy: if fn returns an error nothing is committed,
// so a failed update leaves no partial state behind. A vehicle with no prior
// state sees a zero-value LiveState with an empty zone map.
func (s *Store) Update(vehicleID string, fn func(*LiveState) error) error {
	e := s.entryFor(vehicleID)

	e.mu.Lock()
	defer e.mu.Unlock()

	var working *LiveState
	if e.state != nil {
		working = e.state.clone()
	} else {
		working = &LiveState{Zones: make(map[string]models.Membership)}
	}

	if err := fn(working); err != nil {
		return err
	}
	e.state = working
	return nil
}

// Forget drops the vehicle's live state, if any.
func (s *Store) Forget(vehicleID string) {
	s.mu.Lock()
	delete(s.entries, vehicleID)
	s.mu.Unlock()
}

// Len returns the number of tracked vehicles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) entryFor(vehicleID string) *entry {
	s.mu.RLock()
	e, ok := s.entries[vehicleID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[vehicleID]; ok {
		return e
	}
	e = &entry{}
	s.entries[vehicleID] = e
	return e
}
