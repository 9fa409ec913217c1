package keyval

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/rollcall/core/presence"
)

// MemStore is an in-memory presence store for tests and local development.
type MemStore struct {
	mu      sync.RWMutex
	signals map[string]map[string]bool // lessonID -> deviceID -> seen
}

var _ presence.Store = (*MemStore)(nil) // interface compliance check

func NewMemStore() *MemStore {
	return &MemStore{signals: make(map[string]map[string]bool)}
}

func (s *MemStore) Put(ctx context.Context, lessonID, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices, ok := s.signals[lessonID]
	if !ok {
		devices = make(map[string]bool)
		s.signals[lessonID] = devices
	}
	devices[deviceID] = true
	return nil
}

func (s *MemStore) ListDevices(ctx context.Context, lessonID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := s.signals[lessonID]
	deviceIDs := make([]string, 0, len(devices))
	for deviceID := range devices {
		deviceIDs = append(deviceIDs, deviceID)
	}
	sort.Strings(deviceIDs)
	return deviceIDs, nil
}

func (s *MemStore) PurgeLesson(ctx context.Context, lessonID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.signals, lessonID)
	return nil
}
