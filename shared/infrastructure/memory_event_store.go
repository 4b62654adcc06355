package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
)

var _ events.EventStore = (*MemoryEventStore)(nil)

// MemoryEventStore keeps event streams in process memory
type MemoryEventStore struct {
	mu      sync.RWMutex
	streams map[models.ID][]*events.Event
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{streams: make(map[models.ID][]*events.Event)}
}

func (s *MemoryEventStore) SaveEvents(_ context.Context, aggregateID models.ID, evts []*events.Event, expectedVersion int) error {
	if len(evts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := len(s.streams[aggregateID])
	if expectedVersion != events.AnyVersion && current != expectedVersion {
		return errors.Wrapf(events.ErrVersionConflict, "expected version %d, got %d", expectedVersion, current)
	}

	for _, event := range evts {
		s.streams[aggregateID] = append(s.streams[aggregateID], event.Clone())
	}
	return nil
}

func (s *MemoryEventStore) GetEvents(_ context.Context, aggregateID models.ID) ([]*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[aggregateID]
	result := make([]*events.Event, len(stream))
	for i, event := range stream {
		result[i] = event.Clone()
	}
	return result, nil
}

func (s *MemoryEventStore) GetEventsByType(_ context.Context, eventType string, offset, limit int) ([]*events.Event, error) {
	s.mu.RLock()
	var matched []*events.Event
	for _, stream := range s.streams {
		for _, event := range stream {
			if event.EventType == eventType {
				matched = append(matched, event.Clone())
			}
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	if offset >= len(matched) {
		return []*events.Event{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}
