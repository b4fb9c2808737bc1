package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fieldledger/internal/audit/models"
	"fieldledger/pkg/platform/sentinel"
)

// InMemoryStore keeps audit events in a slice sorted by (timestamp, id).
// It mirrors the postgres store's ordering guarantees so unit tests exercise
// the same pagination behavior.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []models.Event
	byID   map[int64]struct{}
}

func New() *InMemoryStore {
	return &InMemoryStore{byID: make(map[int64]struct{})}
}

func (s *InMemoryStore) Append(_ context.Context, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[event.ID]; exists {
		return fmt.Errorf("append audit event %d: %w", event.ID, sentinel.ErrDuplicateIdentifier)
	}
	s.byID[event.ID] = struct{}{}

	// Insert keeping (timestamp, id) order so queries never re-sort.
	idx := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].After(models.Cursor{Timestamp: event.Timestamp, ID: event.ID})
	})
	s.events = append(s.events, models.Event{})
	copy(s.events[idx+1:], s.events[idx:])
	s.events[idx] = event
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, filter models.Filter, after models.Cursor, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Event
	for _, event := range s.events {
		if !after.IsZero() && !event.After(after) {
			continue
		}
		if !matches(event, filter) {
			continue
		}
		out = append(out, event)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListAfterID(_ context.Context, afterID int64, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Event, 0, limit)
	for _, event := range s.events {
		if event.ID > afterID {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func matches(event models.Event, filter models.Filter) bool {
	if !filter.SubjectType.IsNil() && event.Subject.Type != filter.SubjectType {
		return false
	}
	if filter.SubjectID != "" && event.Subject.ID != filter.SubjectID {
		return false
	}
	if filter.Actor != "" && event.Actor != filter.Actor {
		return false
	}
	if filter.Action != "" && event.Action != filter.Action {
		return false
	}
	if !filter.From.IsZero() && event.Timestamp.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && !event.Timestamp.Before(filter.To) {
		return false
	}
	return true
}
