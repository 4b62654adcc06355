package application

import (
	"context"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
)

const (
	DefaultJournalLimit = 50
	MaxJournalLimit     = 500
)

// GetSagaJournalQuery represents the query to get the lifecycle journal of a saga
type GetSagaJournalQuery struct {
	SagaID string `json:"saga_id"`
}

// JournalEntry is one recorded lifecycle event
type JournalEntry struct {
	EventID   string      `json:"event_id"`
	SagaID    string      `json:"saga_id,omitempty"`
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// GetSagaJournalResponse lists journal entries in the order they were recorded
type GetSagaJournalResponse struct {
	SagaID  string         `json:"saga_id"`
	Entries []JournalEntry `json:"entries"`
}

// ListJournalByTypeQuery pages through journal entries of one event type across sagas
type ListJournalByTypeQuery struct {
	EventType string `json:"event_type"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
}

// ListJournalByTypeResponse lists entries oldest first
type ListJournalByTypeResponse struct {
	EventType string         `json:"event_type"`
	Offset    int            `json:"offset"`
	Limit     int            `json:"limit"`
	Entries   []JournalEntry `json:"entries"`
}

// GetSagaJournal use case
type GetSagaJournal struct {
	sagaRepository domain.SagaRepository
	journal        events.EventStore
}

// NewGetSagaJournal creates a new GetSagaJournal use case
func NewGetSagaJournal(sagaRepository domain.SagaRepository, journal events.EventStore) *GetSagaJournal {
	return &GetSagaJournal{
		sagaRepository: sagaRepository,
		journal:        journal,
	}
}

// Execute executes the get saga journal use case
func (uc *GetSagaJournal) Execute(ctx context.Context, query *GetSagaJournalQuery) (*GetSagaJournalResponse, error) {
	if query.SagaID == "" {
		return nil, errors.Wrap(domain.ErrInvalidPayload, "saga ID is required")
	}

	sagaID, err := models.NewID(query.SagaID)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidPayload, "invalid saga ID: %v", err)
	}

	saga, err := uc.sagaRepository.FindByID(ctx, sagaID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find saga")
	}
	if saga == nil {
		return nil, errors.Wrapf(domain.ErrSagaNotFound, "saga %s", sagaID)
	}

	recorded, err := uc.journal.GetEvents(ctx, sagaID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load saga journal")
	}

	response := &GetSagaJournalResponse{
		SagaID:  sagaID.String(),
		Entries: make([]JournalEntry, 0, len(recorded)),
	}
	for _, event := range recorded {
		response.Entries = append(response.Entries, JournalEntry{
			EventID:   event.ID.String(),
			EventType: event.EventType,
			Data:      event.Data,
			Timestamp: event.Timestamp.Format(time.RFC3339),
		})
	}

	return response, nil
}

// ListByType returns a page of journal entries recorded with the given event type
func (uc *GetSagaJournal) ListByType(ctx context.Context, query *ListJournalByTypeQuery) (*ListJournalByTypeResponse, error) {
	if query.EventType == "" {
		return nil, errors.Wrap(domain.ErrInvalidPayload, "event type is required")
	}
	if query.Offset < 0 {
		return nil, errors.Wrap(domain.ErrInvalidPayload, "offset must not be negative")
	}

	limit := query.Limit
	switch {
	case limit < 0:
		return nil, errors.Wrap(domain.ErrInvalidPayload, "limit must not be negative")
	case limit == 0:
		limit = DefaultJournalLimit
	case limit > MaxJournalLimit:
		limit = MaxJournalLimit
	}

	recorded, err := uc.journal.GetEventsByType(ctx, query.EventType, query.Offset, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s journal entries", query.EventType)
	}

	response := &ListJournalByTypeResponse{
		EventType: query.EventType,
		Offset:    query.Offset,
		Limit:     limit,
		Entries:   make([]JournalEntry, 0, len(recorded)),
	}
	for _, event := range recorded {
		response.Entries = append(response.Entries, JournalEntry{
			EventID:   event.ID.String(),
			SagaID:    event.AggregateID.String(),
			EventType: event.EventType,
			Data:      event.Data,
			Timestamp: event.Timestamp.Format(time.RFC3339),
		})
	}

	return response, nil
}
