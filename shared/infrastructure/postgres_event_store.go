package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var _ events.EventStore = (*PostgresEventStore)(nil)

const (
	eventColumns = `id, aggregate_id, event_type, version, data, metadata, timestamp, correlation_id, stream_version`

	insertEventQuery = `
		INSERT INTO event_stream (` + eventColumns + `)
		VALUES (:id, :aggregate_id, :event_type, :version, :data, :metadata, :timestamp, :correlation_id, :stream_version)`
)

// PostgresEventStore implements EventStore using PostgreSQL. The orchestrator
// uses it as the saga lifecycle journal, one stream per saga.
type PostgresEventStore struct {
	db *sqlx.DB
}

// NewPostgresEventStore creates a new PostgresEventStore
func NewPostgresEventStore(db *sqlx.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

type eventRow struct {
	ID            string    `db:"id"`
	AggregateID   string    `db:"aggregate_id"`
	EventType     string    `db:"event_type"`
	Version       string    `db:"version"`
	Data          []byte    `db:"data"`
	Metadata      []byte    `db:"metadata"`
	Timestamp     time.Time `db:"timestamp"`
	CorrelationID string    `db:"correlation_id"`
	StreamVersion int       `db:"stream_version"`
}

// SaveEvents appends events to the aggregate stream. expectedVersion is the
// stream length the caller observed, or events.AnyVersion to append blindly.
func (es *PostgresEventStore) SaveEvents(ctx context.Context, aggregateID models.ID, evts []*events.Event, expectedVersion int) error {
	if len(evts) == 0 {
		return nil
	}

	rows := make([]*eventRow, 0, len(evts))
	for _, event := range evts {
		row, err := newEventRow(event)
		if err != nil {
			return errors.Wrapf(err, "event %s", event.ID)
		}
		rows = append(rows, row)
	}

	tx, err := es.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	// one writer per stream until commit
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", aggregateID.String()); err != nil {
		return errors.Wrap(err, "failed to lock event stream")
	}

	var length int
	if err := tx.GetContext(ctx, &length,
		"SELECT COALESCE(MAX(stream_version), 0) FROM event_stream WHERE aggregate_id = $1",
		aggregateID.String()); err != nil {
		return errors.Wrap(err, "failed to read stream version")
	}
	if expectedVersion != events.AnyVersion && length != expectedVersion {
		return errors.Wrapf(events.ErrVersionConflict, "expected version %d, got %d", expectedVersion, length)
	}

	for i, row := range rows {
		row.StreamVersion = length + i + 1
		if _, err := tx.NamedExecContext(ctx, insertEventQuery, row); err != nil {
			return errors.Wrapf(err, "failed to append %s", row.EventType)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit events")
}

// GetEvents returns the stream of an aggregate in append order
func (es *PostgresEventStore) GetEvents(ctx context.Context, aggregateID models.ID) ([]*events.Event, error) {
	return es.selectEvents(ctx,
		`SELECT `+eventColumns+` FROM event_stream WHERE aggregate_id = $1 ORDER BY stream_version ASC`,
		aggregateID.String())
}

// GetEventsByType pages through every stream for one event type, oldest first
func (es *PostgresEventStore) GetEventsByType(ctx context.Context, eventType string, offset, limit int) ([]*events.Event, error) {
	return es.selectEvents(ctx,
		`SELECT `+eventColumns+` FROM event_stream WHERE event_type = $1
		ORDER BY timestamp ASC, aggregate_id ASC, stream_version ASC
		LIMIT $2 OFFSET $3`,
		eventType, limit, offset)
}

func (es *PostgresEventStore) selectEvents(ctx context.Context, query string, args ...interface{}) ([]*events.Event, error) {
	var rows []eventRow
	if err := es.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to query event stream")
	}

	result := make([]*events.Event, 0, len(rows))
	for i := range rows {
		event, err := rows[i].event()
		if err != nil {
			return nil, errors.Wrapf(err, "event %s", rows[i].ID)
		}
		result = append(result, event)
	}
	return result, nil
}

func newEventRow(event *events.Event) (*eventRow, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal data")
	}
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal metadata")
	}

	return &eventRow{
		ID:            event.ID.String(),
		AggregateID:   event.AggregateID.String(),
		EventType:     event.EventType,
		Version:       event.Version,
		Data:          data,
		Metadata:      metadata,
		Timestamp:     event.Timestamp,
		CorrelationID: event.CorrelationID.String(),
	}, nil
}

func (r *eventRow) event() (*events.Event, error) {
	id, err := models.NewID(r.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid event ID")
	}
	aggregateID, err := models.NewID(r.AggregateID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid aggregate ID")
	}

	var correlationID models.ID
	if r.CorrelationID != "" {
		if correlationID, err = models.NewID(r.CorrelationID); err != nil {
			return nil, errors.Wrap(err, "invalid correlation ID")
		}
	}

	var data interface{}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal data")
	}

	// metadata is always written as a string map, or null when unset
	var metadata events.Metadata
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal metadata")
		}
	}
	if metadata == nil {
		metadata = make(events.Metadata)
	}

	return &events.Event{
		ID:            id,
		AggregateID:   aggregateID,
		Topic:         events.Topic(r.EventType),
		EventType:     r.EventType,
		Version:       r.Version,
		Data:          data,
		Metadata:      metadata,
		Timestamp:     r.Timestamp,
		CorrelationID: correlationID,
	}, nil
}
