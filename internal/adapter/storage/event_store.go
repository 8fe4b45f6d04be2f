package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"citywatch/internal/domain/event"
	"citywatch/internal/domain/post"
)

// ErrNotFound indicates a lookup matched no row.
var ErrNotFound = errors.New("not found")

// EventStore implements storage for synthesized events.
type EventStore struct {
	db *pgxpool.Pool
}

// NewEventStore creates a new event store.
func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{
		db: db,
	}
}

// SaveEvent inserts a synthesized event.
func (s *EventStore) SaveEvent(ctx context.Context, e event.SynthesizedEvent) error {
	query := `
		INSERT INTO events (
			id, title, summary, suggested_action, event_type, severity,
			confidence, location, address, city, state, country,
			affected_radius, estimated_duration, key_insights,
			source_post_ids, duplicate_groups, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, ST_MakePoint($8, $9)::geography, $10, $11, $12, $13,
			$14, $15, $16,
			$17, $18, $19
		)
	`

	insightsJSON, err := json.Marshal(e.KeyInsights)
	if err != nil {
		return fmt.Errorf("error marshaling key insights: %w", err)
	}

	groupsJSON, err := json.Marshal(e.DuplicateGroups)
	if err != nil {
		return fmt.Errorf("error marshaling duplicate groups: %w", err)
	}

	_, err = s.db.Exec(
		ctx,
		query,
		e.ID,
		e.Title,
		e.Summary,
		e.SuggestedAction,
		string(e.EventType),
		string(e.Severity),
		e.Confidence,
		e.Location.Longitude,
		e.Location.Latitude,
		e.Address.Address,
		e.Address.City,
		e.Address.State,
		e.Address.Country,
		e.AffectedRadius,
		e.EstimatedDuration,
		insightsJSON,
		e.SourcePostIDs,
		groupsJSON,
		e.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

const eventColumns = `
	id, title, summary, suggested_action, event_type, severity,
	confidence, ST_Y(location::geometry) as lat, ST_X(location::geometry) as lng,
	address, city, state, country,
	affected_radius, estimated_duration, key_insights,
	source_post_ids, duplicate_groups, created_at
`

// GetEvent retrieves an event by id.
func (s *EventStore) GetEvent(ctx context.Context, id string) (*event.SynthesizedEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	row := s.db.QueryRow(ctx, query, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error querying event: %w", err)
	}

	return e, nil
}

// ListEvents returns the most recent events, newest first.
func (s *EventStore) ListEvents(ctx context.Context, limit int) ([]event.SynthesizedEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// EventsNear returns events within radiusKm of a point, closest first.
func (s *EventStore) EventsNear(ctx context.Context, location post.GeoPoint, radiusKm float64, limit int) ([]event.SynthesizedEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE ST_DWithin(geography(location), geography(ST_MakePoint($1, $2)), $3 * 1000)
		ORDER BY ST_Distance(geography(location), geography(ST_MakePoint($1, $2))) ASC
		LIMIT $4
	`

	rows, err := s.db.Query(ctx, query, location.Longitude, location.Latitude, radiusKm, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvent(row pgx.Row) (*event.SynthesizedEvent, error) {
	var e event.SynthesizedEvent
	var eventType, severity string
	var lat, lng *float64
	var insightsJSON, groupsJSON []byte

	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Summary,
		&e.SuggestedAction,
		&eventType,
		&severity,
		&e.Confidence,
		&lat,
		&lng,
		&e.Address.Address,
		&e.Address.City,
		&e.Address.State,
		&e.Address.Country,
		&e.AffectedRadius,
		&e.EstimatedDuration,
		&insightsJSON,
		&e.SourcePostIDs,
		&groupsJSON,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.EventType = event.EventType(eventType)
	e.Severity = event.Severity(severity)

	if lat != nil && lng != nil {
		e.Location = post.GeoPoint{Latitude: *lat, Longitude: *lng}
	}

	if err := json.Unmarshal(insightsJSON, &e.KeyInsights); err != nil {
		return nil, fmt.Errorf("error unmarshaling key insights: %w", err)
	}

	if err := json.Unmarshal(groupsJSON, &e.DuplicateGroups); err != nil {
		return nil, fmt.Errorf("error unmarshaling duplicate groups: %w", err)
	}

	return &e, nil
}

func scanEvents(rows pgx.Rows) ([]event.SynthesizedEvent, error) {
	var events []event.SynthesizedEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning event: %w", err)
		}
		events = append(events, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}
