package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"citywatch/internal/domain/area"
)

// SentimentStore implements storage for area sentiment and alerts. The
// stored row for each area doubles as the previous-score baseline for the
// next sweep's trend computation.
type SentimentStore struct {
	db *pgxpool.Pool
}

// NewSentimentStore creates a new sentiment store.
func NewSentimentStore(db *pgxpool.Pool) *SentimentStore {
	return &SentimentStore{
		db: db,
	}
}

// PreviousScore returns the last stored combined score for an area.
func (s *SentimentStore) PreviousScore(ctx context.Context, areaName string) (float64, bool, error) {
	query := `SELECT score FROM area_sentiments WHERE area_name = $1`

	var score float64
	err := s.db.QueryRow(ctx, query, areaName).Scan(&score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("error querying previous score: %w", err)
	}

	return score, true, nil
}

// SaveSentiment upserts an area's latest measurement.
func (s *SentimentStore) SaveSentiment(ctx context.Context, r area.Sentiment) error {
	query := `
		INSERT INTO area_sentiments (
			area_name, center_lat, center_lng,
			bounds_north, bounds_south, bounds_east, bounds_west,
			score, classification, confidence, keywords, summary,
			report_count, social_count, user_report_count, civic_count,
			trend_direction, last_updated
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18
		)
		ON CONFLICT (area_name) DO UPDATE
		SET
			score = $8,
			classification = $9,
			confidence = $10,
			keywords = $11,
			summary = $12,
			report_count = $13,
			social_count = $14,
			user_report_count = $15,
			civic_count = $16,
			trend_direction = $17,
			last_updated = $18
	`

	keywordsJSON, err := json.Marshal(r.Sentiment.Keywords)
	if err != nil {
		return fmt.Errorf("error marshaling keywords: %w", err)
	}

	_, err = s.db.Exec(
		ctx,
		query,
		r.AreaName,
		r.Coordinates.Latitude,
		r.Coordinates.Longitude,
		r.Bounds.North,
		r.Bounds.South,
		r.Bounds.East,
		r.Bounds.West,
		r.Sentiment.Score,
		string(r.Sentiment.Classification),
		r.Sentiment.Confidence,
		keywordsJSON,
		r.Sentiment.Summary,
		r.ReportCount,
		r.Sources.Social,
		r.Sources.UserReports,
		r.Sources.Civic,
		string(r.TrendDirection),
		r.LastUpdated,
	)

	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

const sentimentColumns = `
	area_name, center_lat, center_lng,
	bounds_north, bounds_south, bounds_east, bounds_west,
	score, classification, confidence, keywords, summary,
	report_count, social_count, user_report_count, civic_count,
	trend_direction, last_updated
`

// GetSentiment retrieves one area's latest measurement.
func (s *SentimentStore) GetSentiment(ctx context.Context, areaName string) (*area.Sentiment, error) {
	query := `SELECT ` + sentimentColumns + ` FROM area_sentiments WHERE area_name = $1`

	r, err := scanSentiment(s.db.QueryRow(ctx, query, areaName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error querying area sentiment: %w", err)
	}

	return r, nil
}

// ListSentiments returns the latest measurement for every area.
func (s *SentimentStore) ListSentiments(ctx context.Context) ([]area.Sentiment, error) {
	query := `SELECT ` + sentimentColumns + ` FROM area_sentiments ORDER BY area_name ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var results []area.Sentiment
	for rows.Next() {
		r, err := scanSentiment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning area sentiment: %w", err)
		}
		results = append(results, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating area sentiments: %w", err)
	}

	return results, nil
}

// SaveAlert records a triggered alert.
func (s *SentimentStore) SaveAlert(ctx context.Context, a area.Alert) error {
	query := `
		INSERT INTO alerts (
			id, area_name, alert_type, severity,
			score, confidence, trend_direction, triggered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(
		ctx,
		query,
		a.ID,
		a.AreaName,
		a.AlertType,
		a.Severity,
		a.Score,
		a.Confidence,
		string(a.TrendDirection),
		a.TriggeredAt,
	)

	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// ListAlerts returns the most recent alerts, newest first.
func (s *SentimentStore) ListAlerts(ctx context.Context, limit int) ([]area.Alert, error) {
	query := `
		SELECT id, area_name, alert_type, severity,
			score, confidence, trend_direction, triggered_at
		FROM alerts
		ORDER BY triggered_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var alerts []area.Alert
	for rows.Next() {
		var a area.Alert
		var direction string

		if err := rows.Scan(
			&a.ID,
			&a.AreaName,
			&a.AlertType,
			&a.Severity,
			&a.Score,
			&a.Confidence,
			&direction,
			&a.TriggeredAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}

		a.TrendDirection = area.TrendDirection(direction)
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

func scanSentiment(row pgx.Row) (*area.Sentiment, error) {
	var r area.Sentiment
	var classification, direction string
	var keywordsJSON []byte

	err := row.Scan(
		&r.AreaName,
		&r.Coordinates.Latitude,
		&r.Coordinates.Longitude,
		&r.Bounds.North,
		&r.Bounds.South,
		&r.Bounds.East,
		&r.Bounds.West,
		&r.Sentiment.Score,
		&classification,
		&r.Sentiment.Confidence,
		&keywordsJSON,
		&r.Sentiment.Summary,
		&r.ReportCount,
		&r.Sources.Social,
		&r.Sources.UserReports,
		&r.Sources.Civic,
		&direction,
		&r.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	r.Sentiment.Classification = area.Classification(classification)
	r.TrendDirection = area.TrendDirection(direction)

	if err := json.Unmarshal(keywordsJSON, &r.Sentiment.Keywords); err != nil {
		return nil, fmt.Errorf("error unmarshaling keywords: %w", err)
	}

	return &r, nil
}
