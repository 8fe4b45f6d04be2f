package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"citywatch/internal/domain/area"
	"citywatch/internal/domain/post"
)

// PostStore implements storage for ingested posts.
type PostStore struct {
	db *pgxpool.Pool
}

// NewPostStore creates a new post store.
func NewPostStore(db *pgxpool.Pool) *PostStore {
	return &PostStore{
		db: db,
	}
}

// SavePosts inserts a batch of posts, skipping ids already present.
func (s *PostStore) SavePosts(ctx context.Context, posts []post.Post) error {
	query := `
		INSERT INTO posts (
			id, text, created_at, location, source,
			likes, shares, comments
		) VALUES (
			$1, $2, $3,
			CASE WHEN $4::float8 IS NOT NULL AND $5::float8 IS NOT NULL
				THEN ST_MakePoint($5, $4)::geography ELSE NULL END,
			$6, $7, $8, $9
		)
		ON CONFLICT (id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, p := range posts {
		var lat, lng *float64
		if p.Location != nil {
			lat = &p.Location.Latitude
			lng = &p.Location.Longitude
		}

		batch.Queue(query,
			p.ID,
			p.Text,
			p.Timestamp,
			lat,
			lng,
			p.Source,
			p.Engagement.Likes,
			p.Engagement.Shares,
			p.Engagement.Comments,
		)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range posts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("error inserting post: %w", err)
		}
	}

	return nil
}

// PostsSince returns posts created at or after the given time, oldest first.
// The fixed ordering keeps duplicate detection deterministic across passes.
func (s *PostStore) PostsSince(ctx context.Context, since time.Time) ([]post.Post, error) {
	query := `
		SELECT
			id, text, created_at,
			ST_Y(location::geometry) as lat, ST_X(location::geometry) as lng,
			source, likes, shares, comments
		FROM posts
		WHERE created_at >= $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// PostsInBounds returns posts inside an area rectangle created at or after
// the given time, restricted to the listed source tags.
func (s *PostStore) PostsInBounds(ctx context.Context, bounds area.Bounds, sources []string, since time.Time) ([]post.Post, error) {
	query := `
		SELECT
			id, text, created_at,
			ST_Y(location::geometry) as lat, ST_X(location::geometry) as lng,
			source, likes, shares, comments
		FROM posts
		WHERE created_at >= $1
		AND source = ANY($2)
		AND location IS NOT NULL
		AND ST_Y(location::geometry) BETWEEN $3 AND $4
		AND ST_X(location::geometry) BETWEEN $5 AND $6
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.Query(ctx, query, since, sources, bounds.South, bounds.North, bounds.West, bounds.East)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func scanPosts(rows pgx.Rows) ([]post.Post, error) {
	var posts []post.Post
	for rows.Next() {
		var p post.Post
		var lat, lng *float64

		if err := rows.Scan(
			&p.ID,
			&p.Text,
			&p.Timestamp,
			&lat,
			&lng,
			&p.Source,
			&p.Engagement.Likes,
			&p.Engagement.Shares,
			&p.Engagement.Comments,
		); err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}

		if lat != nil && lng != nil {
			p.Location = &post.GeoPoint{Latitude: *lat, Longitude: *lng}
		}

		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}

// AreaFetcher serves the sentiment sweeper's working set from the post store.
type AreaFetcher struct {
	store          *PostStore
	socialSources  []string
	reportSources  []string
	lookbackWindow time.Duration
}

// NewAreaFetcher creates a fetcher splitting posts into social and
// citizen-report groups over a fixed lookback window.
func NewAreaFetcher(store *PostStore, socialSources, reportSources []string, lookbackWindow time.Duration) *AreaFetcher {
	return &AreaFetcher{
		store:          store,
		socialSources:  socialSources,
		reportSources:  reportSources,
		lookbackWindow: lookbackWindow,
	}
}

// SocialPosts returns recent social-platform posts inside the area bounds.
func (f *AreaFetcher) SocialPosts(ctx context.Context, def area.Definition) ([]post.Post, error) {
	since := time.Now().UTC().Add(-f.lookbackWindow)
	return f.store.PostsInBounds(ctx, def.Bounds, f.socialSources, since)
}

// UserReports returns recent citizen reports inside the area bounds.
func (f *AreaFetcher) UserReports(ctx context.Context, def area.Definition) ([]post.Post, error) {
	since := time.Now().UTC().Add(-f.lookbackWindow)
	return f.store.PostsInBounds(ctx, def.Bounds, f.reportSources, since)
}
