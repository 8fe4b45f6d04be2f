package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"citywatch/internal/domain/area"
	"citywatch/internal/domain/post"
)

// DataFetcher supplies the working set of signals for one area.
type DataFetcher interface {
	// SocialPosts returns recent social-platform posts inside the area bounds.
	SocialPosts(ctx context.Context, def area.Definition) ([]post.Post, error)

	// UserReports returns recent citizen reports inside the area bounds.
	UserReports(ctx context.Context, def area.Definition) ([]post.Post, error)
}

// Store persists sweep results and serves the previous-score baseline.
type Store interface {
	// PreviousScore returns the last stored combined score for the area.
	// found is false on the first sweep for a new area.
	PreviousScore(ctx context.Context, areaName string) (score float64, found bool, err error)

	// SaveSentiment upserts the area's latest measurement.
	SaveSentiment(ctx context.Context, s area.Sentiment) error

	// SaveAlert records a triggered alert.
	SaveAlert(ctx context.Context, a area.Alert) error
}

// SweeperConfig contains configuration for the sentiment sweeper.
type SweeperConfig struct {
	SweepInterval time.Duration
	EventsTopic   string
}

// Sweeper recomputes every area's sentiment on a fixed cadence.
type Sweeper struct {
	areas    []area.Definition
	fetcher  DataFetcher
	analyzer Analyzer
	store    Store
	eventBus *nats.Conn
	config   SweeperConfig
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewSweeper creates a sentiment sweeper over a fixed area list.
func NewSweeper(
	areas []area.Definition,
	fetcher DataFetcher,
	analyzer Analyzer,
	store Store,
	eventBus *nats.Conn,
	config SweeperConfig,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		areas:    areas,
		fetcher:  fetcher,
		analyzer: analyzer,
		store:    store,
		eventBus: eventBus,
		config:   config,
		logger:   logger,
	}
}

// Start begins the sweep loop. One sweep runs at a time; each area's
// baseline row is read and written by exactly one goroutine per sweep.
func (s *Sweeper) Start(ctx context.Context) error {
	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Stop waits for the sweep loop to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one full pass over the area list: analyze, aggregate, persist,
// publish, and evaluate alerts. A failed area never blocks the others.
func (s *Sweeper) Sweep(ctx context.Context) {
	results := s.ProcessAreas(ctx)

	for _, r := range results {
		if err := s.store.SaveSentiment(ctx, r); err != nil {
			s.logger.Error("saving area sentiment", zap.String("area", r.AreaName), zap.Error(err))
			continue
		}
		s.publish(fmt.Sprintf("%s.sentiment.updated", s.config.EventsTopic), r)
	}

	for _, a := range EvaluateAlerts(results, time.Now().UTC()) {
		if err := s.store.SaveAlert(ctx, a); err != nil {
			s.logger.Error("saving alert", zap.String("area", a.AreaName), zap.Error(err))
			continue
		}
		s.publish(fmt.Sprintf("%s.alert.triggered", s.config.EventsTopic), a)
		s.logger.Info("alert triggered",
			zap.String("area", a.AreaName),
			zap.String("type", a.AlertType),
			zap.Float64("score", a.Score),
		)
	}
}

// ProcessAreas computes the current sentiment for every area. Areas are
// independent and processed concurrently; the returned slice holds only the
// areas that succeeded, in no guaranteed order.
func (s *Sweeper) ProcessAreas(ctx context.Context) []area.Sentiment {
	computed := make([]*area.Sentiment, len(s.areas))

	var wg sync.WaitGroup
	for i, def := range s.areas {
		wg.Add(1)
		go func(i int, def area.Definition) {
			defer wg.Done()

			r, err := s.processArea(ctx, def)
			if err != nil {
				s.logger.Error("processing area", zap.String("area", def.Name), zap.Error(err))
				return
			}
			computed[i] = &r
		}(i, def)
	}
	wg.Wait()

	var results []area.Sentiment
	for _, r := range computed {
		if r != nil {
			results = append(results, *r)
		}
	}

	return results
}

// processArea computes one area's combined sentiment and trend.
func (s *Sweeper) processArea(ctx context.Context, def area.Definition) (area.Sentiment, error) {
	socialPosts, err := s.fetcher.SocialPosts(ctx, def)
	if err != nil {
		return area.Sentiment{}, fmt.Errorf("fetching social posts: %w", err)
	}

	reports, err := s.fetcher.UserReports(ctx, def)
	if err != nil {
		return area.Sentiment{}, fmt.Errorf("fetching user reports: %w", err)
	}

	socialResult, err := s.analyzer.AnalyzeSentiment(ctx, "social", texts(socialPosts))
	if err != nil {
		return area.Sentiment{}, fmt.Errorf("analyzing social sentiment: %w", err)
	}

	reportResult, err := s.analyzer.AnalyzeSentiment(ctx, "citizen_report", texts(reports))
	if err != nil {
		return area.Sentiment{}, fmt.Errorf("analyzing report sentiment: %w", err)
	}

	combined := Aggregate(socialResult, reportResult, len(socialPosts), len(reports))

	// First sweep for an area has no baseline and reports stable.
	direction := area.TrendStable
	if previous, found, err := s.store.PreviousScore(ctx, def.Name); err != nil {
		return area.Sentiment{}, fmt.Errorf("reading previous score: %w", err)
	} else if found {
		direction = Trend(combined.Score, previous)
	}

	return area.Sentiment{
		AreaName:    def.Name,
		Coordinates: def.Center,
		Bounds:      def.Bounds,
		Sentiment:   combined,
		ReportCount: len(socialPosts) + len(reports),
		Sources: area.SourceCounts{
			Social:      len(socialPosts),
			UserReports: len(reports),
		},
		TrendDirection: direction,
		LastUpdated:    time.Now().UTC(),
	}, nil
}

func (s *Sweeper) publish(subject string, payload interface{}) {
	if s.eventBus == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshaling event payload", zap.String("subject", subject), zap.Error(err))
		return
	}

	if err := s.eventBus.Publish(subject, data); err != nil {
		s.logger.Error("publishing event", zap.String("subject", subject), zap.Error(err))
	}
}

func texts(posts []post.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Text)
	}
	return out
}
