package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"citywatch/internal/domain/event"
	"citywatch/internal/domain/narrative"
	"citywatch/internal/domain/post"
	"citywatch/internal/service/detect"
)

// Config contains configuration for the event pipeline.
type Config struct {
	// ScanInterval is how often the detection pass runs.
	ScanInterval time.Duration

	// LookbackWindow is how far back each pass pulls posts.
	LookbackWindow time.Duration

	// MinClusterSize is the smallest duplicate group submitted for
	// synthesis. Smaller clusters are noise and are skipped.
	MinClusterSize int

	// EventsTopic is the NATS subject prefix for published events.
	EventsTopic string
}

// PostStore persists ingested posts and serves the detection window.
type PostStore interface {
	SavePosts(ctx context.Context, posts []post.Post) error
	PostsSince(ctx context.Context, since time.Time) ([]post.Post, error)
}

// EventStore persists synthesized events.
type EventStore interface {
	SaveEvent(ctx context.Context, e event.SynthesizedEvent) error
}

// Synthesizer builds one event from a cluster of posts.
type Synthesizer interface {
	Synthesize(ctx context.Context, posts []post.Post, groups []event.DuplicateGroup) (event.SynthesizedEvent, error)
}

// Pipeline runs the detect-infer-synthesize loop over incoming posts.
type Pipeline struct {
	sources     []post.Source
	detector    *detect.Detector
	synthesizer Synthesizer
	geocoder    narrative.Geocoder
	postStore   PostStore
	eventStore  EventStore
	eventBus    *nats.Conn
	config      Config
	logger      *zap.Logger

	handlers []func(event.SynthesizedEvent) error
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewPipeline creates an event pipeline.
func NewPipeline(
	sources []post.Source,
	detector *detect.Detector,
	synthesizer Synthesizer,
	geocoder narrative.Geocoder,
	postStore PostStore,
	eventStore EventStore,
	eventBus *nats.Conn,
	config Config,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		sources:     sources,
		detector:    detector,
		synthesizer: synthesizer,
		geocoder:    geocoder,
		postStore:   postStore,
		eventStore:  eventStore,
		eventBus:    eventBus,
		config:      config,
		logger:      logger,
	}
}

// RegisterEventHandler registers a callback invoked for every synthesized event.
func (p *Pipeline) RegisterEventHandler(handler func(event.SynthesizedEvent) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
}

// Start begins the scan loop.
func (p *Pipeline) Start(ctx context.Context) error {
	p.wg.Add(1)
	go p.run(ctx)
	return nil
}

// Stop waits for the scan loop and any in-flight synthesis to finish.
func (p *Pipeline) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Scan(ctx)
		}
	}
}

// Scan runs one full detection pass: ingest from all sources, detect
// duplicate clusters over the lookback window, and synthesize each
// qualifying cluster. A failed cluster never blocks the others.
func (p *Pipeline) Scan(ctx context.Context) {
	p.ingest(ctx)

	since := time.Now().UTC().Add(-p.config.LookbackWindow)
	posts, err := p.postStore.PostsSince(ctx, since)
	if err != nil {
		p.logger.Error("loading detection window", zap.Error(err))
		return
	}
	if len(posts) == 0 {
		return
	}

	groups := p.detector.Detect(posts)
	if len(groups) == 0 {
		return
	}

	byID := make(map[string]post.Post, len(posts))
	for _, pt := range posts {
		byID[pt.ID] = pt
	}

	// Clusters are independent; synthesize them concurrently.
	var wg sync.WaitGroup
	for _, group := range groups {
		if len(group) < p.config.MinClusterSize {
			continue
		}

		wg.Add(1)
		go func(group event.DuplicateGroup) {
			defer wg.Done()

			if err := p.synthesizeCluster(ctx, group, byID); err != nil {
				p.logger.Error("synthesizing cluster",
					zap.Int("cluster_size", len(group)),
					zap.Error(err),
				)
			}
		}(group)
	}
	wg.Wait()
}

// ingest pulls recent posts from every configured source into the store.
func (p *Pipeline) ingest(ctx context.Context) {
	since := time.Now().UTC().Add(-p.config.LookbackWindow)

	for _, src := range p.sources {
		posts, err := src.FetchRecent(ctx, since)
		if err != nil {
			p.logger.Error("fetching posts", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		if len(posts) == 0 {
			continue
		}

		if err := p.postStore.SavePosts(ctx, posts); err != nil {
			p.logger.Error("saving posts", zap.String("source", src.Name()), zap.Error(err))
		}
	}
}

func (p *Pipeline) synthesizeCluster(ctx context.Context, group event.DuplicateGroup, byID map[string]post.Post) error {
	clusterPosts := make([]post.Post, 0, len(group))
	for _, id := range group {
		if pt, ok := byID[id]; ok {
			clusterPosts = append(clusterPosts, pt)
		}
	}
	if len(clusterPosts) < p.config.MinClusterSize {
		return nil
	}

	ev, err := p.synthesizer.Synthesize(ctx, clusterPosts, []event.DuplicateGroup{group})
	if err != nil {
		return err
	}

	p.resolveAddress(ctx, &ev)

	if err := p.eventStore.SaveEvent(ctx, ev); err != nil {
		return fmt.Errorf("saving event: %w", err)
	}

	p.publishEvent(ev)
	p.callHandlers(ev)

	p.logger.Info("event synthesized",
		zap.String("event_id", ev.ID),
		zap.String("event_type", string(ev.EventType)),
		zap.String("severity", string(ev.Severity)),
		zap.Int("post_count", len(clusterPosts)),
	)

	return nil
}

// resolveAddress fills in address context after inference. Geocoding is
// best effort; a failure leaves the address empty.
func (p *Pipeline) resolveAddress(ctx context.Context, ev *event.SynthesizedEvent) {
	if p.geocoder == nil {
		return
	}

	address, city, state, country, err := p.geocoder.ReverseGeocode(ctx, ev.Location.Latitude, ev.Location.Longitude)
	if err != nil {
		p.logger.Warn("reverse geocoding", zap.String("event_id", ev.ID), zap.Error(err))
		return
	}

	ev.Address = event.Address{
		Address: address,
		City:    city,
		State:   state,
		Country: country,
	}
}

func (p *Pipeline) publishEvent(ev event.SynthesizedEvent) {
	if p.eventBus == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshaling event", zap.String("event_id", ev.ID), zap.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.event.detected", p.config.EventsTopic)
	if err := p.eventBus.Publish(subject, data); err != nil {
		p.logger.Error("publishing event", zap.String("event_id", ev.ID), zap.Error(err))
	}
}

func (p *Pipeline) callHandlers(ev event.SynthesizedEvent) {
	p.mu.RLock()
	handlers := make([]func(event.SynthesizedEvent) error, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ev); err != nil {
			p.logger.Error("event handler", zap.String("event_id", ev.ID), zap.Error(err))
		}
	}
}
