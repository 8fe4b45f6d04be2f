package synthesize

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"citywatch/internal/domain/event"
	"citywatch/internal/domain/narrative"
	"citywatch/internal/domain/post"
)

// stubClient returns a canned response without any network dependency.
type stubClient struct {
	response string
	err      error
	prompts  []string
}

func (s *stubClient) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clusterPosts() []post.Post {
	loc := post.GeoPoint{Latitude: 37.7749, Longitude: -122.4194}
	return []post.Post{
		{ID: "p1", Text: "Big fire near the market", Timestamp: baseTime, Location: &loc, Source: "twitter"},
		{ID: "p2", Text: "Fire at the market, smoke everywhere", Timestamp: baseTime.Add(5 * time.Minute), Location: &loc, Source: "reddit"},
		{ID: "p3", Text: "Market street fire, avoid the area", Timestamp: baseTime.Add(8 * time.Minute), Location: &loc, Source: "citizen_report"},
	}
}

const goodResponse = `Here is the analysis you requested:
{"title":"Fire near Market Street","summary":"Multiple reports of a structure fire near the market.","suggestedAction":"Avoid the area","eventType":"emergency","severity":"high","confidence":0.9,"estimatedDuration":"2-4 hours","keyInsights":["smoke visible","three independent reports"]}
Let me know if you need anything else.`

func newTestSynthesizer(c narrative.Client) *Synthesizer {
	return NewSynthesizer(c, zap.NewNop())
}

func TestSynthesizeHappyPath(t *testing.T) {
	client := &stubClient{response: goodResponse}
	s := newTestSynthesizer(client)

	groups := []event.DuplicateGroup{{"p1", "p2", "p3"}}
	ev, err := s.Synthesize(context.Background(), clusterPosts(), groups)
	require.NoError(t, err)

	assert.Equal(t, "Fire near Market Street", ev.Title)
	assert.Equal(t, event.TypeEmergency, ev.EventType)
	assert.Equal(t, event.SeverityHigh, ev.Severity)
	assert.Equal(t, []string{"p1", "p2", "p3"}, ev.SourcePostIDs)
	assert.Equal(t, groups, ev.DuplicateGroups)
	assert.NotEmpty(t, ev.ID)

	// Co-located posts give location confidence 1.0, so the model's 0.9 caps.
	assert.InDelta(t, 0.9, ev.Confidence, 1e-9)
	assert.Equal(t, 500.0, ev.AffectedRadius)
}

func TestSynthesizeWeakerSignalCapsConfidence(t *testing.T) {
	client := &stubClient{response: goodResponse}
	s := newTestSynthesizer(client)

	// One located post gives location confidence 0.5, below the model's 0.9.
	posts := clusterPosts()
	posts[1].Location = nil
	posts[2].Location = nil

	ev, err := s.Synthesize(context.Background(), posts, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ev.Confidence, 1e-9)
}

func TestSynthesizeNoJSONIsFatal(t *testing.T) {
	client := &stubClient{response: "Sorry, I cannot help with that."}
	s := newTestSynthesizer(client)

	_, err := s.Synthesize(context.Background(), clusterPosts(), nil)
	assert.ErrorIs(t, err, event.ErrSynthesisParse)
}

func TestSynthesizeMalformedJSONIsFatal(t *testing.T) {
	client := &stubClient{response: `{"title": "unterminated`}
	s := newTestSynthesizer(client)

	_, err := s.Synthesize(context.Background(), clusterPosts(), nil)
	assert.ErrorIs(t, err, event.ErrSynthesisParse)
}

func TestSynthesizeClientErrorPropagates(t *testing.T) {
	client := &stubClient{err: narrative.ErrUnavailable}
	s := newTestSynthesizer(client)

	_, err := s.Synthesize(context.Background(), clusterPosts(), nil)
	assert.ErrorIs(t, err, narrative.ErrUnavailable)
}

func TestSynthesizeNoLocatedPosts(t *testing.T) {
	client := &stubClient{response: goodResponse}
	s := newTestSynthesizer(client)

	posts := clusterPosts()
	for i := range posts {
		posts[i].Location = nil
	}

	_, err := s.Synthesize(context.Background(), posts, nil)
	assert.ErrorIs(t, err, event.ErrNoLocationData)
}

func TestSynthesizeFieldDefaults(t *testing.T) {
	// Missing eventType, severity, and confidence degrade to defaults
	// instead of failing.
	client := &stubClient{response: `{"title":"Something happened","summary":"A thing."}`}
	s := newTestSynthesizer(client)

	ev, err := s.Synthesize(context.Background(), clusterPosts(), nil)
	require.NoError(t, err)

	assert.Equal(t, event.TypeEmergency, ev.EventType)
	assert.Equal(t, event.SeverityMedium, ev.Severity)
	assert.InDelta(t, 0.7, ev.Confidence, 1e-9)
}

func TestSynthesizeUnknownEnumFallsBack(t *testing.T) {
	client := &stubClient{response: `{"title":"t","summary":"s","eventType":"alien_invasion","severity":"apocalyptic","confidence":0.8}`}
	s := newTestSynthesizer(client)

	ev, err := s.Synthesize(context.Background(), clusterPosts(), nil)
	require.NoError(t, err)

	assert.Equal(t, event.TypeOther, ev.EventType)
	assert.Equal(t, event.SeverityMedium, ev.Severity)
}

func TestSynthesizeConfidenceClamped(t *testing.T) {
	client := &stubClient{response: `{"title":"t","summary":"s","confidence":3.5}`}
	s := newTestSynthesizer(client)

	ev, err := s.Synthesize(context.Background(), clusterPosts(), nil)
	require.NoError(t, err)
	// Clamped to 1.0, then capped by location confidence 1.0.
	assert.InDelta(t, 1.0, ev.Confidence, 1e-9)
}

func TestSynthesizeTruncatesLongFields(t *testing.T) {
	long := strings.Repeat("x", 500)
	client := &stubClient{response: `{"title":"` + long + `","summary":"` + long + `","confidence":0.8}`}
	s := newTestSynthesizer(client)

	ev, err := s.Synthesize(context.Background(), clusterPosts(), nil)
	require.NoError(t, err)
	assert.Len(t, ev.Title, 80)
	assert.Len(t, ev.Summary, 300)
}

func TestSynthesizeTruncatesOnRuneBoundaries(t *testing.T) {
	long := strings.Repeat("é", 500)
	client := &stubClient{response: `{"title":"` + long + `","summary":"` + long + `","confidence":0.8}`}
	s := newTestSynthesizer(client)

	ev, err := s.Synthesize(context.Background(), clusterPosts(), nil)
	require.NoError(t, err)

	assert.Equal(t, 80, utf8.RuneCountInString(ev.Title))
	assert.Equal(t, 300, utf8.RuneCountInString(ev.Summary))
	assert.True(t, utf8.ValidString(ev.Title))
	assert.True(t, utf8.ValidString(ev.Summary))
}

func TestBuildPromptEnumeratesPosts(t *testing.T) {
	client := &stubClient{response: goodResponse}
	s := newTestSynthesizer(client)

	groups := []event.DuplicateGroup{{"p1", "p2"}}
	_, err := s.Synthesize(context.Background(), clusterPosts(), groups)
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "[twitter]")
	assert.Contains(t, prompt, "[reddit]")
	assert.Contains(t, prompt, "Big fire near the market")
	assert.Contains(t, prompt, "group 1: p1, p2")
}

func TestParseResponseKeepsInsights(t *testing.T) {
	resp, err := parseResponse(goodResponse)
	require.NoError(t, err)
	assert.Equal(t, []string{"smoke visible", "three independent reports"}, resp.KeyInsights)
	require.NotNil(t, resp.Confidence)
	assert.InDelta(t, 0.9, *resp.Confidence, 1e-9)
}
