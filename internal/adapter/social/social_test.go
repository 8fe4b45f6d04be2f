package social

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedditFetchRecentMapsAndFilters(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	recent := now.Add(-10 * time.Minute)
	stale := now.Add(-3 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/sanfrancisco/new.json", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		fmt.Fprintf(w, `{"data":{"children":[
			{"data":{"name":"t3_abc","title":"Power outage in the Mission","selftext":"whole block is dark","score":42,"num_comments":7,"created_utc":%d}},
			{"data":{"name":"t3_old","title":"Last week's thread","score":1,"num_comments":0,"created_utc":%d}}
		]}}`, recent.Unix(), stale.Unix())
	}))
	defer server.Close()

	source := NewRedditSource(RedditConfig{BaseURL: server.URL, Subreddit: "sanfrancisco"})
	assert.Equal(t, "reddit", source.Name())

	posts, err := source.FetchRecent(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, "reddit-abc", p.ID)
	assert.Equal(t, "Power outage in the Mission\nwhole block is dark", p.Text)
	assert.Equal(t, recent, p.Timestamp)
	assert.Equal(t, "reddit", p.Source)
	assert.Equal(t, 42, p.Engagement.Likes)
	assert.Equal(t, 7, p.Engagement.Comments)
	assert.Nil(t, p.Location)
}

func TestRedditFetchRecentErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	source := NewRedditSource(RedditConfig{BaseURL: server.URL, Subreddit: "sanfrancisco"})

	_, err := source.FetchRecent(context.Background(), time.Now().Add(-time.Hour))
	assert.Error(t, err)
}

func TestMapTweetPointCoordinates(t *testing.T) {
	tweet := &twitter.TweetObj{
		ID:        "1234",
		Text:      "Smoke visible near the bridge",
		CreatedAt: "2026-08-30T12:00:00Z",
		PublicMetrics: &twitter.TweetMetricsObj{
			Likes:    10,
			Retweets: 3,
			Replies:  2,
		},
		Geo: &twitter.TweetGeoObj{
			Coordinates: twitter.TweetGeoCoordinatesObj{
				Type:        "Point",
				Coordinates: []float64{-122.4194, 37.7749},
			},
		},
	}

	p := mapTweet(tweet, nil)

	assert.Equal(t, "twitter-1234", p.ID)
	assert.Equal(t, "Smoke visible near the bridge", p.Text)
	assert.Equal(t, "twitter", p.Source)
	assert.Equal(t, 10, p.Engagement.Likes)
	assert.Equal(t, 3, p.Engagement.Shares)
	assert.Equal(t, 2, p.Engagement.Comments)

	require.NotNil(t, p.Location)
	assert.InDelta(t, 37.7749, p.Location.Latitude, 1e-9)
	assert.InDelta(t, -122.4194, p.Location.Longitude, 1e-9)
}

func TestMapTweetPlaceBBoxFallback(t *testing.T) {
	tweet := &twitter.TweetObj{
		ID:        "5678",
		Text:      "So loud downtown right now",
		CreatedAt: "2026-08-30T12:05:00Z",
		Geo:       &twitter.TweetGeoObj{PlaceID: "place-1"},
	}

	places := map[string]*twitter.PlaceObj{
		"place-1": {
			ID: "place-1",
			Geo: &twitter.PlaceGeoObj{
				Type: "Feature",
				BBox: []float64{-122.5, 37.7, -122.3, 37.9},
			},
		},
	}

	p := mapTweet(tweet, places)

	require.NotNil(t, p.Location)
	assert.InDelta(t, 37.8, p.Location.Latitude, 1e-9)
	assert.InDelta(t, -122.4, p.Location.Longitude, 1e-9)
}

func TestMapTweetNoGeo(t *testing.T) {
	tweet := &twitter.TweetObj{
		ID:        "9999",
		Text:      "just vibes",
		CreatedAt: "2026-08-30T12:10:00Z",
	}

	p := mapTweet(tweet, nil)
	assert.Nil(t, p.Location)
}
