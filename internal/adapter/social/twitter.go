package social

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
	twitter "github.com/g8rswimmer/go-twitter/v2"

	"citywatch/internal/domain/post"
)

const twitterSourceName = "twitter"

// bearerAuthorizer adds app-only bearer authentication to API requests.
type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.token)
}

// noopAuthorizer is used when the underlying HTTP client already signs
// requests, as with an OAuth1 user-context transport.
type noopAuthorizer struct{}

func (noopAuthorizer) Add(*http.Request) {}

// TwitterConfig contains configuration for the Twitter source.
type TwitterConfig struct {
	BearerToken string
	Query       string
	MaxResults  int
}

// TwitterSource fetches recent tweets matching a search query and maps
// them into posts.
type TwitterSource struct {
	client *twitter.Client
	query  string
	max    int
}

// NewTwitterSource creates a Twitter source using app-only bearer auth.
func NewTwitterSource(cfg TwitterConfig) *TwitterSource {
	max := cfg.MaxResults
	if max <= 0 {
		max = 100
	}

	return &TwitterSource{
		client: &twitter.Client{
			Authorizer: bearerAuthorizer{token: cfg.BearerToken},
			Client:     &http.Client{Timeout: 10 * time.Second},
			Host:       "https://api.twitter.com",
		},
		query: cfg.Query,
		max:   max,
	}
}

// NewTwitterSourceWithClient creates a Twitter source over a pre-authorized
// HTTP client, such as an OAuth1 user-context transport.
func NewTwitterSourceWithClient(httpClient *http.Client, query string, maxResults int) *TwitterSource {
	if maxResults <= 0 {
		maxResults = 100
	}

	return &TwitterSource{
		client: &twitter.Client{
			Authorizer: noopAuthorizer{},
			Client:     httpClient,
			Host:       "https://api.twitter.com",
		},
		query: query,
		max:   maxResults,
	}
}

// TwitterUserConfig contains OAuth1 user-context credentials.
type TwitterUserConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
	Query          string
	MaxResults     int
}

// NewTwitterUserSource creates a Twitter source authenticated with OAuth1
// user-context credentials instead of an app-only bearer token.
func NewTwitterUserSource(cfg TwitterUserConfig) *TwitterSource {
	config := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)

	httpClient := config.Client(oauth1.NoContext, token)
	httpClient.Timeout = 10 * time.Second

	return NewTwitterSourceWithClient(httpClient, cfg.Query, cfg.MaxResults)
}

// Name returns the source tag applied to fetched posts.
func (s *TwitterSource) Name() string {
	return twitterSourceName
}

// FetchRecent returns tweets created at or after the given time.
func (s *TwitterSource) FetchRecent(ctx context.Context, since time.Time) ([]post.Post, error) {
	opts := twitter.TweetRecentSearchOpts{
		StartTime:  since.UTC(),
		MaxResults: s.max,
		Expansions: []twitter.Expansion{twitter.ExpansionGeoPlaceID},
		TweetFields: []twitter.TweetField{
			twitter.TweetFieldCreatedAt,
			twitter.TweetFieldGeo,
			twitter.TweetFieldPublicMetrics,
		},
		PlaceFields: []twitter.PlaceField{twitter.PlaceFieldGeo},
	}

	resp, err := s.client.TweetRecentSearch(ctx, s.query, opts)
	if err != nil {
		return nil, fmt.Errorf("error searching recent tweets: %w", err)
	}

	places := make(map[string]*twitter.PlaceObj)
	if resp.Raw != nil && resp.Raw.Includes != nil {
		for _, p := range resp.Raw.Includes.Places {
			places[p.ID] = p
		}
	}

	var posts []post.Post
	if resp.Raw != nil {
		for _, tweet := range resp.Raw.Tweets {
			posts = append(posts, mapTweet(tweet, places))
		}
	}

	return posts, nil
}

func mapTweet(tweet *twitter.TweetObj, places map[string]*twitter.PlaceObj) post.Post {
	p := post.Post{
		ID:     twitterSourceName + "-" + tweet.ID,
		Text:   tweet.Text,
		Source: twitterSourceName,
	}

	if ts, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
		p.Timestamp = ts
	}

	if tweet.PublicMetrics != nil {
		p.Engagement = post.Engagement{
			Likes:    tweet.PublicMetrics.Likes,
			Shares:   tweet.PublicMetrics.Retweets,
			Comments: tweet.PublicMetrics.Replies,
		}
	}

	p.Location = tweetLocation(tweet, places)

	return p
}

// tweetLocation prefers exact point coordinates and falls back to the
// centroid of the tagged place's bounding box.
func tweetLocation(tweet *twitter.TweetObj, places map[string]*twitter.PlaceObj) *post.GeoPoint {
	if tweet.Geo == nil {
		return nil
	}

	if len(tweet.Geo.Coordinates.Coordinates) == 2 {
		// GeoJSON order is longitude first.
		return &post.GeoPoint{
			Latitude:  tweet.Geo.Coordinates.Coordinates[1],
			Longitude: tweet.Geo.Coordinates.Coordinates[0],
		}
	}

	place, ok := places[tweet.Geo.PlaceID]
	if !ok || place.Geo == nil || len(place.Geo.BBox) != 4 {
		return nil
	}

	bbox := place.Geo.BBox
	return &post.GeoPoint{
		Latitude:  (bbox[1] + bbox[3]) / 2,
		Longitude: (bbox[0] + bbox[2]) / 2,
	}
}
