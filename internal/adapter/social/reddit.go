package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"citywatch/internal/domain/post"
)

const redditSourceName = "reddit"

// RedditConfig contains configuration for the Reddit source.
type RedditConfig struct {
	BaseURL   string
	Subreddit string
	Limit     int
	UserAgent string
}

// RedditSource fetches recent posts from a city subreddit and maps them
// into posts. Reddit posts carry no coordinates, so location is always nil.
type RedditSource struct {
	httpClient *http.Client
	baseURL    string
	subreddit  string
	limit      int
	userAgent  string
}

// NewRedditSource creates a new Reddit source.
func NewRedditSource(cfg RedditConfig) *RedditSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.reddit.com"
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = 100
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "citywatch/1.0"
	}

	return &RedditSource{
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		baseURL:   baseURL,
		subreddit: cfg.Subreddit,
		limit:     limit,
		userAgent: userAgent,
	}
}

type redditPost struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Created     float64 `json:"created_utc"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Name returns the source tag applied to fetched posts.
func (s *RedditSource) Name() string {
	return redditSourceName
}

// FetchRecent returns subreddit posts created at or after the given time.
func (s *RedditSource) FetchRecent(ctx context.Context, since time.Time) ([]post.Post, error) {
	url := fmt.Sprintf("%s/r/%s/new.json?limit=%d", s.baseURL, s.subreddit, s.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	// Reddit rate limits clients without a distinct User-Agent.
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error connecting to Reddit API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Reddit API returned status code %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("error decoding Reddit API response: %w", err)
	}

	var posts []post.Post
	for _, child := range listing.Data.Children {
		p := mapRedditPost(child.Data)
		if p.Timestamp.Before(since) {
			continue
		}
		posts = append(posts, p)
	}

	return posts, nil
}

func mapRedditPost(r redditPost) post.Post {
	text := r.Title
	if r.SelfText != "" {
		text = r.Title + "\n" + r.SelfText
	}

	return post.Post{
		ID:        redditSourceName + "-" + strings.TrimPrefix(r.Name, "t3_"),
		Text:      text,
		Timestamp: time.Unix(int64(r.Created), 0).UTC(),
		Source:    redditSourceName,
		Engagement: post.Engagement{
			Likes:    r.Score,
			Comments: r.NumComments,
		},
	}
}
