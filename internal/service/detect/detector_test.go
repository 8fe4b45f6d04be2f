package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citywatch/internal/domain/post"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func locatedPost(id, text string, at time.Time, lat, lon float64) post.Post {
	return post.Post{
		ID:        id,
		Text:      text,
		Timestamp: at,
		Location:  &post.GeoPoint{Latitude: lat, Longitude: lon},
		Source:    "twitter",
	}
}

func unlocatedPost(id, text string, at time.Time) post.Post {
	return post.Post{ID: id, Text: text, Timestamp: at, Source: "citizen_report"}
}

func TestAreDuplicatesIdenticalNearby(t *testing.T) {
	d := NewDetector(DefaultConfig())

	a := locatedPost("a", "Traffic jam on 101 south", t0, 37.7749, -122.4194)
	b := locatedPost("b", "Traffic jam on 101 south", t0.Add(10*time.Minute), 37.7751, -122.4196)

	assert.True(t, d.AreDuplicates(a, b))
}

func TestAreDuplicatesOutsideTimeWindow(t *testing.T) {
	d := NewDetector(DefaultConfig())

	a := locatedPost("a", "Traffic jam on 101 south", t0, 37.7749, -122.4194)
	b := locatedPost("b", "Traffic jam on 101 south", t0.Add(61*time.Minute), 37.7749, -122.4194)

	// Time gap alone disqualifies, regardless of text and location.
	assert.False(t, d.AreDuplicates(a, b))
	assert.False(t, d.AreDuplicates(b, a))
}

func TestAreDuplicatesTooFarApart(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// Same text, ~5 km apart.
	a := locatedPost("a", "Power outage in the neighborhood", t0, 37.7749, -122.4194)
	b := locatedPost("b", "Power outage in the neighborhood", t0.Add(time.Minute), 37.8199, -122.4194)

	assert.False(t, d.AreDuplicates(a, b))
}

func TestAreDuplicatesOneSidedLocationSkipsDistanceCheck(t *testing.T) {
	d := NewDetector(DefaultConfig())

	a := locatedPost("a", "Loud explosion heard downtown", t0, 37.7749, -122.4194)
	b := unlocatedPost("b", "Loud explosion heard downtown", t0.Add(5*time.Minute))

	assert.True(t, d.AreDuplicates(a, b))
}

func TestAreDuplicatesBothUnlocated(t *testing.T) {
	d := NewDetector(DefaultConfig())

	a := unlocatedPost("a", "Water main break on Market", t0)
	b := unlocatedPost("b", "Water main break on Market", t0.Add(30*time.Minute))

	assert.True(t, d.AreDuplicates(a, b))
}

func TestAreDuplicatesLowSimilarity(t *testing.T) {
	d := NewDetector(DefaultConfig())

	a := locatedPost("a", "Traffic jam on 101 south", t0, 37.7749, -122.4194)
	b := locatedPost("b", "Street fair is great today", t0.Add(time.Minute), 37.7749, -122.4194)

	assert.False(t, d.AreDuplicates(a, b))
}

func TestDetectScenarioTrafficJam(t *testing.T) {
	d := NewDetector(DefaultConfig())

	posts := []post.Post{
		locatedPost("A", "Traffic jam on 101 south", t0, 37.7749, -122.4194),
		locatedPost("B", "Traffic jam on 101 south now", t0.Add(10*time.Minute), 37.7751, -122.4196),
		locatedPost("C", "Unrelated street fair downtown", t0.Add(5*time.Minute), 37.76, -122.45),
	}

	groups := d.Detect(posts)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"A", "B"}, []string(groups[0]))
}

func TestDetectEmptyInput(t *testing.T) {
	d := NewDetector(DefaultConfig())
	assert.Empty(t, d.Detect(nil))
}

func TestDetectSingletonsDiscarded(t *testing.T) {
	d := NewDetector(DefaultConfig())

	posts := []post.Post{
		unlocatedPost("a", "Flooding on 3rd street", t0),
		unlocatedPost("b", "Concert tonight at the park", t0),
	}

	assert.Empty(t, d.Detect(posts))
}

func TestDetectEachPostInAtMostOneGroup(t *testing.T) {
	d := NewDetector(DefaultConfig())

	posts := []post.Post{
		unlocatedPost("a", "Fire on Main Street spreading", t0),
		unlocatedPost("b", "Fire on Main Street spreading", t0.Add(time.Minute)),
		unlocatedPost("c", "Fire on Main Street spreading", t0.Add(2*time.Minute)),
		unlocatedPost("d", "Smoke from Main Street fire visible", t0.Add(3*time.Minute)),
	}

	groups := d.Detect(posts)

	seen := make(map[string]int)
	for _, g := range groups {
		for _, id := range g {
			seen[id]++
		}
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "post %s appears in more than one group", id)
	}
}

func TestDetectAbsorbsAgainstSeedOnly(t *testing.T) {
	d := NewDetector(Config{
		TimeWindow:          time.Hour,
		MaxDistanceMeters:   500,
		SimilarityThreshold: 0.5,
	})

	// b and c each clear the threshold against seed a but not against each
	// other. Single-link absorption still puts all three in one group.
	a := unlocatedPost("a", "fire smoke main street downtown", t0)
	b := unlocatedPost("b", "fire smoke main street", t0.Add(time.Minute))
	c := unlocatedPost("c", "smoke downtown street evacuation", t0.Add(2*time.Minute))

	assert.True(t, d.AreDuplicates(a, b))
	assert.True(t, d.AreDuplicates(a, c))
	assert.False(t, d.AreDuplicates(b, c))

	groups := d.Detect([]post.Post{a, b, c})
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"a", "b", "c"}, []string(groups[0]))
}

func TestDetectDeterministicForFixedOrder(t *testing.T) {
	d := NewDetector(DefaultConfig())

	posts := []post.Post{
		unlocatedPost("a", "Crash on the bay bridge", t0),
		unlocatedPost("b", "Crash on the bay bridge", t0.Add(time.Minute)),
		unlocatedPost("c", "Crash on the bay bridge", t0.Add(2*time.Minute)),
	}

	first := d.Detect(posts)
	second := d.Detect(posts)
	assert.Equal(t, first, second)
}
