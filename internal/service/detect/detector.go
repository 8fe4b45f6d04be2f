package detect

import (
	"time"

	"citywatch/internal/domain/event"
	"citywatch/internal/domain/post"
	"citywatch/internal/geo"
)

// Config contains thresholds for duplicate detection.
type Config struct {
	// TimeWindow is the maximum gap between two posts about the same occurrence.
	TimeWindow time.Duration

	// MaxDistanceMeters is the maximum separation when both posts are located.
	MaxDistanceMeters float64

	// SimilarityThreshold is the minimum Jaccard similarity of the post texts.
	SimilarityThreshold float64
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		TimeWindow:          time.Hour,
		MaxDistanceMeters:   500,
		SimilarityThreshold: 0.7,
	}
}

// Detector partitions batches of posts into duplicate groups.
type Detector struct {
	config Config
}

// NewDetector creates a duplicate detector with the given thresholds.
func NewDetector(config Config) *Detector {
	return &Detector{config: config}
}

// AreDuplicates reports whether two posts describe the same occurrence:
// within the time window, within the distance limit when both are located
// (a one-sided or missing location skips the distance check), and with text
// similarity at or above the threshold.
func (d *Detector) AreDuplicates(a, b post.Post) bool {
	gap := a.Timestamp.Sub(b.Timestamp)
	if gap < 0 {
		gap = -gap
	}
	if gap > d.config.TimeWindow {
		return false
	}

	if a.HasLocation() && b.HasLocation() {
		if geo.Distance(*a.Location, *b.Location) > d.config.MaxDistanceMeters {
			return false
		}
	}

	return TextSimilarity(a.Text, b.Text) >= d.config.SimilarityThreshold
}

// Detect partitions the batch into duplicate groups. Posts are scanned in
// input order; each unassigned post seeds a group and absorbs every later
// unassigned post that matches the seed. Absorption is checked against the
// seed only, not among absorbed members, so two mutually dissimilar posts can
// share a group through a common seed. Groups of size 1 are dropped.
//
// Deterministic for a fixed input order; a pure function of its input.
func (d *Detector) Detect(posts []post.Post) []event.DuplicateGroup {
	assigned := make([]bool, len(posts))

	var groups []event.DuplicateGroup

	for i, seed := range posts {
		if assigned[i] {
			continue
		}

		group := event.DuplicateGroup{seed.ID}
		assigned[i] = true

		for j := i + 1; j < len(posts); j++ {
			if assigned[j] {
				continue
			}
			if d.AreDuplicates(seed, posts[j]) {
				group = append(group, posts[j].ID)
				assigned[j] = true
			}
		}

		if len(group) >= 2 {
			groups = append(groups, group)
		}
	}

	return groups
}
