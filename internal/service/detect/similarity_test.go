package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextSimilarityIdentical(t *testing.T) {
	assert.Equal(t, 1.0, TextSimilarity("traffic jam on 101", "traffic jam on 101"))
}

func TestTextSimilarityBothEmpty(t *testing.T) {
	// 0/0 must be 0, never 1: blank posts are not duplicates of each other.
	assert.Equal(t, 0.0, TextSimilarity("", ""))
}

func TestTextSimilarityPunctuationOnly(t *testing.T) {
	assert.Equal(t, 0.0, TextSimilarity("!!!", "..."))
}

func TestTextSimilarityCaseAndPunctuationInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, TextSimilarity("Fire on Main St!", "fire on main st"))
}

func TestTextSimilarityCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, 1.0, TextSimilarity("power  outage   downtown", "power outage downtown"))
}

func TestTextSimilarityDisjoint(t *testing.T) {
	assert.Equal(t, 0.0, TextSimilarity("street fair downtown", "highway crash tonight"))
}

func TestTextSimilarityPartialOverlap(t *testing.T) {
	// Tokens: {huge, crash, on, the, bridge} vs {crash, on, bridge, tonight}.
	// Intersection 3, union 6.
	sim := TextSimilarity("huge crash on the bridge", "crash on bridge tonight")
	assert.InDelta(t, 0.5, sim, 1e-9)
}

func TestTextSimilarityRepeatedTokens(t *testing.T) {
	// Token sets ignore repetition.
	assert.Equal(t, 1.0, TextSimilarity("fire fire fire", "fire"))
}

func TestTextSimilarityOneEmpty(t *testing.T) {
	assert.Equal(t, 0.0, TextSimilarity("", "smoke visible from here"))
}
