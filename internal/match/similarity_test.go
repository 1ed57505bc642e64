package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "f2024031", normalize("F-2024-031"))
	assert.Equal(t, "acmeconsultingbv", normalize("ACME Consulting BV"))
	assert.Equal(t, "", normalize("+++ /// ---"))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("acme", "acme"))
	assert.Equal(t, 1, levenshtein("acme", "acm"))
	assert.Equal(t, 1, levenshtein("acme", "acne"))
	assert.Equal(t, 4, levenshtein("", "acme"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("acme", "acme"))
	assert.Equal(t, 0.0, similarity("", "acme"))
	assert.InDelta(t, 0.75, similarity("acme", "acne"), 0.001)
	assert.Greater(t, similarity("acmeconsulting", "acmeconsultingbv"), 0.85)
}
