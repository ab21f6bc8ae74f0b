package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shota9616/planforge/internal/models"
)

func TestDefaultIsValid(t *testing.T) {
	q := Default()

	assert.Equal(t, 0.85, q.QualityThreshold)
	assert.Equal(t, 3, q.MaxIterations)
	assert.Equal(t, 2, q.DuplicateSentences)
	assert.NotEmpty(t, q.GenericPhrases)
	assert.NotEmpty(t, q.Openers)
	for i := range q.UnnaturalPatterns {
		assert.NotNil(t, q.UnnaturalPatterns[i].Regexp(), "pattern %q must be compiled", q.UnnaturalPatterns[i].Pattern)
	}
	for _, cat := range []models.IssueCategory{
		models.GenericPhrase, models.Repetition, models.StructuralDrift,
		models.UnnaturalPattern, models.LengthViolation,
	} {
		assert.Greater(t, q.Penalty(cat), 0.0, "category %s needs a weight", cat)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	q, err := Parse([]byte(`
quality_threshold: 0.9
max_iterations: 5
penalties:
  structural_drift: 0.5
`))
	require.NoError(t, err)

	assert.Equal(t, 0.9, q.QualityThreshold)
	assert.Equal(t, 5, q.MaxIterations)
	assert.Equal(t, 0.5, q.Penalty(models.StructuralDrift))
	// Untouched settings keep their defaults.
	assert.Equal(t, 0.05, q.Penalty(models.GenericPhrase))
	assert.NotEmpty(t, q.GenericPhrases)
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"threshold above one":  "quality_threshold: 1.5",
		"zero iterations":      "max_iterations: 0",
		"negative penalty":     "penalties: {repetition: -0.1}",
		"short opener prefix":  "opener_runes: 1",
		"bad repetition limit": "section_repetition: 1",
		"bad duplicate limit":  "duplicate_sentences: 1",
		"unparseable regex":    "unnatural_patterns: [{pattern: '[', description: broken}]",
		"not yaml at all":      ": : :",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestPenaltyUnknownCategoryIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Default().Penalty("no_such_category"))
}
