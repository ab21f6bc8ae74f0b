// Package config holds the quality configuration: penalty weights, phrase
// catalogues, and loop budgets. Catalogues and weights are data, not code, so
// they can evolve without touching the detector or repair control flow. A
// config is loaded once per run and treated as immutable for its duration.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/shota9616/planforge/internal/models"
)

// GenericPhrase is one catalogued filler phrase. Replace, when set, is the
// fact-grounded substitution template used by the repair engine; placeholders
// {industry}, {equipment} and {tasks} are expanded from the fact snapshot.
// An entry without Replace can be detected but not repaired.
type GenericPhrase struct {
	Phrase  string `yaml:"phrase"`
	Replace string `yaml:"replace,omitempty"`
}

// UnnaturalPattern is one stylistic marker of unedited machine prose. The
// pattern is a regular expression; Replace is the literal rewrite applied by
// the repair engine (may be empty to delete the marker).
type UnnaturalPattern struct {
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
	Replace     string `yaml:"replace,omitempty"`

	re *regexp.Regexp
}

// Regexp returns the compiled pattern. Compiled during Parse/Default.
func (p *UnnaturalPattern) Regexp() *regexp.Regexp { return p.re }

// Quality is the full quality configuration for one generation run.
type Quality struct {
	// QualityThreshold is the minimum score for a section to be accepted.
	QualityThreshold float64 `yaml:"quality_threshold"`
	// MaxIterations bounds the repair cycles per section.
	MaxIterations int `yaml:"max_iterations"`

	// Penalties subtracted from 1.0 per issue, by category.
	Penalties map[models.IssueCategory]float64 `yaml:"penalties"`

	// OpenerRunes is the sentence-opening prefix length compared by the
	// repetition check; SectionRepetition and DocumentRepetition are the
	// occurrence counts at which an opener is flagged within one section and
	// across the whole document respectively.
	OpenerRunes        int `yaml:"opener_runes"`
	SectionRepetition  int `yaml:"section_repetition"`
	DocumentRepetition int `yaml:"document_repetition"`
	// DuplicateSentences is the occurrence count at which a verbatim
	// repeated sentence is flagged.
	DuplicateSentences int `yaml:"duplicate_sentences"`

	GenericPhrases    []GenericPhrase    `yaml:"generic_phrases"`
	UnnaturalPatterns []UnnaturalPattern `yaml:"unnatural_patterns"`

	// Openers are the connectives the repair engine cycles through when
	// breaking up repeated sentence openings.
	Openers []string `yaml:"openers"`
}

// Parse unmarshals a YAML document over the defaults, compiles the pattern
// catalogue and validates the result.
func Parse(data []byte) (*Quality, error) {
	q := Default()
	if err := yaml.Unmarshal(data, q); err != nil {
		return nil, fmt.Errorf("failed to parse quality config: %w", err)
	}
	if err := q.finalize(); err != nil {
		return nil, err
	}
	return q, nil
}

// LoadFile reads a YAML quality config from disk.
func LoadFile(path string) (*Quality, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quality config %s: %w", path, err)
	}
	return Parse(data)
}

func (q *Quality) finalize() error {
	if q.QualityThreshold <= 0 || q.QualityThreshold > 1 {
		return fmt.Errorf("quality_threshold must be in (0,1], got %v", q.QualityThreshold)
	}
	if q.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", q.MaxIterations)
	}
	if q.OpenerRunes < 2 {
		return fmt.Errorf("opener_runes must be at least 2, got %d", q.OpenerRunes)
	}
	if q.SectionRepetition < 2 || q.DocumentRepetition < 2 {
		return fmt.Errorf("repetition thresholds must be at least 2")
	}
	if q.DuplicateSentences < 2 {
		return fmt.Errorf("duplicate_sentences must be at least 2, got %d", q.DuplicateSentences)
	}
	for cat, w := range q.Penalties {
		if w < 0 || w > 1 {
			return fmt.Errorf("penalty for %s must be in [0,1], got %v", cat, w)
		}
	}
	for i := range q.UnnaturalPatterns {
		re, err := regexp.Compile(q.UnnaturalPatterns[i].Pattern)
		if err != nil {
			return fmt.Errorf("invalid unnatural pattern %q: %w", q.UnnaturalPatterns[i].Pattern, err)
		}
		q.UnnaturalPatterns[i].re = re
	}
	return nil
}

// Penalty returns the configured weight for a category, zero if unset.
func (q *Quality) Penalty(cat models.IssueCategory) float64 {
	return q.Penalties[cat]
}
