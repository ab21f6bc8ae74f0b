package config

import "github.com/shota9616/planforge/internal/models"

// Default returns the built-in quality configuration. The catalogues mirror
// the reviewer checklists used for subsidy applications: filler phrases that
// say nothing about the applicant, and the stylistic tics of unedited
// machine-generated prose.
func Default() *Quality {
	q := &Quality{
		QualityThreshold: 0.85,
		MaxIterations:    3,
		Penalties: map[models.IssueCategory]float64{
			models.GenericPhrase:    0.05,
			models.Repetition:       0.08,
			models.StructuralDrift:  0.25,
			models.UnnaturalPattern: 0.05,
			models.LengthViolation:  0.10,
		},
		OpenerRunes:        5,
		SectionRepetition:  3,
		DocumentRepetition: 6,
		DuplicateSentences: 2,
		GenericPhrases: []GenericPhrase{
			{Phrase: "様々な課題", Replace: "{industry}に固有の課題"},
			{Phrase: "大きく貢献", Replace: "{tasks}の工数削減に直結"},
			{Phrase: "幅広いニーズ", Replace: "{tasks}に関する需要"},
			{Phrase: "最先端の技術", Replace: "{equipment}の自動化機構"},
			{Phrase: "抜本的な改革", Replace: "{tasks}の工程見直し"},
			{Phrase: "飛躍的に向上", Replace: "定量的に改善"},
			{Phrase: "豊富な実績"},
			{Phrase: "画期的な"},
		},
		UnnaturalPatterns: []UnnaturalPattern{
			{Pattern: "することができます", Description: "polite potential form, out of register for plan prose", Replace: "できる"},
			{Pattern: "することが可能です", Description: "polite potential form", Replace: "できる"},
			{Pattern: "と言えるでしょう", Description: "hedged conclusion", Replace: "と考えられる"},
			{Pattern: "ではないでしょうか", Description: "rhetorical question ending", Replace: "と考えている"},
			{Pattern: "第一に、", Description: "mechanical enumeration", Replace: "まず、"},
			{Pattern: "第二に、", Description: "mechanical enumeration", Replace: "次いで、"},
			{Pattern: "第三に、", Description: "mechanical enumeration", Replace: "さらに、"},
			{Pattern: "〇〇|●●|△△|※※", Description: "placeholder symbols left in the text"},
			{Pattern: `[0-9]+\.[0-9]{6,}`, Description: "unrounded decimal value"},
		},
		Openers: []string{"また、", "さらに、", "加えて、", "一方で、", "これにより、"},
	}
	// Defaults are code-controlled; compilation cannot fail here.
	if err := q.finalize(); err != nil {
		panic(err)
	}
	return q
}
