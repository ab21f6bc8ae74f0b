// Package quality scores section drafts against the defect catalogue. The
// detector is a pure function of the draft and its template: validating the
// same draft twice yields identical results, and nothing here mutates the
// draft or carries state between passes.
package quality

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shota9616/planforge/internal/config"
	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/template"
)

// Detector runs the full check suite against drafts.
type Detector struct {
	cfg *config.Quality
}

func New(cfg *config.Quality) *Detector {
	return &Detector{cfg: cfg}
}

// Validate scores one section draft against its template. Checks run in a
// fixed order so issue lists compare stably across passes.
func (d *Detector) Validate(draft *models.SectionDraft, tpl template.SectionTemplate) models.ValidationResult {
	var issues []models.Issue
	issues = append(issues, d.checkStructure(draft, tpl)...)
	for i, slot := range draft.Slots {
		if i < len(tpl.Slots) {
			issues = append(issues, d.checkLength(slot, tpl.Slots[i])...)
		}
		issues = append(issues, d.checkGenericPhrases(slot)...)
		issues = append(issues, d.checkUnnaturalPatterns(slot)...)
	}
	issues = append(issues, d.checkRepetition(sentencesOf(draft), d.cfg.SectionRepetition, models.SeverityWarn)...)
	return models.ValidationResult{Score: d.score(issues), Issues: issues}
}

// ValidateDocument runs the cross-section checks over a full set of accepted
// drafts: opener monotony and verbatim sentence reuse across sections. The
// issues are informational, they are reported with the run and never repaired.
func (d *Detector) ValidateDocument(drafts []*models.SectionDraft) models.ValidationResult {
	var sentences []string
	for _, draft := range drafts {
		sentences = append(sentences, sentencesOf(draft)...)
	}
	issues := d.checkRepetition(sentences, d.cfg.DocumentRepetition, models.SeverityInfo)
	return models.ValidationResult{Score: d.score(issues), Issues: issues}
}

func (d *Detector) checkStructure(draft *models.SectionDraft, tpl template.SectionTemplate) []models.Issue {
	var issues []models.Issue
	if len(draft.Slots) != len(tpl.Slots) {
		issues = append(issues, models.Issue{
			Category: models.StructuralDrift, Severity: models.SeverityError, Offset: -1,
			Description: fmt.Sprintf("expected %d slots, draft has %d", len(tpl.Slots), len(draft.Slots)),
		})
		return issues
	}
	for i, want := range tpl.Slots {
		got := draft.Slots[i]
		if got.Name != want.Name {
			issues = append(issues, models.Issue{
				Category: models.StructuralDrift, Severity: models.SeverityError,
				Slot: want.Name, Offset: -1,
				Description: fmt.Sprintf("slot %d is %q, template expects %q", i, got.Name, want.Name),
			})
			continue
		}
		if strings.TrimSpace(got.Text) == "" {
			issues = append(issues, models.Issue{
				Category: models.StructuralDrift, Severity: models.SeverityError,
				Slot: want.Name, Offset: -1,
				Description: fmt.Sprintf("slot %q is empty", want.Name),
			})
		}
	}
	return issues
}

func (d *Detector) checkLength(slot models.SlotText, want template.Slot) []models.Issue {
	if strings.TrimSpace(slot.Text) == "" {
		return nil // already reported as drift
	}
	n := utf8.RuneCountInString(slot.Text)
	switch {
	case n < want.MinRunes:
		return []models.Issue{{
			Category: models.LengthViolation, Severity: models.SeverityWarn,
			Slot: slot.Name, Offset: -1,
			Description: fmt.Sprintf("slot %q has %d runes, minimum is %d", slot.Name, n, want.MinRunes),
		}}
	case n > want.MaxRunes:
		return []models.Issue{{
			Category: models.LengthViolation, Severity: models.SeverityWarn,
			Slot: slot.Name, Offset: -1,
			Description: fmt.Sprintf("slot %q has %d runes, maximum is %d", slot.Name, n, want.MaxRunes),
		}}
	}
	return nil
}

func (d *Detector) checkGenericPhrases(slot models.SlotText) []models.Issue {
	var issues []models.Issue
	for _, entry := range d.cfg.GenericPhrases {
		rest := slot.Text
		base := 0
		for {
			idx := strings.Index(rest, entry.Phrase)
			if idx < 0 {
				break
			}
			issues = append(issues, models.Issue{
				Category: models.GenericPhrase, Severity: models.SeverityWarn,
				Slot:   slot.Name,
				Offset: utf8.RuneCountInString(slot.Text[:base+idx]),
				Description: fmt.Sprintf("generic phrase %q carries no fact", entry.Phrase),
			})
			advance := idx + len(entry.Phrase)
			base += advance
			rest = rest[advance:]
		}
	}
	return issues
}

func (d *Detector) checkUnnaturalPatterns(slot models.SlotText) []models.Issue {
	var issues []models.Issue
	for i := range d.cfg.UnnaturalPatterns {
		entry := &d.cfg.UnnaturalPatterns[i]
		for _, loc := range entry.Regexp().FindAllStringIndex(slot.Text, -1) {
			issues = append(issues, models.Issue{
				Category: models.UnnaturalPattern, Severity: models.SeverityWarn,
				Slot:        slot.Name,
				Offset:      utf8.RuneCountInString(slot.Text[:loc[0]]),
				Description: entry.Description,
			})
		}
	}
	return issues
}

// checkRepetition flags sentence openers recurring openerLimit or more times
// and full sentences recurring cfg.DuplicateSentences or more times, over the
// given sentence sequence. Issues carry no slot: repetition is a property of
// the running text, not of any one slot.
func (d *Detector) checkRepetition(sentences []string, openerLimit int, severity models.Severity) []models.Issue {
	openerCount := make(map[string]int)
	sentenceCount := make(map[string]int)
	for _, s := range sentences {
		openerCount[openerOf(s, d.cfg.OpenerRunes)]++
		sentenceCount[s]++
	}

	var issues []models.Issue
	reported := make(map[string]bool)
	for _, s := range sentences {
		op := openerOf(s, d.cfg.OpenerRunes)
		if n := openerCount[op]; n >= openerLimit && !reported["o:"+op] {
			reported["o:"+op] = true
			issues = append(issues, models.Issue{
				Category: models.Repetition, Severity: severity, Offset: -1,
				Description: fmt.Sprintf("%d sentences open with %q", n, op),
			})
		}
		if n := sentenceCount[s]; n >= d.cfg.DuplicateSentences && !reported["s:"+s] {
			reported["s:"+s] = true
			issues = append(issues, models.Issue{
				Category: models.Repetition, Severity: severity, Offset: -1,
				Description: fmt.Sprintf("sentence repeated %d times: %q", n, clip(s, 20)),
			})
		}
	}
	return issues
}

func (d *Detector) score(issues []models.Issue) float64 {
	score := 1.0
	for _, is := range issues {
		score -= d.cfg.Penalty(is.Category)
	}
	if score < 0 {
		return 0
	}
	return score
}

func sentencesOf(draft *models.SectionDraft) []string {
	var out []string
	for _, slot := range draft.Slots {
		for _, s := range strings.Split(slot.Text, "。") {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func openerOf(sentence string, runes int) string {
	r := []rune(sentence)
	if len(r) <= runes {
		return sentence
	}
	return string(r[:runes])
}

func clip(s string, runes int) string {
	r := []rune(s)
	if len(r) <= runes {
		return s
	}
	return string(r[:runes]) + "…"
}
