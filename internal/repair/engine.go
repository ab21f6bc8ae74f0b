// Package repair applies targeted fixes for the defect categories the quality
// detector emits. Every strategy is anchored to the fact snapshot: repairs may
// rephrase, replace, trim, or expand, but a quoted number never changes. Slots
// without issues pass through byte-identical.
package repair

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shota9616/planforge/internal/backend"
	"github.com/shota9616/planforge/internal/config"
	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/synthesis"
	"github.com/shota9616/planforge/internal/template"
)

// Engine turns a validated draft plus its issue list into a repaired draft.
type Engine struct {
	cfg *config.Quality
	// gen is optional. Without it, issues whose only strategy is a model
	// rewrite are left in place and the convergence loop exhausts on them.
	gen backend.Generator
}

func New(cfg *config.Quality, gen backend.Generator) *Engine {
	return &Engine{cfg: cfg, gen: gen}
}

// Repair returns a new draft with every applicable strategy applied. The
// input draft is never mutated. Issues with no strategy are skipped; the
// detector will find them again on the next pass.
func (e *Engine) Repair(ctx context.Context, draft *models.SectionDraft, issues []models.Issue, tpl template.SectionTemplate) (*models.SectionDraft, error) {
	next := draft.Clone()

	flagged := make(map[models.IssueCategory][]models.Issue)
	for _, is := range issues {
		flagged[is.Category] = append(flagged[is.Category], is)
	}

	if drift := flagged[models.StructuralDrift]; len(drift) > 0 {
		if err := e.fixStructure(next, drift, tpl); err != nil {
			return nil, err
		}
	}
	e.fixGenericPhrases(next, flagged[models.GenericPhrase])
	if err := e.fixUnnaturalPatterns(ctx, next, flagged[models.UnnaturalPattern]); err != nil {
		return nil, err
	}
	e.fixLengths(next, flagged[models.LengthViolation], tpl)
	if len(flagged[models.Repetition]) > 0 {
		e.fixRepetition(next)
	}

	return next, nil
}

// fixStructure regenerates drifted slots from the fact snapshot. A slot-count
// mismatch cannot be patched slot by slot, so the whole section is rebuilt.
func (e *Engine) fixStructure(draft *models.SectionDraft, issues []models.Issue, tpl template.SectionTemplate) error {
	for _, is := range issues {
		if is.Slot == "" {
			fresh, err := synthesis.Synthesize(draft.Facts, tpl)
			if err != nil {
				return fmt.Errorf("rebuild section %s: %w", tpl.ID, err)
			}
			draft.Slots = fresh.Slots
			return nil
		}
	}
	for _, is := range issues {
		text, err := synthesis.SynthesizeSlot(draft.Facts, tpl, is.Slot)
		if err != nil {
			return fmt.Errorf("regenerate slot %s/%s: %w", tpl.ID, is.Slot, err)
		}
		if _, i, ok := tpl.Slot(is.Slot); ok {
			draft.Slots[i] = models.SlotText{Name: is.Slot, Text: text}
		}
	}
	return nil
}

// fixGenericPhrases substitutes catalogue phrases with their fact-grounded
// replacements. Entries without a replacement have no strategy.
func (e *Engine) fixGenericPhrases(draft *models.SectionDraft, issues []models.Issue) {
	slots := flaggedSlots(issues)
	for i := range draft.Slots {
		if !slots[draft.Slots[i].Name] {
			continue
		}
		text := draft.Slots[i].Text
		for _, entry := range e.cfg.GenericPhrases {
			if entry.Replace == "" {
				continue
			}
			text = strings.ReplaceAll(text, entry.Phrase, e.expand(entry.Replace, draft.Facts))
		}
		draft.Slots[i].Text = text
	}
}

// flaggedSlots collects the slot names carried by a category's issues.
func flaggedSlots(issues []models.Issue) map[string]bool {
	slots := make(map[string]bool, len(issues))
	for _, is := range issues {
		slots[is.Slot] = true
	}
	return slots
}

// expand fills the {industry}, {equipment} and {tasks} placeholders of a
// replacement template from the fact snapshot.
func (e *Engine) expand(replacement string, facts *models.FactModel) string {
	r := strings.NewReplacer(
		"{industry}", facts.Company.Industry,
		"{equipment}", facts.Equipment.Name,
		"{tasks}", facts.Shortage.ShortageTasks,
	)
	return r.Replace(replacement)
}

func (e *Engine) fixUnnaturalPatterns(ctx context.Context, draft *models.SectionDraft, issues []models.Issue) error {
	slots := flaggedSlots(issues)
	for i := range draft.Slots {
		if !slots[draft.Slots[i].Name] {
			continue
		}
		text := draft.Slots[i].Text
		needsRewrite := false
		for j := range e.cfg.UnnaturalPatterns {
			entry := &e.cfg.UnnaturalPatterns[j]
			if !entry.Regexp().MatchString(text) {
				continue
			}
			if entry.Replace == "" {
				needsRewrite = true
				continue
			}
			text = entry.Regexp().ReplaceAllString(text, entry.Replace)
		}
		if needsRewrite && e.gen != nil {
			rewritten, err := e.rewrite(ctx, text)
			if err != nil {
				return err
			}
			if rewritten != "" {
				text = rewritten
			}
		}
		draft.Slots[i].Text = text
	}
	return nil
}

// rewrite asks the backend to fix residual stylistic problems. The completion
// is only accepted when every number of the original survives; a completion
// that drops or alters a figure is discarded and the original kept.
func (e *Engine) rewrite(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("次の文章から残存する仮置き記号や不自然な数値表記を取り除き、同じ内容を自然な文で書き直してください。数値と固有名詞は一字も変えないでください。\n\n%s", text)
	rewritten, err := e.gen.Complete(ctx, backend.Request{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("backend rewrite: %w", err)
	}
	if !preservesNumbers(text, rewritten) {
		return "", nil
	}
	return rewritten, nil
}

var numberPattern = regexp.MustCompile(`[0-9][0-9,.]*[0-9]|[0-9]`)

// preservesNumbers reports whether the candidate carries exactly the numeric
// tokens of the original, no more and no fewer. A rewrite that drops, alters
// or introduces a figure fails the check; substring matches (45 inside 145)
// do not count as preservation.
func preservesNumbers(original, candidate string) bool {
	want := numberTokens(original)
	got := numberTokens(candidate)
	if len(want) != len(got) {
		return false
	}
	for tok, n := range want {
		if got[tok] != n {
			return false
		}
	}
	return true
}

func numberTokens(text string) map[string]int {
	tokens := make(map[string]int)
	for _, tok := range numberPattern.FindAllString(text, -1) {
		tokens[tok]++
	}
	return tokens
}

func (e *Engine) fixLengths(draft *models.SectionDraft, issues []models.Issue, tpl template.SectionTemplate) {
	for _, is := range issues {
		want, i, ok := tpl.Slot(is.Slot)
		if !ok {
			continue
		}
		text := draft.Slots[i].Text
		n := utf8.RuneCountInString(text)
		switch {
		case n < want.MinRunes:
			draft.Slots[i].Text = synthesis.ExpandSlot(draft.Facts, want, text)
		case n > want.MaxRunes:
			draft.Slots[i].Text = trimSentences(text, want)
		}
	}
}

// trimSentences drops whole sentences from the end until the text fits,
// then keeps trimming toward the slot midpoint as long as the remainder
// stays at or above it. At least one sentence always survives.
func trimSentences(text string, want template.Slot) string {
	sentences := splitSentences(text)
	for len(sentences) > 1 && utf8.RuneCountInString(strings.Join(sentences, "")) > want.MaxRunes {
		sentences = sentences[:len(sentences)-1]
	}
	for len(sentences) > 1 {
		rest := strings.Join(sentences[:len(sentences)-1], "")
		if utf8.RuneCountInString(rest) < want.Midpoint() {
			break
		}
		sentences = sentences[:len(sentences)-1]
	}
	return strings.Join(sentences, "")
}

// fixRepetition varies monotonous sentence openers by prefixing connectives
// from the configured rotation. The first occurrence of an opener keeps its
// original form; later ones get a connective, which shifts their opener.
func (e *Engine) fixRepetition(draft *models.SectionDraft) {
	counts := make(map[string]int)
	for _, slot := range draft.Slots {
		for _, s := range splitSentences(slot.Text) {
			counts[e.openerOf(s)]++
		}
	}

	seen := make(map[string]int)
	rotation := 0
	for i := range draft.Slots {
		sentences := splitSentences(draft.Slots[i].Text)
		for j, s := range sentences {
			op := e.openerOf(s)
			seen[op]++
			if counts[op] >= e.cfg.SectionRepetition && seen[op] > 1 {
				body := s
				for _, known := range e.cfg.Openers {
					if strings.HasPrefix(body, known) {
						body = strings.TrimPrefix(body, known)
						break
					}
				}
				connective := e.cfg.Openers[rotation%len(e.cfg.Openers)]
				rotation++
				sentences[j] = connective + body
			}
		}
		draft.Slots[i].Text = strings.Join(sentences, "")
	}
}

func (e *Engine) openerOf(sentence string) string {
	r := []rune(sentence)
	if len(r) <= e.cfg.OpenerRunes {
		return sentence
	}
	return string(r[:e.cfg.OpenerRunes])
}

// splitSentences cuts on the full stop, keeping the stop with its sentence.
func splitSentences(text string) []string {
	var out []string
	rest := text
	for {
		idx := strings.Index(rest, "。")
		if idx < 0 {
			if strings.TrimSpace(rest) != "" {
				out = append(out, rest)
			}
			return out
		}
		out = append(out, rest[:idx+len("。")])
		rest = rest[idx+len("。"):]
	}
}
