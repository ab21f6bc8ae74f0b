// Package synthesis turns a fact snapshot into section drafts. Slot content
// is derived deterministically from FactModel fields plus the rhetorical role
// of the slot; no randomness and no mutation of the snapshot.
package synthesis

import (
	"errors"
	"fmt"

	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/template"
)

// Synthesize produces a new draft filling every slot of the template in
// declared order. It fails with a *models.MissingFactError if the snapshot
// lacks a fact the template references, and with a
// *models.TemplateMismatchError if the template references a field outside
// the FactModel schema. Neither failure is retried by callers.
func Synthesize(fact *models.FactModel, tpl template.SectionTemplate) (*models.SectionDraft, error) {
	draft := &models.SectionDraft{
		SectionID: tpl.ID,
		Slots:     make([]models.SlotText, len(tpl.Slots)),
		State:     models.StateDraft,
		Facts:     fact,
	}
	for i, slot := range tpl.Slots {
		text, err := buildSlot(fact, tpl, slot)
		if err != nil {
			return nil, err
		}
		draft.Slots[i] = models.SlotText{Name: slot.Name, Text: text}
	}
	return draft, nil
}

// SynthesizeSlot regenerates a single slot. The repair engine uses it to fix
// structural drift without touching the neighbouring slots.
func SynthesizeSlot(fact *models.FactModel, tpl template.SectionTemplate, slotName string) (string, error) {
	slot, _, ok := tpl.Slot(slotName)
	if !ok {
		return "", fmt.Errorf("template %s has no slot %q", tpl.ID, slotName)
	}
	return buildSlot(fact, tpl, slot)
}

// ExpandSlot appends a role-appropriate supplementary sentence, used by the
// repair engine when a slot falls short of its length band.
func ExpandSlot(fact *models.FactModel, slot template.Slot, current string) string {
	return current + supplement(fact, slot.Role)
}

func buildSlot(fact *models.FactModel, tpl template.SectionTemplate, slot template.Slot) (string, error) {
	vals, err := resolveFacts(fact, tpl.ID, slot.Facts)
	if err != nil {
		return "", err
	}
	build, ok := builders[tpl.ID+"/"+slot.Name]
	if !ok {
		return "", fmt.Errorf("no builder for section %s slot %s", tpl.ID, slot.Name)
	}
	return build(fact, vals), nil
}

func resolveFacts(fact *models.FactModel, sectionID string, fields []string) (map[string]string, error) {
	vals := make(map[string]string, len(fields))
	for _, field := range fields {
		v, err := fact.Lookup(field)
		if err != nil {
			if errors.Is(err, models.ErrUnknownField) {
				return nil, &models.TemplateMismatchError{SectionID: sectionID, Field: field}
			}
			return nil, err
		}
		vals[field] = v
	}
	return vals, nil
}

func supplement(fact *models.FactModel, role template.Role) string {
	switch role {
	case template.RoleAssertion:
		return fmt.Sprintf("この方針は、%sを取り巻く採用環境の変化を踏まえたものである。", fact.Company.Industry)
	case template.RoleJustification:
		return "引用した数値はいずれもヒアリング時点の実績値に基づく。"
	case template.RoleIllustration:
		return "前提となる数値は決算書および工程の実測値から採用している。"
	default:
		return "実施状況は四半期ごとに点検し、計画との乖離があれば是正する。"
	}
}
