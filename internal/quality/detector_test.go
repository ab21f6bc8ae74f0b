package quality

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shota9616/planforge/internal/config"
	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/template"
)

func prepTemplate() template.SectionTemplate {
	return template.SectionTemplate{
		ID: "t",
		Slots: []template.Slot{
			{Name: "assertion", Role: template.RoleAssertion, MinRunes: 10, MaxRunes: 100},
			{Name: "justification", Role: template.RoleJustification, MinRunes: 10, MaxRunes: 100},
			{Name: "illustration", Role: template.RoleIllustration, MinRunes: 10, MaxRunes: 200},
			{Name: "restatement", Role: template.RoleRestatement, MinRunes: 10, MaxRunes: 100},
		},
	}
}

func draftWith(texts ...string) *models.SectionDraft {
	names := []string{"assertion", "justification", "illustration", "restatement"}
	d := &models.SectionDraft{SectionID: "t", State: models.StateDraft}
	for i, text := range texts {
		d.Slots = append(d.Slots, models.SlotText{Name: names[i], Text: text})
	}
	return d
}

func cleanDraft() *models.SectionDraft {
	return draftWith(
		"当社は建設業を営む中小企業である。",
		"直近期の売上高は2億円に達している。",
		"施工図面の作成には1件あたり4.5時間を要している。",
		"業務効率の引き上げが急務となっている。",
	)
}

func TestValidateCleanDraft(t *testing.T) {
	d := New(config.Default())

	res := d.Validate(cleanDraft(), prepTemplate())

	assert.Empty(t, res.Issues)
	assert.Equal(t, 1.0, res.Score)
}

func TestValidateRepeatedOpeners(t *testing.T) {
	d := New(config.Default())
	draft := draftWith(
		"これにより、受注は年々増えている。",
		"これにより、人員の不足が補われる。",
		"これにより、残業は月45時間から圧縮される。図面作成が業務の過半を占める。",
		"省力化への投資が急務である。",
	)

	res := d.Validate(draft, prepTemplate())

	require.True(t, res.HasCategory(models.Repetition))
	assert.Equal(t, 1, res.CountCategory(models.Repetition))
	assert.Less(t, res.Score, 1.0)
}

func TestValidateTwoOpenersBelowThreshold(t *testing.T) {
	d := New(config.Default())
	draft := draftWith(
		"これにより、受注は年々増えている。",
		"これにより、人員の不足が補われる。",
		"一方で、残業は月45時間に達している。",
		"省力化への投資が急務である。",
	)

	res := d.Validate(draft, prepTemplate())

	assert.False(t, res.HasCategory(models.Repetition))
}

func TestValidateStructuralDrift(t *testing.T) {
	d := New(config.Default())

	t.Run("missing slot", func(t *testing.T) {
		draft := draftWith("主張である。", "根拠である。", "例示である。")
		res := d.Validate(draft, prepTemplate())
		require.True(t, res.HasCategory(models.StructuralDrift))
		assert.Equal(t, models.SeverityError, res.Issues[0].Severity)
	})

	t.Run("empty slot", func(t *testing.T) {
		draft := draftWith(
			"当社は建設業を営む中小企業である。",
			"   ",
			"施工図面の作成には1件あたり4.5時間を要している。",
			"業務効率の引き上げが急務となっている。",
		)
		res := d.Validate(draft, prepTemplate())
		require.True(t, res.HasCategory(models.StructuralDrift))
	})

	t.Run("reordered slots", func(t *testing.T) {
		draft := cleanDraft()
		draft.Slots[0], draft.Slots[1] = draft.Slots[1], draft.Slots[0]
		res := d.Validate(draft, prepTemplate())
		assert.Equal(t, 2, res.CountCategory(models.StructuralDrift))
	})
}

func TestValidateLengthBands(t *testing.T) {
	d := New(config.Default())
	draft := cleanDraft()
	draft.Slots[0].Text = "短い。"

	res := d.Validate(draft, prepTemplate())

	require.True(t, res.HasCategory(models.LengthViolation))
	issue := res.Issues[0]
	assert.Equal(t, "assertion", issue.Slot)
	assert.Equal(t, models.SeverityWarn, issue.Severity)
}

func TestValidateGenericPhrase(t *testing.T) {
	d := New(config.Default())
	draft := cleanDraft()
	draft.Slots[1].Text = "当社は様々な課題を抱えつつも成長を続けている。"

	res := d.Validate(draft, prepTemplate())

	require.True(t, res.HasCategory(models.GenericPhrase))
	var found *models.Issue
	for i := range res.Issues {
		if res.Issues[i].Category == models.GenericPhrase {
			found = &res.Issues[i]
			break
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "justification", found.Slot)
	assert.Equal(t, 3, found.Offset) // rune offset of 様
}

func TestValidateUnnaturalPattern(t *testing.T) {
	d := New(config.Default())
	draft := cleanDraft()
	draft.Slots[2].Text = "導入により作業時間を大幅に短縮することができます。"

	res := d.Validate(draft, prepTemplate())

	assert.True(t, res.HasCategory(models.UnnaturalPattern))
}

func TestValidateIsDeterministicAndIdempotent(t *testing.T) {
	d := New(config.Default())
	draft := draftWith(
		"また、当社は様々な課題を抱えている。",
		"また、残業することができます。",
		"また、短い。",
		"省力化への投資が急務である。",
	)

	first := d.Validate(draft, prepTemplate())
	second := d.Validate(draft, prepTemplate())

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("validation not deterministic (-first +second):\n%s", diff)
	}
}

func TestScoreClampedAtZero(t *testing.T) {
	d := New(config.Default())
	slots := make([]string, 4)
	for i := range slots {
		// Dense defects: generic phrases and polite forms in every slot.
		slots[i] = "また、様々な課題に最先端の技術で大きく貢献することができます。" +
			"また、豊富な実績により飛躍的に向上することが可能です。" +
			"また、画期的な抜本的な改革で幅広いニーズに応えることができます。"
	}
	res := d.Validate(draftWith(slots...), prepTemplate())

	assert.Equal(t, 0.0, res.Score)
	assert.NotEmpty(t, res.Issues)
}

func TestValidateDocumentOpenerMonotony(t *testing.T) {
	d := New(config.Default())

	var drafts []*models.SectionDraft
	for i := 0; i < 6; i++ {
		draft := cleanDraft()
		draft.Slots[3].Text = "これにより、業務効率の引き上げを実現する。"
		drafts = append(drafts, draft)
	}

	res := d.ValidateDocument(drafts)

	// The same closer opens one sentence per section, and the identical
	// sentence recurs verbatim across sections.
	assert.True(t, res.HasCategory(models.Repetition))
	assert.Less(t, res.Score, 1.0)
	for _, is := range res.Issues {
		assert.Equal(t, models.SeverityInfo, is.Severity, "document-scope issues are informational")
	}
}

func TestValidateDocumentCleanSections(t *testing.T) {
	d := New(config.Default())
	drafts := []*models.SectionDraft{
		cleanDraft(),
		draftWith(
			"最大の課題は図面作成の工数である。",
			"担当3名に対し必要人員は5名と見積もる。",
			"1件あたり4.5時間の作図が発生している。",
			"作図工程の省力化が不可欠である。",
		),
	}

	res := d.ValidateDocument(drafts)

	assert.Empty(t, res.Issues)
	assert.Equal(t, 1.0, res.Score)
}
