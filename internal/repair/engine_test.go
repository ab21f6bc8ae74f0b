package repair

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shota9616/planforge/internal/backend"
	"github.com/shota9616/planforge/internal/config"
	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/quality"
	"github.com/shota9616/planforge/internal/template"
)

func testFacts() *models.FactModel {
	return &models.FactModel{
		Company: models.CompanyProfile{
			Name: "株式会社山田工務店", Prefecture: "愛知県", Industry: "建設業",
		},
		Shortage: models.LaborShortage{
			ShortageTasks:  "施工図面の作成業務",
			OvertimeHours:  45,
			CurrentWorkers: 3,
			DesiredWorkers: 5,
		},
		Saving: models.LaborSaving{
			CurrentHours: 4.5, TargetHours: 1.5, ReductionHours: 2.5, ReductionRate: 66.7,
		},
		Equipment: models.Equipment{Name: "BIM連携型図面自動作成システム"},
	}
}

func testTemplate() template.SectionTemplate {
	return template.SectionTemplate{
		ID: "t",
		Slots: []template.Slot{
			{Name: "assertion", Role: template.RoleAssertion, MinRunes: 10, MaxRunes: 100},
			{Name: "justification", Role: template.RoleJustification, MinRunes: 10, MaxRunes: 60},
		},
	}
}

func draftWith(assertion, justification string) *models.SectionDraft {
	return &models.SectionDraft{
		SectionID: "t",
		Slots: []models.SlotText{
			{Name: "assertion", Text: assertion},
			{Name: "justification", Text: justification},
		},
		Facts: testFacts(),
	}
}

func TestRepairGenericPhrase(t *testing.T) {
	e := New(config.Default(), nil)
	draft := draftWith(
		"当社は様々な課題を抱えており、月45時間の残業が発生している。",
		"直近期の売上高は2億円に達している。",
	)

	got, err := e.Repair(context.Background(), draft,
		[]models.Issue{{Category: models.GenericPhrase, Slot: "assertion", Offset: 3}},
		testTemplate())

	require.NoError(t, err)
	assert.NotContains(t, got.Slots[0].Text, "様々な課題")
	assert.Contains(t, got.Slots[0].Text, "建設業に固有の課題")
	assert.Contains(t, got.Slots[0].Text, "45", "quoted figure must survive the repair")
	assert.Equal(t, draft.Slots[1].Text, got.Slots[1].Text, "unflagged slot must pass through unchanged")
	assert.Contains(t, draft.Slots[0].Text, "様々な課題", "input draft must not be mutated")
}

func TestRepairPhraseWithoutStrategyPersists(t *testing.T) {
	e := New(config.Default(), nil)
	draft := draftWith(
		"当社は豊富な実績を有しており、月45時間の残業が発生している。",
		"直近期の売上高は2億円に達している。",
	)

	got, err := e.Repair(context.Background(), draft,
		[]models.Issue{{Category: models.GenericPhrase, Slot: "assertion", Offset: 3}},
		testTemplate())

	require.NoError(t, err)
	assert.Equal(t, draft.Slots[0].Text, got.Slots[0].Text,
		"a phrase with no replacement has no strategy and must persist")
}

func TestRepairUnnaturalPattern(t *testing.T) {
	e := New(config.Default(), nil)
	draft := draftWith(
		"導入により作業時間を短縮することができます。",
		"第一に、残業の削減が見込まれる。",
	)

	got, err := e.Repair(context.Background(), draft,
		[]models.Issue{
			{Category: models.UnnaturalPattern, Slot: "assertion"},
			{Category: models.UnnaturalPattern, Slot: "justification"},
		},
		testTemplate())

	require.NoError(t, err)
	assert.Equal(t, "導入により作業時間を短縮できる。", got.Slots[0].Text)
	assert.Equal(t, "まず、残業の削減が見込まれる。", got.Slots[1].Text)
}

func TestRepairBackendRewriteGuardsNumbers(t *testing.T) {
	cfg := config.Default()
	draft := draftWith(
		"設備〇〇の導入により月45時間の残業を削減する。",
		"直近期の売上高は2億円に達している。",
	)
	issues := []models.Issue{{Category: models.UnnaturalPattern, Slot: "assertion"}}

	t.Run("completion dropping a figure is discarded", func(t *testing.T) {
		gen := &backend.Mock{Fn: func(req backend.Request) (string, error) {
			return "設備の導入により残業を大幅に削減する。", nil
		}}
		got, err := New(cfg, gen).Repair(context.Background(), draft, issues, testTemplate())
		require.NoError(t, err)
		assert.Equal(t, draft.Slots[0].Text, got.Slots[0].Text)
	})

	t.Run("completion growing a figure into a superstring is discarded", func(t *testing.T) {
		gen := &backend.Mock{Fn: func(req backend.Request) (string, error) {
			return "設備の導入により月145時間の残業を削減する。", nil
		}}
		got, err := New(cfg, gen).Repair(context.Background(), draft, issues, testTemplate())
		require.NoError(t, err)
		assert.Equal(t, draft.Slots[0].Text, got.Slots[0].Text,
			"45 inside 145 is an altered figure, not a preserved one")
	})

	t.Run("completion adding an extra figure is discarded", func(t *testing.T) {
		gen := &backend.Mock{Fn: func(req backend.Request) (string, error) {
			return "設備の導入により月45時間の残業を3年で削減する。", nil
		}}
		got, err := New(cfg, gen).Repair(context.Background(), draft, issues, testTemplate())
		require.NoError(t, err)
		assert.Equal(t, draft.Slots[0].Text, got.Slots[0].Text)
	})

	t.Run("completion preserving figures is accepted", func(t *testing.T) {
		gen := &backend.Mock{Fn: func(req backend.Request) (string, error) {
			return "当該設備の導入により月45時間の残業を削減する。", nil
		}}
		got, err := New(cfg, gen).Repair(context.Background(), draft, issues, testTemplate())
		require.NoError(t, err)
		assert.Equal(t, "当該設備の導入により月45時間の残業を削減する。", got.Slots[0].Text)
	})

	t.Run("no backend leaves the slot alone", func(t *testing.T) {
		got, err := New(cfg, nil).Repair(context.Background(), draft, issues, testTemplate())
		require.NoError(t, err)
		assert.Equal(t, draft.Slots[0].Text, got.Slots[0].Text)
	})
}

func TestRepairLength(t *testing.T) {
	e := New(config.Default(), nil)

	t.Run("short slot is expanded", func(t *testing.T) {
		draft := draftWith("短い文。", "直近期の売上高は2億円に達している。")
		got, err := e.Repair(context.Background(), draft,
			[]models.Issue{{Category: models.LengthViolation, Slot: "assertion"}},
			testTemplate())
		require.NoError(t, err)
		assert.Greater(t, len(got.Slots[0].Text), len(draft.Slots[0].Text))
		assert.Contains(t, got.Slots[0].Text, "短い文。")
	})

	t.Run("long slot is trimmed toward the midpoint", func(t *testing.T) {
		long := strings.Repeat("この文は埋め草として十分な長さを持つ説明である。", 5)
		draft := draftWith("当社は建設業を営んでいる。", long)
		tpl := testTemplate()
		got, err := e.Repair(context.Background(), draft,
			[]models.Issue{{Category: models.LengthViolation, Slot: "justification"}},
			tpl)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(got.Slots[1].Text, "。"))

		want, _, ok := tpl.Slot("justification")
		require.True(t, ok)
		n := utf8.RuneCountInString(got.Slots[1].Text)
		assert.LessOrEqual(t, n, want.MaxRunes)
		assert.GreaterOrEqual(t, n, want.Midpoint(), "trimming must stop at the midpoint, not below it")
	})
}

func TestRepairRepetitionVariesOpeners(t *testing.T) {
	cfg := config.Default()
	det := quality.New(cfg)
	e := New(cfg, nil)
	draft := draftWith(
		"これにより、受注量は月12件まで増加する。これにより、残業は月45時間から圧縮される。",
		"これにより、売上高は2億円を超える見込みである。",
	)

	tpl := testTemplate()
	before := det.Validate(draft, tpl)
	require.True(t, before.HasCategory(models.Repetition))

	got, err := e.Repair(context.Background(), draft, before.Issues, tpl)
	require.NoError(t, err)

	after := det.Validate(got, tpl)
	assert.False(t, after.HasCategory(models.Repetition), "openers must vary after repair")
	joined := got.Text()
	for _, num := range []string{"12", "45", "2"} {
		assert.Contains(t, joined, num)
	}
}

func TestRepairStructuralDriftRegeneratesSlot(t *testing.T) {
	e := New(config.Default(), nil)
	tpl, ok := template.Lookup("1-2")
	require.True(t, ok)

	draft := &models.SectionDraft{
		SectionID: "1-2",
		Slots: []models.SlotText{
			{Name: "assertion", Text: "当社が直面する最も深刻な課題は、施工図面の作成業務における慢性的な人手不足である。"},
			{Name: "justification", Text: ""},
			{Name: "illustration", Text: "中でも負担が大きいのは施工図面の作成業務であり、1件あたり4.5時間を要している。"},
			{Name: "restatement", Text: "施工図面の作成業務の省力化が急務である。"},
		},
		Facts: testFacts(),
	}

	got, err := e.Repair(context.Background(), draft,
		[]models.Issue{{Category: models.StructuralDrift, Slot: "justification", Severity: models.SeverityError}},
		tpl)

	require.NoError(t, err)
	assert.NotEmpty(t, got.Slots[1].Text)
	assert.Contains(t, got.Slots[1].Text, "3")
	assert.Contains(t, got.Slots[1].Text, "5")
	assert.Equal(t, draft.Slots[0].Text, got.Slots[0].Text)
}
