package synthesis

import (
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/template"
)

func testFacts() *models.FactModel {
	return &models.FactModel{
		Company: models.CompanyProfile{
			Name:                "株式会社山田工務店",
			Prefecture:          "愛知県",
			Industry:            "建設業",
			BusinessDescription: "木造住宅の設計・施工",
			EstablishedDate:     "1998年4月",
			EmployeeCount:       12,
			OfficerCount:        2,
			FiscalYears: []models.FiscalYear{
				{Label: "2024年度", Revenue: 180_000_000, OperatingProfit: 9_000_000},
				{Label: "2025年度", Revenue: 210_000_000, OperatingProfit: 12_000_000},
			},
			LaborCost:    48_000_000,
			Depreciation: 6_000_000,
		},
		Shortage: models.LaborShortage{
			ShortageTasks:     "施工図面の作成業務",
			RecruitmentPeriod: "18か月",
			OvertimeHours:     45,
			CurrentWorkers:    3,
			DesiredWorkers:    5,
			JobOpeningsRatio:  5.3,
		},
		Saving: models.LaborSaving{
			CurrentHours:   4.5,
			TargetHours:    1.5,
			ReductionHours: 2.5,
			ReductionRate:  66.7,
		},
		Equipment: models.Equipment{
			Name:     "BIM連携型図面自動作成システム",
			Features: "図面生成の自動化機能と施工データ連携機能",
		},
		Funding: models.Funding{
			TotalInvestment: 8_500_000,
			SubsidyAmount:   4_250_000,
		},
		Params: models.PlanParams{
			GrowthRate:          1.15,
			SalaryGrowthRate:    1.025,
			HourlyWage:          1200,
			WorkingDaysPerMonth: 21,
		},
		Before: []models.WorkProcess{
			{Name: "現地採寸の転記", Minutes: 90, Description: "手書きメモからのCAD入力"},
			{Name: "図面作成", Minutes: 150, Description: "担当者による個別作図"},
			{Name: "チェックと修正", Minutes: 60, Description: "紙図面の目視照合"},
		},
		After: []models.WorkProcess{
			{Name: "現地採寸の転記", Minutes: 15, Description: "計測データの自動取込"},
			{Name: "図面作成", Minutes: 40, Description: "テンプレートからの自動生成"},
			{Name: "チェックと修正", Minutes: 30, Description: "差分の画面照合"},
		},
	}
}

func TestSynthesizeQuotesPlanParams(t *testing.T) {
	tpl, ok := template.Lookup("3-1")
	require.True(t, ok)

	draft, err := Synthesize(testFacts(), tpl)
	require.NoError(t, err)

	text := draft.Text()
	assert.Contains(t, text, "1.15", "growth rate must be quoted verbatim")
	assert.Contains(t, text, "1,200", "hourly wage must be quoted verbatim")
}

func TestSynthesizeFillsEverySlotInOrder(t *testing.T) {
	facts := testFacts()
	for _, id := range template.SectionIDs() {
		tpl, _ := template.Lookup(id)
		draft, err := Synthesize(facts, tpl)
		require.NoError(t, err, "section %s", id)
		require.Len(t, draft.Slots, len(tpl.Slots))
		for i, slot := range tpl.Slots {
			got := draft.Slots[i]
			assert.Equal(t, slot.Name, got.Name, "section %s slot %d", id, i)
			n := utf8.RuneCountInString(got.Text)
			assert.GreaterOrEqual(t, n, slot.MinRunes, "section %s slot %s too short", id, slot.Name)
			assert.LessOrEqual(t, n, slot.MaxRunes, "section %s slot %s too long", id, slot.Name)
		}
	}
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	facts := testFacts()
	for _, id := range template.SectionIDs() {
		tpl, _ := template.Lookup(id)
		a, err := Synthesize(facts, tpl)
		require.NoError(t, err)
		b, err := Synthesize(facts, tpl)
		require.NoError(t, err)
		if diff := cmp.Diff(a.Slots, b.Slots); diff != "" {
			t.Errorf("section %s drafts differ (-first +second):\n%s", id, diff)
		}
	}
}

func TestSynthesizeMissingFact(t *testing.T) {
	facts := testFacts()
	facts.Equipment.Name = ""

	tpl, _ := template.Lookup("1-3")
	_, err := Synthesize(facts, tpl)

	var missing *models.MissingFactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "equipment.name", missing.Field)
}

func TestSynthesizeUnknownTemplateField(t *testing.T) {
	tpl := template.SectionTemplate{
		ID: "9-9",
		Slots: []template.Slot{
			{Name: "assertion", Role: template.RoleAssertion, MinRunes: 10, MaxRunes: 100,
				Facts: []string{"company.stock_price"}},
		},
	}

	_, err := Synthesize(testFacts(), tpl)

	var mismatch *models.TemplateMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "9-9", mismatch.SectionID)
	assert.Equal(t, "company.stock_price", mismatch.Field)
	assert.ErrorIs(t, err, models.ErrUnknownField)
}

func TestSynthesizeSlotRegeneratesOneSlot(t *testing.T) {
	facts := testFacts()
	tpl, _ := template.Lookup("2-1")

	draft, err := Synthesize(facts, tpl)
	require.NoError(t, err)

	text, err := SynthesizeSlot(facts, tpl, "justification")
	require.NoError(t, err)
	assert.Equal(t, draft.Slots[1].Text, text)

	_, err = SynthesizeSlot(facts, tpl, "conclusion")
	assert.Error(t, err)
}

func TestExpandSlotAppends(t *testing.T) {
	facts := testFacts()
	slot := template.Slot{Name: "justification", Role: template.RoleJustification}

	got := ExpandSlot(facts, slot, "短い文。")
	assert.True(t, len(got) > len("短い文。"))
	assert.Contains(t, got, "短い文。")
}
