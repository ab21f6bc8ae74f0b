package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFacts() *FactModel {
	return &FactModel{
		Company: CompanyProfile{
			Name:       "株式会社山田工務店",
			Prefecture: "愛知県",
			Industry:   "建設業",
			FiscalYears: []FiscalYear{
				{Label: "2024年度", Revenue: 180_000_000, OperatingProfit: 9_000_000},
				{Label: "2025年度", Revenue: 210_000_000, OperatingProfit: 12_000_000},
			},
			LaborCost:    48_000_000,
			Depreciation: 6_000_000,
		},
		Shortage: LaborShortage{ShortageTasks: "施工図面の作成業務", OvertimeHours: 45},
		Saving:   LaborSaving{CurrentHours: 4.5, ReductionRate: 66.7},
		Params:   PlanParams{GrowthRate: 1.15, HourlyWage: 1200},
	}
}

func TestLookupFormatsValues(t *testing.T) {
	f := sampleFacts()

	cases := map[string]string{
		"company.name":                    "株式会社山田工務店",
		"company.revenue.latest":          "210,000,000",
		"company.operating_profit.latest": "12,000,000",
		"company.added_value.latest":      "66,000,000",
		"shortage.overtime_hours":         "45",
		"saving.current_hours":            "4.5",
		"params.growth_rate":              "1.15",
		"params.hourly_wage":              "1,200",
	}
	for field, want := range cases {
		got, err := f.Lookup(field)
		require.NoError(t, err, field)
		assert.Equal(t, want, got, field)
	}
}

func TestLookupDistinguishesMissingFromUnknown(t *testing.T) {
	f := sampleFacts()

	_, err := f.Lookup("equipment.name")
	var missing *MissingFactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "equipment.name", missing.Field)

	_, err = f.Lookup("company.stock_price")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.False(t, errors.As(err, &missing))
}

func TestLookupTreatsZeroNumbersAsMissing(t *testing.T) {
	f := sampleFacts()
	f.Params.HourlyWage = 0

	_, err := f.Lookup("params.hourly_wage")
	var missing *MissingFactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "params.hourly_wage", missing.Field)
}

func TestHas(t *testing.T) {
	f := sampleFacts()
	assert.True(t, f.Has("company.name"))
	assert.False(t, f.Has("equipment.name"))
	assert.False(t, f.Has("company.stock_price"))
}

func TestAddedValueUsesLatestYear(t *testing.T) {
	f := sampleFacts()

	v, ok := f.AddedValue()
	require.True(t, ok)
	// operating profit + labor cost + depreciation of the latest year
	assert.Equal(t, int64(66_000_000), v)

	f.Company.FiscalYears = nil
	_, ok = f.AddedValue()
	assert.False(t, ok)
}

func TestMissingFields(t *testing.T) {
	f := sampleFacts()

	missing := f.MissingFields([]string{"company.name", "equipment.name", "funding.total_investment"})
	assert.Equal(t, []string{"equipment.name", "funding.total_investment"}, missing)

	assert.Empty(t, f.MissingFields([]string{"company.name"}))
}

func TestFormatYen(t *testing.T) {
	assert.Equal(t, "0", FormatYen(0))
	assert.Equal(t, "987", FormatYen(987))
	assert.Equal(t, "1,200", FormatYen(1200))
	assert.Equal(t, "12,000,000", FormatYen(12_000_000))
	assert.Equal(t, "-1,200", FormatYen(-1200))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "1.15", FormatRate(1.15))
	assert.Equal(t, "45", FormatRate(45))
	assert.Equal(t, "66.7", FormatRate(66.7))
}
