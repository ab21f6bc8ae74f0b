// Package template defines the rhetorical skeletons the synthesizer fills:
// one PREP-structured template per business-plan section, plus the
// per-industry before/after process tables the illustrations cite. Templates
// are static and looked up by section id; they never change during a run.
package template

// Role is the semantic function of one slot within a section.
type Role string

const (
	RoleAssertion     Role = "assertion"     // states the section's conclusion
	RoleJustification Role = "justification" // cites the driving factor
	RoleIllustration  Role = "illustration"  // cites a concrete number or process step
	RoleRestatement   Role = "restatement"   // restates the assertion with the quantified benefit
)

// Slot is one rhetorically-typed segment of a section template.
type Slot struct {
	Name     string
	Role     Role
	MinRunes int
	MaxRunes int
	// Facts lists the dotted FactModel fields this slot's content is derived
	// from. Synthesis fails with a MissingFactError if any is absent.
	Facts []string
}

// Midpoint is the length the repair engine converges on when trimming an
// overlong slot.
func (s Slot) Midpoint() int { return (s.MinRunes + s.MaxRunes) / 2 }

// SectionTemplate is a named skeleton of ordered slots.
type SectionTemplate struct {
	ID    string
	Title string
	Slots []Slot
}

// Slot returns the slot with the given name and its index, or ok=false.
func (t SectionTemplate) Slot(name string) (Slot, int, bool) {
	for i, s := range t.Slots {
		if s.Name == name {
			return s, i, true
		}
	}
	return Slot{}, 0, false
}

func prep(min, max int, assertFacts, justifyFacts, illustrateFacts, restateFacts []string) []Slot {
	return []Slot{
		{Name: "assertion", Role: RoleAssertion, MinRunes: min, MaxRunes: max, Facts: assertFacts},
		{Name: "justification", Role: RoleJustification, MinRunes: min, MaxRunes: max, Facts: justifyFacts},
		{Name: "illustration", Role: RoleIllustration, MinRunes: min, MaxRunes: max * 2, Facts: illustrateFacts},
		{Name: "restatement", Role: RoleRestatement, MinRunes: min, MaxRunes: max, Facts: restateFacts},
	}
}

// registry holds every section template, in document order.
var registry = []SectionTemplate{
	{
		ID:    "1-1",
		Title: "現状分析",
		Slots: prep(30, 400,
			[]string{"company.name", "company.established_date", "company.prefecture", "company.industry", "company.business_description"},
			[]string{"company.industry", "company.revenue.latest", "company.employee_count", "company.officer_count"},
			[]string{"company.industry", "shortage.recruitment_period"},
			[]string{"company.industry"},
		),
	},
	{
		ID:    "1-2",
		Title: "経営上の課題",
		Slots: prep(30, 400,
			[]string{"shortage.tasks"},
			[]string{"shortage.current_workers", "shortage.desired_workers", "shortage.overtime_hours"},
			[]string{"shortage.tasks", "saving.current_hours"},
			[]string{"shortage.tasks"},
		),
	},
	{
		ID:    "1-3",
		Title: "動機・目的",
		Slots: prep(30, 400,
			[]string{"equipment.name", "shortage.tasks"},
			[]string{"saving.current_hours", "saving.target_hours"},
			[]string{"saving.reduction_rate", "shortage.overtime_hours"},
			[]string{"equipment.name"},
		),
	},
	{
		ID:    "2-1",
		Title: "省力化の内容（ビフォーアフター）",
		Slots: prep(30, 500,
			[]string{"equipment.name", "shortage.tasks"},
			[]string{"process.before_total_minutes", "process.after_total_minutes"},
			[]string{"equipment.name", "equipment.features"},
			[]string{"saving.reduction_hours"},
		),
	},
	{
		ID:    "2-2",
		Title: "省力化投資により期待される効果",
		Slots: prep(30, 400,
			[]string{"saving.reduction_hours"},
			[]string{"params.working_days", "params.hourly_wage"},
			[]string{"saving.reduction_hours", "params.working_days", "params.hourly_wage"},
			[]string{"shortage.overtime_hours"},
		),
	},
	{
		ID:    "3-1",
		Title: "生産性向上と賃上げ",
		Slots: prep(30, 500,
			[]string{"params.growth_rate"},
			[]string{"company.added_value.latest", "params.growth_rate"},
			[]string{"saving.reduction_hours", "params.working_days", "params.hourly_wage", "params.growth_rate"},
			[]string{"funding.total_investment", "params.salary_growth_rate", "company.prefecture"},
		),
	},
}

// Lookup returns the template for a section id.
func Lookup(sectionID string) (SectionTemplate, bool) {
	for _, t := range registry {
		if t.ID == sectionID {
			return t, true
		}
	}
	return SectionTemplate{}, false
}

// RequiredFacts returns the union of every fact field the registered
// templates reference, in first-use order.
func RequiredFacts() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, t := range registry {
		for _, slot := range t.Slots {
			for _, f := range slot.Facts {
				if !seen[f] {
					seen[f] = true
					fields = append(fields, f)
				}
			}
		}
	}
	return fields
}

// SectionIDs returns every registered section id in document order.
func SectionIDs() []string {
	ids := make([]string, len(registry))
	for i, t := range registry {
		ids[i] = t.ID
	}
	return ids
}
