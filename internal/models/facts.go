package models

import (
	"strconv"
	"strings"
)

// CompanyProfile holds the applicant's identity and the financials the plan
// text quotes. Fiscal years are ordered oldest first; the last entry is the
// latest closed period.
type CompanyProfile struct {
	Name                string       `json:"name" yaml:"name"`
	Representative      string       `json:"representative" yaml:"representative"`
	Prefecture          string       `json:"prefecture" yaml:"prefecture"`
	Industry            string       `json:"industry" yaml:"industry"`
	BusinessDescription string       `json:"businessDescription" yaml:"business_description"`
	EstablishedDate     string       `json:"establishedDate" yaml:"established_date"`
	EmployeeCount       int          `json:"employeeCount" yaml:"employee_count"`
	OfficerCount        int          `json:"officerCount" yaml:"officer_count"`
	FiscalYears         []FiscalYear `json:"fiscalYears" yaml:"fiscal_years"`
	LaborCost           int64        `json:"laborCost" yaml:"labor_cost"`
	Depreciation        int64        `json:"depreciation" yaml:"depreciation"`
	TotalSalary         int64        `json:"totalSalary" yaml:"total_salary"`
}

// FiscalYear is one closed accounting period, in yen.
type FiscalYear struct {
	Label           string `json:"label" yaml:"label"`
	Revenue         int64  `json:"revenue" yaml:"revenue"`
	GrossProfit     int64  `json:"grossProfit" yaml:"gross_profit"`
	OperatingProfit int64  `json:"operatingProfit" yaml:"operating_profit"`
}

// LaborShortage describes the staffing gap the plan argues from.
type LaborShortage struct {
	ShortageTasks     string  `json:"shortageTasks" yaml:"shortage_tasks"`
	RecruitmentPeriod string  `json:"recruitmentPeriod" yaml:"recruitment_period"`
	Applications      int     `json:"applications" yaml:"applications"`
	Hired             int     `json:"hired" yaml:"hired"`
	OvertimeHours     float64 `json:"overtimeHours" yaml:"overtime_hours"`
	CurrentWorkers    int     `json:"currentWorkers" yaml:"current_workers"`
	DesiredWorkers    int     `json:"desiredWorkers" yaml:"desired_workers"`
	JobOpeningsRatio  float64 `json:"jobOpeningsRatio" yaml:"job_openings_ratio"`
}

// LaborSaving quantifies the expected time reduction.
type LaborSaving struct {
	TargetTasks    string  `json:"targetTasks" yaml:"target_tasks"`
	CurrentHours   float64 `json:"currentHours" yaml:"current_hours"`
	TargetHours    float64 `json:"targetHours" yaml:"target_hours"`
	ReductionHours float64 `json:"reductionHours" yaml:"reduction_hours"`
	ReductionRate  float64 `json:"reductionRate" yaml:"reduction_rate"`
}

// Equipment is the installation the subsidy pays for.
type Equipment struct {
	Name         string `json:"name" yaml:"name"`
	Category     string `json:"category" yaml:"category"`
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"`
	Model        string `json:"model" yaml:"model"`
	TotalPrice   int64  `json:"totalPrice" yaml:"total_price"`
	Features     string `json:"features" yaml:"features"`
}

// Funding covers the investment and its financing.
type Funding struct {
	SubsidyAmount   int64  `json:"subsidyAmount" yaml:"subsidy_amount"`
	SelfFunding     int64  `json:"selfFunding" yaml:"self_funding"`
	TotalInvestment int64  `json:"totalInvestment" yaml:"total_investment"`
	BankName        string `json:"bankName" yaml:"bank_name"`
}

// PlanParams are the tunable numeric assumptions quoted across sections.
type PlanParams struct {
	GrowthRate          float64 `json:"growthRate" yaml:"growth_rate"`
	SalaryGrowthRate    float64 `json:"salaryGrowthRate" yaml:"salary_growth_rate"`
	HourlyWage          int64   `json:"hourlyWage" yaml:"hourly_wage"`
	WorkingDaysPerMonth int     `json:"workingDaysPerMonth" yaml:"working_days_per_month"`
}

// WorkProcess is one step of the before/after process comparison.
type WorkProcess struct {
	Name        string `json:"name" yaml:"name"`
	Minutes     int    `json:"minutes" yaml:"minutes"`
	Description string `json:"description" yaml:"description"`
}

// FactModel is the normalized snapshot of all business inputs for one
// generation run. It is created once per run and never mutated afterwards;
// every section reads the same snapshot so quoted numbers stay consistent.
type FactModel struct {
	Company   CompanyProfile `json:"company" yaml:"company"`
	Shortage  LaborShortage  `json:"shortage" yaml:"shortage"`
	Saving    LaborSaving    `json:"saving" yaml:"saving"`
	Equipment Equipment      `json:"equipment" yaml:"equipment"`
	Funding   Funding        `json:"funding" yaml:"funding"`
	Params    PlanParams     `json:"params" yaml:"params"`
	Before    []WorkProcess  `json:"beforeProcesses" yaml:"before_processes"`
	After     []WorkProcess  `json:"afterProcesses" yaml:"after_processes"`
}

// Lookup resolves a dotted fact reference to its display value. The field set
// is closed: an unknown path is a template configuration bug and returns
// ErrUnknownField; a known path whose value is absent returns a
// *MissingFactError naming the field.
func (f *FactModel) Lookup(field string) (string, error) {
	v, known := f.resolve(field)
	if !known {
		return "", ErrUnknownField
	}
	if v == "" {
		return "", &MissingFactError{Field: field}
	}
	return v, nil
}

// Has reports whether the field is part of the schema at all.
func (f *FactModel) Has(field string) bool {
	_, known := f.resolve(field)
	return known
}

func (f *FactModel) resolve(field string) (value string, known bool) {
	switch field {
	case "company.name":
		return f.Company.Name, true
	case "company.prefecture":
		return f.Company.Prefecture, true
	case "company.industry":
		return f.Company.Industry, true
	case "company.business_description":
		return f.Company.BusinessDescription, true
	case "company.established_date":
		return f.Company.EstablishedDate, true
	case "company.employee_count":
		return nonZeroInt(int64(f.Company.EmployeeCount)), true
	case "company.officer_count":
		return nonZeroInt(int64(f.Company.OfficerCount)), true
	case "company.revenue.latest":
		if y, ok := f.latestYear(); ok {
			return FormatYen(y.Revenue), true
		}
		return "", true
	case "company.operating_profit.latest":
		if y, ok := f.latestYear(); ok {
			return FormatYen(y.OperatingProfit), true
		}
		return "", true
	case "company.added_value.latest":
		if v, ok := f.AddedValue(); ok {
			return FormatYen(v), true
		}
		return "", true
	case "shortage.tasks":
		return f.Shortage.ShortageTasks, true
	case "shortage.recruitment_period":
		return f.Shortage.RecruitmentPeriod, true
	case "shortage.overtime_hours":
		return nonZeroFloat(f.Shortage.OvertimeHours), true
	case "shortage.current_workers":
		return nonZeroInt(int64(f.Shortage.CurrentWorkers)), true
	case "shortage.desired_workers":
		return nonZeroInt(int64(f.Shortage.DesiredWorkers)), true
	case "shortage.job_openings_ratio":
		return nonZeroFloat(f.Shortage.JobOpeningsRatio), true
	case "saving.current_hours":
		return nonZeroFloat(f.Saving.CurrentHours), true
	case "saving.target_hours":
		return nonZeroFloat(f.Saving.TargetHours), true
	case "saving.reduction_hours":
		return nonZeroFloat(f.Saving.ReductionHours), true
	case "saving.reduction_rate":
		return nonZeroFloat(f.Saving.ReductionRate), true
	case "equipment.name":
		return f.Equipment.Name, true
	case "equipment.features":
		return f.Equipment.Features, true
	case "funding.total_investment":
		return nonZeroYen(f.Funding.TotalInvestment), true
	case "funding.subsidy_amount":
		return nonZeroYen(f.Funding.SubsidyAmount), true
	case "params.growth_rate":
		return nonZeroFloat(f.Params.GrowthRate), true
	case "params.salary_growth_rate":
		return nonZeroFloat(f.Params.SalaryGrowthRate), true
	case "params.hourly_wage":
		return nonZeroYen(f.Params.HourlyWage), true
	case "params.working_days":
		return nonZeroInt(int64(f.Params.WorkingDaysPerMonth)), true
	case "process.before_total_minutes":
		return nonZeroInt(int64(totalMinutes(f.Before))), true
	case "process.after_total_minutes":
		return nonZeroInt(int64(totalMinutes(f.After))), true
	default:
		return "", false
	}
}

func (f *FactModel) latestYear() (FiscalYear, bool) {
	if len(f.Company.FiscalYears) == 0 {
		return FiscalYear{}, false
	}
	return f.Company.FiscalYears[len(f.Company.FiscalYears)-1], true
}

// AddedValue is operating profit + labor cost + depreciation for the latest
// fiscal year, the figure the productivity section grows year over year.
func (f *FactModel) AddedValue() (int64, bool) {
	y, ok := f.latestYear()
	if !ok {
		return 0, false
	}
	return y.OperatingProfit + f.Company.LaborCost + f.Company.Depreciation, true
}

// MissingFields lists every required base field that is absent, so a fact
// source can report exactly what it failed to deliver.
func (f *FactModel) MissingFields(required []string) []string {
	var missing []string
	for _, field := range required {
		if !f.Has(field) {
			continue
		}
		if _, err := f.Lookup(field); err != nil {
			missing = append(missing, field)
		}
	}
	return missing
}

func totalMinutes(steps []WorkProcess) int {
	var total int
	for _, s := range steps {
		total += s.Minutes
	}
	return total
}

// FormatYen renders an amount with thousands separators, e.g. 12,000,000.
func FormatYen(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatRate renders a rate with its natural precision, e.g. 1.15 or 4.5.
func FormatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nonZeroInt(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func nonZeroYen(v int64) string {
	if v == 0 {
		return ""
	}
	return FormatYen(v)
}

func nonZeroFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return FormatRate(v)
}
