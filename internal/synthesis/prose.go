package synthesis

import (
	"fmt"
	"math"
	"strings"

	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/template"
)

// builderFunc renders one slot. vals holds the pre-resolved facts the slot's
// template declares; computed figures are derived from the snapshot directly.
type builderFunc func(f *models.FactModel, vals map[string]string) string

var builders = map[string]builderFunc{
	"1-1/assertion": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("当社%sは、%sの設立以来、%sを拠点として%sを営んでいる。主たる事業は%sである。",
			v["company.name"], v["company.established_date"], v["company.prefecture"],
			v["company.industry"], v["company.business_description"])
	},
	"1-1/justification": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("直近期の売上高は%s円であり、役員%s名・従業員%s名の体制で%sの受注に対応している。需要は堅調に推移する一方、人員の増強が追いついていない。",
			v["company.revenue.latest"], v["company.officer_count"],
			v["company.employee_count"], v["company.industry"])
	},
	"1-1/illustration": func(f *models.FactModel, v map[string]string) string {
		ratio := f.Shortage.JobOpeningsRatio
		if ratio == 0 {
			ratio = template.JobRatioFor(f.Company.Industry)
		}
		return fmt.Sprintf("%sの有効求人倍率は%s倍で推移しており、採用環境は極めて厳しい。%sにわたり求人を続けてきたものの、必要な人数の確保には至っていない。",
			v["company.industry"], models.FormatRate(ratio), v["shortage.recruitment_period"])
	},
	"1-1/restatement": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("以上のとおり、%sへの需要に応え続けるには、省力化による業務効率の引き上げが避けて通れない経営課題となっている。",
			v["company.industry"])
	},

	"1-2/assertion": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("当社が直面する最も深刻な課題は、%sにおける慢性的な人手不足である。",
			v["shortage.tasks"])
	},
	"1-2/justification": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("現在この業務を担うのは%s名に対し、業務量に見合う人員は%s名と見積もっている。不足分を補うため、現場では月平均%s時間の残業が常態化している。",
			v["shortage.current_workers"], v["shortage.desired_workers"],
			v["shortage.overtime_hours"])
	},
	"1-2/illustration": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("中でも負担が大きいのは%sであり、1件あたり%s時間を要している。作業は熟練者の経験に依存しており、担当者を容易に増やせない。",
			v["shortage.tasks"], v["saving.current_hours"])
	},
	"1-2/restatement": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("このまま人員不足と長時間労働を放置すれば、受注対応力の低下と人材流出を招きかねず、%sの省力化が急務である。",
			v["shortage.tasks"])
	},

	"1-3/assertion": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("上記の課題を解決するため、当社は%sの導入を決断した。目的は%sの作業時間を削減し、過重労働を解消することにある。",
			v["equipment.name"], v["shortage.tasks"])
	},
	"1-3/justification": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("現在1件あたり%s時間を要している作業を、導入後は%s時間まで短縮する計画である。",
			v["saving.current_hours"], v["saving.target_hours"])
	},
	"1-3/illustration": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("短縮率は%s%%に達し、月%s時間に及ぶ残業時間の圧縮に直結する。",
			v["saving.reduction_rate"], v["shortage.overtime_hours"])
	},
	"1-3/restatement": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("創出した時間を付加価値の高い業務に振り向けることで、%sへの投資を確実に成長へ結び付けていく。",
			v["equipment.name"])
	},

	"2-1/assertion": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("本事業では%sを導入し、%sの業務プロセスを導入前後で全面的に見直す。",
			v["equipment.name"], v["shortage.tasks"])
	},
	"2-1/justification": func(f *models.FactModel, v map[string]string) string {
		before := minutesOf(f.Before)
		after := minutesOf(f.After)
		saved := before - after
		pct := 0
		if before > 0 {
			pct = saved * 100 / before
		}
		return fmt.Sprintf("導入前の工程は1サイクルあたり合計%s分を要しているが、導入後は合計%s分まで短縮され、%d分（削減率%d%%）の省力化となる。",
			v["process.before_total_minutes"], v["process.after_total_minutes"], saved, pct)
	},
	"2-1/illustration": func(f *models.FactModel, v map[string]string) string {
		var b strings.Builder
		b.WriteString("工程別では次の変化が生じる。")
		for i, step := range f.Before {
			if i < len(f.After) {
				b.WriteString(stepSentence(step, f.After[i]))
			}
		}
		fmt.Fprintf(&b, "%sは%sを備えており、これらの工程転換を支える。",
			v["equipment.name"], v["equipment.features"])
		return b.String()
	},
	"2-1/restatement": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("この見直しにより1日あたり%s時間を削減し、従業員を判断の要る業務へ集中させる。",
			v["saving.reduction_hours"])
	},

	"2-2/assertion": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("本事業の効果として、1日あたり%s時間の業務時間を新たに創出する。",
			v["saving.reduction_hours"])
	},
	"2-2/justification": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("月%s日の稼働を前提とすると月間約%s時間に相当し、時給%s円で換算すれば年間約%s円の人件費相当額となる。",
			v["params.working_days"], monthlyHours(f), v["params.hourly_wage"],
			models.FormatYen(annualSaving(f)))
	},
	"2-2/illustration": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("年間約%s円という効果は残業割増賃金の抑制としても働く。手作業の工程が減ることでミスの発生余地が狭まり、品質も安定する。採用難の環境下では、労働環境の改善そのものが定着率を高める要因となる。",
			models.FormatYen(annualSaving(f)))
	},
	"2-2/restatement": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("月%s時間の残業を圧縮しつつ、創出した時間を新規顧客への対応に充てることで、売上と利益率の双方を引き上げていく。",
			v["shortage.overtime_hours"])
	},

	"3-1/assertion": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("本事業を通じて、付加価値額を毎年%s倍（年率+%s%%）に引き上げることを目標とする。",
			v["params.growth_rate"], growthPct(f.Params.GrowthRate))
	},
	"3-1/justification": func(f *models.FactModel, v map[string]string) string {
		base, _ := f.AddedValue()
		year5 := int64(float64(base) * math.Pow(f.Params.GrowthRate, 5))
		return fmt.Sprintf("直近期の付加価値額（営業利益・人件費・減価償却費の合計）は%s円である。これを基準とすると、5年後には約%s円への拡大を見込む。",
			v["company.added_value.latest"], models.FormatYen(year5))
	},
	"3-1/illustration": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("原資は省力化効果そのものである。1日%s時間×月%s日の削減を時給%s円で評価すると年間約%s円に相当し、成長率%sの計画を下支えする。",
			v["saving.reduction_hours"], v["params.working_days"], v["params.hourly_wage"],
			models.FormatYen(annualSaving(f)), v["params.growth_rate"])
	},
	"3-1/restatement": func(f *models.FactModel, v map[string]string) string {
		return fmt.Sprintf("投資額%s円は省力化効果と増収により回収し、1人当たり給与支給総額を年平均%s%%以上引き上げるとともに、%sの地域別最低賃金を上回る事業場内最低賃金を維持する。",
			v["funding.total_investment"], growthPct(f.Params.SalaryGrowthRate),
			v["company.prefecture"])
	},
}

func stepSentence(before, after models.WorkProcess) string {
	if before.Minutes == after.Minutes {
		return fmt.Sprintf("「%s」工程は%d分のまま維持する。", before.Name, before.Minutes)
	}
	return fmt.Sprintf("「%s」工程は%sを%sに置き換え、%d分から%d分へ短縮する。",
		before.Name, before.Description, after.Description, before.Minutes, after.Minutes)
}

func minutesOf(steps []models.WorkProcess) int {
	total := 0
	for _, s := range steps {
		total += s.Minutes
	}
	return total
}

func monthlyHours(f *models.FactModel) string {
	v := f.Saving.ReductionHours * float64(f.Params.WorkingDaysPerMonth)
	return models.FormatRate(math.Round(v*10) / 10)
}

func annualSaving(f *models.FactModel) int64 {
	return int64(f.Saving.ReductionHours * float64(f.Params.WorkingDaysPerMonth) * 12 * float64(f.Params.HourlyWage))
}

// growthPct renders a growth multiplier as a percentage, 1.15 -> "15".
func growthPct(rate float64) string {
	return models.FormatRate(math.Round((rate-1)*1000) / 10)
}
