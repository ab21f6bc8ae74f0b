package template

import (
	"strings"

	"github.com/shota9616/planforge/internal/models"
)

// industryProcess pairs the before/after step tables for one industry group.
type industryProcess struct {
	keywords []string
	jobRatio float64 // default effective job-openings ratio for the industry
	before   []models.WorkProcess
	after    []models.WorkProcess
}

var industryProcesses = []industryProcess{
	{
		keywords: []string{"建設", "建築"},
		jobRatio: 5.3,
		before: []models.WorkProcess{
			{Name: "顧客打合せ", Minutes: 60, Description: "要件ヒアリング"},
			{Name: "図面作成", Minutes: 120, Description: "CAD設計"},
			{Name: "数量拾い出し", Minutes: 90, Description: "手作業計算"},
			{Name: "単価確認", Minutes: 120, Description: "見積依頼"},
			{Name: "見積書作成", Minutes: 60, Description: "書類作成"},
		},
		after: []models.WorkProcess{
			{Name: "顧客打合せ", Minutes: 60, Description: "要件ヒアリング"},
			{Name: "図面作成", Minutes: 120, Description: "CAD設計"},
			{Name: "数量拾い出し", Minutes: 10, Description: "自動計算"},
			{Name: "単価確認", Minutes: 15, Description: "単価マッチング"},
			{Name: "見積書作成", Minutes: 10, Description: "自動生成"},
		},
	},
	{
		keywords: []string{"製造"},
		jobRatio: 1.8,
		before: []models.WorkProcess{
			{Name: "受注処理", Minutes: 30, Description: "注文確認・伝票起票"},
			{Name: "生産計画", Minutes: 45, Description: "手動スケジューリング"},
			{Name: "部材手配", Minutes: 40, Description: "在庫確認・発注"},
			{Name: "検品", Minutes: 45, Description: "目視確認"},
			{Name: "出荷準備", Minutes: 30, Description: "梱包・伝票作成"},
		},
		after: []models.WorkProcess{
			{Name: "受注処理", Minutes: 10, Description: "自動取り込み"},
			{Name: "生産計画", Minutes: 10, Description: "計画自動最適化"},
			{Name: "部材手配", Minutes: 10, Description: "自動発注"},
			{Name: "検品", Minutes: 15, Description: "画像検査"},
			{Name: "出荷準備", Minutes: 15, Description: "自動梱包"},
		},
	},
	{
		keywords: []string{"IT", "情報"},
		jobRatio: 1.7,
		before: []models.WorkProcess{
			{Name: "要件定義", Minutes: 60, Description: "顧客ヒアリング"},
			{Name: "設計", Minutes: 90, Description: "手動設計書作成"},
			{Name: "実装", Minutes: 120, Description: "手動開発"},
			{Name: "テスト", Minutes: 60, Description: "手動テスト"},
			{Name: "ドキュメント作成", Minutes: 45, Description: "手動作成"},
		},
		after: []models.WorkProcess{
			{Name: "要件定義", Minutes: 60, Description: "顧客ヒアリング"},
			{Name: "設計", Minutes: 30, Description: "支援ツール設計"},
			{Name: "実装", Minutes: 40, Description: "支援ツール開発"},
			{Name: "テスト", Minutes: 15, Description: "自動テスト"},
			{Name: "ドキュメント作成", Minutes: 10, Description: "自動生成"},
		},
	},
	{
		keywords: []string{"飲食"},
		jobRatio: 3.0,
		before: []models.WorkProcess{
			{Name: "食材発注", Minutes: 30, Description: "在庫確認・手動発注"},
			{Name: "注文受付", Minutes: 20, Description: "口頭・手書き"},
			{Name: "調理", Minutes: 45, Description: "手作業調理"},
			{Name: "会計", Minutes: 15, Description: "手動レジ"},
			{Name: "在庫管理", Minutes: 30, Description: "手動棚卸し"},
		},
		after: []models.WorkProcess{
			{Name: "食材発注", Minutes: 5, Description: "需要予測発注"},
			{Name: "注文受付", Minutes: 5, Description: "タブレット注文"},
			{Name: "調理", Minutes: 30, Description: "調理支援機器"},
			{Name: "会計", Minutes: 5, Description: "自動精算"},
			{Name: "在庫管理", Minutes: 5, Description: "自動管理"},
		},
	},
	{
		keywords: []string{"サービス", "介護"},
		jobRatio: 3.6,
		before: []models.WorkProcess{
			{Name: "予約管理", Minutes: 30, Description: "手動台帳管理"},
			{Name: "顧客対応", Minutes: 45, Description: "電話・来客対応"},
			{Name: "書類作成", Minutes: 40, Description: "手動作成"},
			{Name: "報告書作成", Minutes: 30, Description: "手書き"},
			{Name: "請求処理", Minutes: 25, Description: "手動計算"},
		},
		after: []models.WorkProcess{
			{Name: "予約管理", Minutes: 5, Description: "オンライン自動管理"},
			{Name: "顧客対応", Minutes: 20, Description: "自動応答併用"},
			{Name: "書類作成", Minutes: 10, Description: "自動生成"},
			{Name: "報告書作成", Minutes: 5, Description: "自動生成"},
			{Name: "請求処理", Minutes: 5, Description: "自動計算"},
		},
	},
	{
		keywords: []string{"小売"},
		jobRatio: 2.1,
		before: []models.WorkProcess{
			{Name: "発注業務", Minutes: 30, Description: "手動発注・在庫確認"},
			{Name: "検品", Minutes: 25, Description: "目視確認"},
			{Name: "陳列", Minutes: 30, Description: "手作業"},
			{Name: "会計", Minutes: 20, Description: "手動レジ"},
			{Name: "棚卸し", Minutes: 45, Description: "手動カウント"},
		},
		after: []models.WorkProcess{
			{Name: "発注業務", Minutes: 5, Description: "需要予測発注"},
			{Name: "検品", Minutes: 10, Description: "バーコード検品"},
			{Name: "陳列", Minutes: 20, Description: "配置提案"},
			{Name: "会計", Minutes: 5, Description: "セルフレジ"},
			{Name: "棚卸し", Minutes: 10, Description: "自動在庫管理"},
		},
	},
}

// genericProcess is the fallback when no industry keyword matches.
var genericProcess = industryProcess{
	jobRatio: 1.3,
	before: []models.WorkProcess{
		{Name: "準備", Minutes: 20, Description: "段取り・セットアップ"},
		{Name: "加工", Minutes: 60, Description: "手作業"},
		{Name: "検品", Minutes: 45, Description: "目視確認"},
		{Name: "仕上げ", Minutes: 30, Description: "手動調整"},
		{Name: "梱包", Minutes: 25, Description: "出荷準備"},
	},
	after: []models.WorkProcess{
		{Name: "準備", Minutes: 15, Description: "自動セット"},
		{Name: "加工", Minutes: 30, Description: "自動化"},
		{Name: "検品", Minutes: 15, Description: "画像検査"},
		{Name: "仕上げ", Minutes: 20, Description: "機器支援"},
		{Name: "梱包", Minutes: 20, Description: "半自動梱包"},
	},
}

func forIndustry(industry string) industryProcess {
	for _, p := range industryProcesses {
		for _, kw := range p.keywords {
			if strings.Contains(industry, kw) {
				return p
			}
		}
	}
	return genericProcess
}

// ProcessesFor returns the before/after step tables for an industry tag,
// falling back to the generic tables when no keyword matches. Callers get
// fresh copies; the tables themselves are never mutated.
func ProcessesFor(industry string) (before, after []models.WorkProcess) {
	p := forIndustry(industry)
	before = make([]models.WorkProcess, len(p.before))
	after = make([]models.WorkProcess, len(p.after))
	copy(before, p.before)
	copy(after, p.after)
	return before, after
}

// JobRatioFor returns the default effective job-openings ratio used when the
// hearing data does not supply one.
func JobRatioFor(industry string) float64 {
	return forIndustry(industry).jobRatio
}
