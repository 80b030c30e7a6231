package analysis

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// systemPrompt はAI分析のシステムプロンプト。
// 構造化出力スキーマとあわせてモデルへ送信される。
const systemPrompt = `あなたはキャリアコンサルタントです。ユーザーが記録した業務経験を分析し、
キャリア形成の観点からフィードバックを提供してください。

分析の観点:
- 明確さ: 経験の内容が第三者に伝わる形で記述されているか
- 具体性: 数値や固有の状況など具体的な記述があるか
- 成果インパクト: 成果の大きさと波及効果
- 成長の示唆: この経験から得られた成長が読み取れるか

各セクションにはSTAR（Situation/Task/Action/Result）の分類タグを付け、
改善提案を作成してください。section_idにはプロンプトに記載されたIDを
そのまま使用してください。回答はすべて日本語で記述してください。`

// promptRenderer は経験エントリからユーザープロンプトを組み立てる。
// 入力のHTMLタグはプレーンテキスト化してからモデルへ渡す。
type promptRenderer struct {
	policy *bluemonday.Policy
}

// newPromptRenderer はpromptRendererを生成する。
func newPromptRenderer() *promptRenderer {
	return &promptRenderer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Render は経験エントリの全フィールドと順序付きセクションからプロンプトを組み立てる。
// セクションはposition昇順のまま、モデルが参照できるようIDを明記する。
func (r *promptRenderer) Render(exp *model.Experience) string {
	var b strings.Builder

	b.WriteString("以下の業務経験を分析してください。\n\n")
	fmt.Fprintf(&b, "# タイトル\n%s\n\n", r.clean(exp.Title))
	fmt.Fprintf(&b, "# 概要\n%s\n\n", r.clean(exp.Summary))
	fmt.Fprintf(&b, "# 目標\n%s\n\n", r.clean(exp.Goal))
	fmt.Fprintf(&b, "# 成果\n%s\n\n", r.clean(exp.Achievement))

	if len(exp.Sections) > 0 {
		b.WriteString("# セクション\n")
		for _, section := range exp.Sections {
			fmt.Fprintf(&b, "\n## %s (section_id: %s)\n%s\n",
				r.clean(section.Heading), section.ID, r.clean(section.Content))
		}
	}

	return b.String()
}

// clean はHTMLタグを除去してトリムする。
func (r *promptRenderer) clean(s string) string {
	return strings.TrimSpace(r.policy.Sanitize(s))
}
