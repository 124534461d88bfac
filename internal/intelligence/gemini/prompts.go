package gemini

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/turtacn/LawLens/pkg/errors"
)

// Temperatures per task.
const (
	analyzerTemperature  float32 = 0
	advisorTemperature   float32 = 0.1
	complaintTemperature float32 = 0.2

	referenceSnippetRunes = 100
)

// Headings for the precedent section of the advice.
const (
	TitleConviction = "🏆 유사 승소 사례 (유죄 판례)"
	TitleWarning    = "⚠️ 유사 판례 (무죄 사례 주의)"
)

const (
	guideConviction = "이 판례는 유죄가 선고된 사례입니다. 승소(유죄) 요인을 중점적으로 분석하세요."
	guideWarning    = "🚨 [중요 경고] 검색 결과, 유사한 유죄 판례가 없습니다. 이 사례는 '무죄(혐의 없음)' 판결이 난 사례입니다. " +
		"사용자에게 '유사한 승소 사례를 찾지 못했음'을 명확히 알리고, 이 사건은 **어떤 이유 때문에 처벌받지 않았는지(패소 요인)**를 분석하여 사용자에게 주의를 주세요."
)

const analyzerSystem = "너는 사이버 범죄 전문 법률 분석가야. 반드시 JSON만 출력해."

const analyzerTemplate = `아래 텍스트를 분석해서 JSON 형식으로 출력해.

[분석할 텍스트]
{{.Text}}

[분석 지침]
1. 대상 특정성 (target_type): 개인(닉네임), 개인(실명/지인), 집단, 불특정 중 선택
2. 공연성 (space): 1:1대화, 소수단톡방, 다수단톡방, 전체채팅/게시판 중 선택
3. 표현 유형 (expression): 단순욕설, 인격비하, 성적표현, 패드립, 협박, 사실적시 중 선택 (복수 가능)
4. 목적성 (sexual_intent): 없음, 분노표출, 성적흥분/만족, 조롱 중 선택 (통매음 판단 핵심)
5. 범죄 유형 후보 (candidate_crime): 모욕, 통신매체이용음란(통매음), 명예훼손, 협박, 기타 중 선택
6. 위험도 (risk_level): 높음, 중간, 낮음, 없음
7. STT/OCR 오타 보정: 발음이 유사한 오타가 있어도 문맥을 보고 원래 의도를 파악하여 판단하세요.

[출력 형식]
{
  "features": {
    "target_type": "...",
    "space": "...",
    "expression": ["..."],
    "sexual_intent": "..."
  },
  "candidate_crime": "...",
  "risk_level": "...",
  "reason": "간단한 분석 이유 한 줄"
}`

const advisorSystem = "당신은 대한민국 사이버 범죄 전문 AI 변호사 'LawLens'입니다."

const advisorTemplate = `[분석 데이터]
[📌 메인 분석 대상 판례]
- 판결 결과: {{.Main.Case.Metadata.JudgmentText}} (매우 중요!)
- 사건번호: {{caseID .Main}}
- 내용: {{.Main.Case.Content}}
- 유사도: {{percent .Main.Score}}

[📑 기타 참고 판례]
{{range $i, $c := .Others}}{{inc $i}}. {{caseID $c}} ({{$c.Case.Metadata.JudgmentText}}): {{snippet $c.Case.Content}}...
{{end}}
[사용자 상황]
{{.Situation}}
{{with .Features}}{{if .CandidateCrime}}
[사전 분석]
- 범죄 유형 후보: {{.CandidateCrime}}
- 위험도: {{.RiskLevel}}
- 이유: {{.Reason}}
{{end}}{{end}}
**[AI 분석 가이드]**
1. 현재 분석 모드: **{{.Title}}**
2. 지침: {{.Guide}}
3. 사용자 상황이 '[분석 모드: 기사/커뮤니티 악플]'이면 작성자별로 나누어 분석하세요.

---
[작성 양식]

### 1. 📝 AI 사건 정밀 분석
* **사건 개요:** (전체적인 상황 요약)
* **핵심 쟁점:** (모욕성, 공연성, 특정성 충족 여부)
{{if .Comments}}
| 작성자 | 발언 요약 | 요건 충족(모욕/특정/공연) | 처벌 확률 |
| :--- | :--- | :--- | :--- |

* **[작성자 ID] 상세 검토:** - 판단: (처벌 확률이 높거나 낮은 구체적인 법적 이유)
{{end}}
### 2. {{.Title}}

| 구분 | 내용 |
| :--- | :--- |
| **유사도** | **약 {{percent .Main.Score}}** |
| **사건번호** | {{caseID .Main}} |
| **판결 결과** | **{{judgment .Main}}** |
| **사실관계** | (판례 내용 요약) |
| **승소(유죄) 요인** | (유죄가 인정된 결정적인 이유 1~2가지 / 무죄라면 무죄 이유) |
| **내 사건과의 공통점** | (사용자의 상황과 이 판례가 유사한 점) |
| **법적 판단 근거** | (법원의 법률적 논리 및 적용 법조항) |
| **내 사건 조언** | (이 판례를 통해 본 내 사건의 유불리 및 대응 전략) |

### 3. 📑 기타 유사 판례 요약
(참고 판례 {{len .Others}}건 요약: 사건명/번호 - 결과 / 핵심 이유)

### 4. 📉 예상 처벌 및 승소 확률
| 구분 | 예측 결과 |
| :--- | :--- |
| **승소 확률** | **약 {{percent .Main.Score}}** (유사 판례 기반) |
| **예상 벌금** | (유죄 판례가 없으면 '예측 불가' 또는 '처벌 가능성 낮음'으로 기재) |
| **처벌 수위** | (예상되는 처분) |

### 5. 🏛️ 고소 절차 안내
* **표준 절차:** 경찰서 접수(고소장) -> 피의자 특정 및 소환 조사 -> 검찰 송치 -> 기소 -> 법원 판결
* **예상 소요 시간:** (통상적인 사이버 모욕죄 사건 소요 시간)
* **준비물:** 신분증, 증거 자료(캡처, 녹음 등), 고소장

---
**작성 지침:** 만약 '무죄 사례 주의' 모드라면 승소 확률이 낮을 수 있음을 솔직하게 말해주세요. 표 형식을 반드시 유지하세요.`

const complaintTemplate = `[사용자 상황]
{{.Situation}}
{{with .Main}}
[참고 판례]
{{caseID .}} ({{judgment .}})
{{end}}
위 내용을 바탕으로 경찰청 표준 고소장 내용을 작성해줘.`

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"inc":      func(i int) int { return i + 1 },
	"percent":  func(score float64) string { return fmt.Sprintf("%.1f%%", score*100) },
	"snippet":  func(s string) string { return truncateRunes(s, referenceSnippetRunes) },
	"caseID":   caseIDOf,
	"judgment": judgmentOf,
}).Parse(`{{define "analyzer"}}` + analyzerTemplate + `{{end}}` +
	`{{define "advisor"}}` + advisorTemplate + `{{end}}` +
	`{{define "complaint"}}` + complaintTemplate + `{{end}}`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to render prompt").WithDetail(name)
	}
	return buf.String(), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
