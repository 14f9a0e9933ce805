package pipeline

import (
	"fmt"
	"strings"
)

func domainPrompt(company string, snippets []string) string {
	return fmt.Sprintf(`다음은 '%s'에 대한 검색 결과에서 추출된 텍스트입니다.
이 정보를 참고하여 '%s'의 핵심 도메인을 한두 단어로 태깅해 주세요.
텍스트:
%s`, company, company, strings.Join(snippets, "\n\n"))
}

func competitorNamesPrompt(company, text string, limit int) string {
	return fmt.Sprintf(`다음 텍스트는 여러 회사의 정보가 혼합되어 있습니다.

'%s'에 대한 '유사 기업은 ~' 문장 하나만 정확히 찾아주세요.
다른 회사의 유사 기업 문장은 무시하세요.

그 문장에서 언급된 기업 이름만 최대 %d개 추출해 주세요.

형식: 기업명1, 기업명2, 기업명3

텍스트:
%s`, company, limit, text)
}

func profilePrompt(company string, snippets []string) string {
	return fmt.Sprintf(`아래는 '%s'에 대한 정보입니다.

이 회사의 기술, 전략, 시장 포지션을 요약해 주세요.

텍스트:
%s

응답 형식:
- 회사명: %s
- 기술: ...
- 전략: ...
- 시장: ...`, company, strings.Join(snippets, "\n"), company)
}

func competitorReportPrompt(company string, profiles []string) string {
	return fmt.Sprintf(`'%s'는 AI 스타트업입니다.

아래는 주요 경쟁사들의 프로필입니다:

%s

이 정보를 바탕으로 '%s'의 경쟁사 분석 보고서를 작성해 주세요.

[경쟁사 분석 - %s]
1. 주요 경쟁사 (간단 설명 포함)
2. 기술/전략/시장 비교 (표)
3. 각 경쟁사의 강점/약점
4. 진입장벽
5. 향후 경쟁 구도 예측

결론: 투자 관점에서 요약 평가`, company, strings.Join(profiles, "\n\n"), company, company)
}

func investmentPrompt(tech, competitor, market string) string {
	return fmt.Sprintf(`다음은 특정 스타트업에 대한 3가지 분석 보고서입니다.

[기술 분석 보고서]
%s

[경쟁사 비교 보고서]
%s

[시장 분석 보고서]
%s

위의 정보를 바탕으로, 아래 3가지 항목을 평가해 주세요:
회사명: (스타트업의 회사명)

1. **시장성 평가**
   - 점수 (0~10점)
   - 설명 (시장 성장 가능성, 진입장벽, 수요 등 포함)

2. **제품 기술력 평가**
   - 점수 (0~10점)
   - 설명 (핵심 기술, 독창성, 확장성 등 포함)

3. **경쟁 우위 평가**
   - 점수 (0~10점)
   - 설명 (경쟁사 대비 차별성, 지속 가능성 등 포함)

---

4. 최종 평가

- 최종 점수 = 시장성*0.5 + 기술력*0.3 + 경쟁우위*0.2 (소수점 둘째 자리까지)
- 총평: 전반적인 투자 판단과 함께, 고려할 만한 리스크 요인 등을 간단히 요약`, tech, competitor, market)
}

func gatePrompt(summary string) string {
	return fmt.Sprintf(`당신은 벤처 캐피탈의 투자 심사관으로, 아래 투자 분석 보고서가 출력 형식과 품질 기준을 잘 따르고 있는지 평가해야 합니다.

투자 분석 보고서:

------------------------
%s
------------------------

다음 기준에 따라 판단하세요:

1. **시장성 평가, 제품 기술력 평가, 경쟁 우위 평가 항목의 점수가 0~10 사이의 정수인지**
2. **시장성 평가, 제품 기술력 평가, 경쟁 우위 평가 항목의 설명이 해당 점수에 대한 타당한 설명으로 충분한지**
3. **최종 평가의 점수가 0~10 사이의 소수(float)인지**
4. **최종평가가 종합적인 평가로서 자연스럽고 논리적인지**

판단 결과는 아래 기준에 따라 선택하세요:

- **PASS**: 모든 항목의 형식과 설명이 정확하며 논리적으로 납득 가능함
- **RETRY**: 일부 설명이 부족하거나 점수가 애매하지만 수정 가능함
- **FAIL**: 형식 오류나 설명 누락 등으로 활용 불가능함

단 한 단어만 출력하세요: `+"`PASS`, `RETRY`, `FAIL`", summary)
}

const compactSystem = "당신은 벤처캐피탈의 투자 분석 보고서 작성 전문가입니다."

func compactPrompt(report string) string {
	return fmt.Sprintf(`아래는 AI 분석 에이전트들이 생성한 평가 결과를 바탕으로 구성된 텍스트입니다.
이 텍스트를 기반으로 다음 기준을 모두 충족하는 **기업별 종합 보고서**를 작성해주세요:

1. **해당 기업에 대해 점수(시장성, 기술력, 경쟁력, 최종점수)와 설명이 3줄 이상 명확하게 정리**되어야 합니다.
2. **최종점수를 명시**해야 합니다.
3. **해당 기업 투자 추천 여부 및 이유가 시장성, 기술력, 경쟁력의 요소를 바탕으로 명확하고 자세하게 작성**되어야 합니다.
4. 모든 내용은 벤처캐피탈 보고서에 적합하도록 **논리적이고 명료한 문단 구성**으로 작성해주세요.

------------------------
%s
------------------------`, report)
}

func comparisonPrompt(compacted string) string {
	return fmt.Sprintf(`아래는 AI 분석 에이전트들이 생성한 평가 결과를 바탕으로 구성된 텍스트입니다.
이 텍스트를 기반으로 다음 기준을 모두 충족하는 **총평**을 작성해주세요:

1. 최종점수 기준으로 기업들을 투자 우선순위에 따라 정렬하세요.
2. 투자하기 좋은 기업을 선정하세요.
3. 각 기업을 서로 비교 분석한 내용을 4문장 이상 작성하세요.
4. 전체 산업/기술 트렌드, 공통 리스크 요인, 향후 투자 전략을 포함하세요.

------------------------
%s
------------------------`, compacted)
}
