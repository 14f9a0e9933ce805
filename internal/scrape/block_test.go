package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   Block
	}{
		{"cloudflare ray", 403, http.Header{"Cf-Ray": {"8a1"}}, "", BlockCloudflare},
		{"cloudflare server", 503, http.Header{"Server": {"Cloudflare"}}, "", BlockCloudflare},
		{"cloudflare header on 200", 200, http.Header{"Cf-Ray": {"8a1"}}, "<p>기사 본문</p>", BlockNone},
		{"challenge page", 200, nil, "<title>Just a moment...</title>", BlockCloudflare},
		{"recaptcha", 200, nil, `<div class="g-recaptcha"></div>`, BlockCaptcha},
		{"korean captcha", 200, nil, "<p>자동입력 방지 문자를 입력하세요</p>", BlockCaptcha},
		{"denied", 200, nil, "<h1>Access Denied</h1>", BlockDenied},
		{"meta refresh", 200, nil, `<meta http-equiv="refresh" content="0;url=/m">`, BlockJSShell},
		{"noscript shell", 200, nil, `<div id="root"></div><noscript>JavaScript 필요</noscript>`, BlockJSShell},
		{"article", 200, nil, "<p>업스테이지는 문서 AI 기업이다.</p>", BlockNone},
		{"long article mentioning captcha", 200, nil, "<p>" + strings.Repeat("가", 1000) + " captcha</p>", BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := tt.header
			if h == nil {
				h = http.Header{}
			}
			assert.Equal(t, tt.want, pageBlock(tt.status, h, []byte(tt.body)))
		})
	}
}

func TestChallengeText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, BlockJSShell, challengeText("Please enable JavaScript to continue"))
	assert.Equal(t, BlockNone, challengeText("노타AI는 모델 경량화 기업이다."))
}
