package scrape

import (
	"net/http"
	"strings"
)

// Block names the reason a fetched page is not the real article.
type Block string

const (
	BlockNone       Block = ""
	BlockCloudflare Block = "cloudflare"
	BlockCaptcha    Block = "captcha"
	BlockDenied     Block = "access_denied"
	BlockJSShell    Block = "js_shell"
)

// shortPage is the size below which interstitial markers are trusted.
const shortPage = 2000

var challengeMarkers = []struct {
	marker string
	block  Block
}{
	{"checking your browser", BlockCloudflare},
	{"cf-browser-verification", BlockCloudflare},
	{"just a moment...", BlockCloudflare},
	{"attention required! | cloudflare", BlockCloudflare},
	{"recaptcha", BlockCaptcha},
	{"hcaptcha", BlockCaptcha},
	{"captcha", BlockCaptcha},
	{"자동입력 방지", BlockCaptcha},
	{"보안문자", BlockCaptcha},
	{"로봇이 아닙니다", BlockCaptcha},
	{"access denied", BlockDenied},
	{"403 forbidden", BlockDenied},
	{"접근이 차단", BlockDenied},
	{"please enable cookies", BlockJSShell},
	{"enable javascript", BlockJSShell},
}

// challengeText returns the block a challenge marker in text indicates.
// Markers only count on short pages; a long article that mentions
// "captcha" is still an article.
func challengeText(text string) Block {
	if len(text) >= shortPage {
		return BlockNone
	}
	lower := strings.ToLower(text)
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m.marker) {
			return m.block
		}
	}
	return BlockNone
}

// pageBlock classifies an HTTP response from the local fetcher.
func pageBlock(status int, header http.Header, body []byte) Block {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if header.Get("Cf-Ray") != "" || strings.EqualFold(header.Get("Server"), "cloudflare") {
			return BlockCloudflare
		}
	}
	if b := challengeText(string(body)); b != BlockNone {
		return b
	}
	if len(body) < shortPage {
		lower := strings.ToLower(string(body))
		if strings.Contains(lower, `http-equiv="refresh"`) ||
			(strings.Contains(lower, "<noscript") && !strings.Contains(lower, "<p")) {
			return BlockJSShell
		}
	}
	return BlockNone
}
