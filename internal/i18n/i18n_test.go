package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query  string
		header string
		want   string
	}{
		{"", "", LocaleZH},
		{"", "en-GB,en;q=0.8", LocaleEN},
		{"", "fr-FR, zh-TW;q=0.5", LocaleZH},
		{"en", "zh-CN", LocaleEN},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		target := "/ping"
		if tc.query != "" {
			target += "?lang=" + tc.query
		}
		c.Request = httptest.NewRequest(http.MethodGet, target, nil)
		if tc.header != "" {
			c.Request.Header.Set("Accept-Language", tc.header)
		}
		if got := ResolveLocale(c); got != tc.want {
			t.Fatalf("query=%q header=%q want %s got %s", tc.query, tc.header, tc.want, got)
		}
	}
}

func TestTranslateFallbacks(t *testing.T) {
	if got := T(LocaleEN, "error.already_awarded"); got != "Shipment already awarded to another bid" {
		t.Fatalf("unexpected english message: %s", got)
	}
	if got := T("ja-JP", "error.auction_closed"); got != "竞价已截止" {
		t.Fatalf("unknown locale should fall back to zh, got %s", got)
	}
	if got := T(LocaleEN, "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("missing key should return key, got %s", got)
	}
	if got := Sprintf(LocaleEN, "error.rate_limited", 30); got != "Too many requests, retry in 30 seconds" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}
