package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	LocaleZH = "zh-CN"
	LocaleEN = "en-US"
)

const localeQueryKey = "lang"

// ResolveLocale 按 query 参数与 Accept-Language 解析语言，默认中文
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return LocaleZH
	}
	if locale := normalizeLocale(c.Query(localeQueryKey)); locale != "" {
		return locale
	}
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if locale := normalizeLocale(tag); locale != "" {
			return locale
		}
	}
	return LocaleZH
}

func normalizeLocale(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch {
	case tag == "":
		return ""
	case strings.HasPrefix(tag, "zh"):
		return LocaleZH
	case strings.HasPrefix(tag, "en"):
		return LocaleEN
	default:
		return ""
	}
}

// T 翻译消息 key，缺失时回退到中文，再回退到 key 本身
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[LocaleZH][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译带参数的消息
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
