// Package urlnorm 把用户或搜索结果给出的 URL 规范化成统一形式，再交给抽取 API
package urlnorm

import (
	"errors"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
)

var trackingQueryParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"utm_id":       {},
	"gclid":        {},
	"dclid":        {},
	"fbclid":       {},
	"msclkid":      {},
	"igshid":       {},
}

// Normalize 返回规范化后的 URL。
// example.com、http://example.com、https://www.example.com 都得到 https://example.com/。
// 规则: 缺省 scheme 补 https，http 升级为 https，小写 host，去掉 www. 前缀和默认端口，
// 去掉 fragment 与跟踪参数，剩余查询参数排序。
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apierr.Validation("normalize url", errors.New("empty url"))
	}

	u, err := parse(raw)
	if err != nil {
		return "", apierr.Validation("normalize url", err)
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "", "http", "https":
		u.Scheme = "https"
	default:
		return "", apierr.Validation("normalize url", errors.New("unsupported scheme: "+scheme))
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || strings.ContainsAny(host, " \t") {
		return "", apierr.Validation("normalize url", errors.New("url missing host: "+raw))
	}
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host = host + ":" + port
	}
	u.Host = host
	u.User = nil

	if u.Path == "" {
		u.Path = "/"
	}
	clean := path.Clean(u.Path)
	if clean == "." {
		clean = "/"
	}
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	if clean != "/" && strings.HasSuffix(u.Path, "/") {
		clean += "/"
	}
	u.Path = clean
	u.RawPath = ""
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = cleanQuery(u.Query())

	return u.String(), nil
}

// Equal 判断两个 URL 规范化后是否相同；任一非法时返回 false
func Equal(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return na == nb
}

func parse(raw string) (*url.URL, error) {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	// "example.com/path" 会被解析成只有 Path 的 URL
	if u.Host == "" && (u.Scheme == "" || u.Opaque != "") {
		return url.Parse("https://" + raw)
	}
	return u, nil
}

func cleanQuery(query url.Values) string {
	for key := range query {
		if _, drop := trackingQueryParams[strings.ToLower(key)]; drop {
			query.Del(key)
		}
	}
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		values := append([]string(nil), query[key]...)
		sort.Strings(values)
		for _, value := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			if value != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(value))
			}
		}
	}
	return b.String()
}
