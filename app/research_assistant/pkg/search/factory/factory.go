// Package factory 按配置选择搜索提供方
package factory

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/search"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/searxng"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/tavily"
)

// Provider 名称
const (
	ProviderTavily  = "tavily"
	ProviderSearXNG = "searxng"
)

// NewSearcher 根据 cfg.Search.Provider 创建搜索实例，为空时使用 tavily。
// httpClient 可为 nil。
func NewSearcher(cfg *config.Config, httpClient *http.Client) (search.Searcher, error) {
	sc := cfg.Search
	provider := strings.ToLower(strings.TrimSpace(sc.Provider))

	switch provider {
	case "", ProviderTavily:
		if sc.Tavily.APIKey == "" {
			return nil, apierr.Validation("new searcher", fmt.Errorf("tavily api key is missing"))
		}
		return tavily.NewClient(sc.Tavily.APIKey,
			tavily.WithBaseURL(sc.Tavily.BaseURL),
			tavily.WithHTTPClient(httpClient),
		), nil
	case ProviderSearXNG:
		if sc.SearXNG.BaseURL == "" {
			return nil, apierr.Validation("new searcher", fmt.Errorf("searxng base url is missing"))
		}
		return searxng.NewClient(sc.SearXNG.BaseURL,
			searxng.WithTimeout(sc.SearXNG.Timeout),
			searxng.WithHTTPClient(httpClient),
			searxng.WithCategories(sc.SearXNG.Categories),
			searxng.WithLanguage(sc.SearXNG.Language),
		), nil
	}
	return nil, apierr.Validation("new searcher", fmt.Errorf("unknown search provider %q", sc.Provider))
}
