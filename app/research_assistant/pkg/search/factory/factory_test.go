package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/searxng"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/tavily"
)

func TestNewSearcher(t *testing.T) {
	cfg := config.Default()
	cfg.Search.Provider = ""
	cfg.Search.Tavily.APIKey = "tvly-test"
	s, err := NewSearcher(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &tavily.Client{}, s)

	cfg.Search.Provider = " SearXNG "
	cfg.Search.SearXNG.BaseURL = "http://localhost:8080"
	s, err = NewSearcher(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &searxng.Client{}, s)
}

func TestNewSearcher_Errors(t *testing.T) {
	tests := map[string]func(*config.Config){
		"missing tavily key":  func(c *config.Config) { c.Search.Provider = ProviderTavily; c.Search.Tavily.APIKey = "" },
		"missing searxng url": func(c *config.Config) { c.Search.Provider = ProviderSearXNG; c.Search.SearXNG.BaseURL = "" },
		"unknown provider":    func(c *config.Config) { c.Search.Provider = "bing" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(cfg)
			_, err := NewSearcher(cfg, nil)
			require.Error(t, err)
			assert.True(t, apierr.Is(err, apierr.KindValidation))
		})
	}
}
