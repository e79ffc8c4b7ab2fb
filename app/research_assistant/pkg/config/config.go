package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体，一次运行持有一份，不做全局单例
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Extract     ExtractConfig     `yaml:"extract"`
	Chunk       ChunkConfig       `yaml:"chunk"`
	Retry       RetryConfig       `yaml:"retry"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
	Log         LogConfig         `yaml:"log"`
	DB          DBConfig          `yaml:"db"`
	Server      ServerConfig      `yaml:"server"`
}

// LLMConfig LLM 相关配置 (OpenAI 兼容接口)
type LLMConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider          string        `yaml:"provider"` // tavily 或 searxng
	Depth             string        `yaml:"depth"`    // basic 或 advanced
	MaxResults        int           `yaml:"max_results"`
	IncludeRawContent bool          `yaml:"include_raw_content"`
	Tavily            TavilyConfig  `yaml:"tavily"`
	SearXNG           SearXNGConfig `yaml:"searxng"`
}

// TavilyConfig Tavily 配置，搜索与抽取共用
type TavilyConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Categories string        `yaml:"categories"`
	Language   string        `yaml:"language"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ExtractConfig 正文抽取配置
type ExtractConfig struct {
	Format         string        `yaml:"format"`          // 首选格式 markdown
	FallbackFormat string        `yaml:"fallback_format"` // 降级格式 text
	Depth          string        `yaml:"depth"`           // basic 或 advanced
	Readability    bool          `yaml:"readability"`     // 抽取 API 失败后是否本地抓取
	MinContent     int           `yaml:"min_content"`     // 搜索原文长于该值时直接使用，不再调用抽取 API
	Timeout        time.Duration `yaml:"timeout"`
}

// ChunkConfig token 预算
type ChunkConfig struct {
	MaxTokens        int `yaml:"max_tokens"`
	ComposeMaxTokens int `yaml:"compose_max_tokens"`
}

// RetryConfig 重试策略
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// ConcurrencyConfig 调用 LLM 的限流配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// OutputConfig 报告输出目录
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DBConfig 运行记录数据库，Host 为空时不启用
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// ServerConfig Web 界面配置
type ServerConfig struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

// Error 配置缺失或非法
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 2 * time.Minute,
		},
		Search: SearchConfig{
			Provider:   "tavily",
			Depth:      "advanced",
			MaxResults: 10,
		},
		Extract: ExtractConfig{
			Format:         "markdown",
			FallbackFormat: "text",
			Depth:          "basic",
			Readability:    true,
			MinContent:     2000,
			Timeout:        30 * time.Second,
		},
		Chunk: ChunkConfig{
			MaxTokens:        8000,
			ComposeMaxTokens: 60000,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     10 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			QPS: 1,
			RPM: 60,
		},
		Output: OutputConfig{Dir: "reports"},
		Log:    LogConfig{Level: "info"},
		DB:     DBConfig{Port: 5432},
		Server: ServerConfig{Addr: ":8000", Timeout: 10 * time.Minute},
	}
}

// LoadConfig 从指定路径加载配置，在默认值之上覆盖
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Load 加载配置文件 (不存在时使用默认值)、.env 与环境变量，并校验必填项
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := LoadConfig(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	// .env 不存在不算错误
	_ = godotenv.Load()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv 用环境变量覆盖配置
func (c *Config) ApplyEnv() {
	setString(&c.Search.Tavily.APIKey, "TAVILY_API_KEY")
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.Search.Provider, "SEARCH_PROVIDER")
	setString(&c.Search.SearXNG.BaseURL, "SEARXNG_BASE_URL")
	setString(&c.Output.Dir, "REPORTS_DIR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Server.Addr, "SERVER_ADDR")
	setString(&c.DB.Host, "DB_HOST")
	setString(&c.DB.User, "DB_USER")
	setString(&c.DB.Password, "DB_PASSWORD")
	setString(&c.DB.Name, "DB_NAME")
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.DB.Port = port
		}
	}
}

// Validate 检查必填项；API Key 缺失在启动时即报错
func (c *Config) Validate() error {
	if c.Search.Tavily.APIKey == "" {
		return &Error{Field: "TAVILY_API_KEY", Message: "tavily api key is required for search and extraction"}
	}
	if c.LLM.APIKey == "" {
		return &Error{Field: "OPENAI_API_KEY", Message: "llm api key is required"}
	}
	if c.LLM.Model == "" {
		return &Error{Field: "llm.model", Message: "model name is required"}
	}
	switch strings.ToLower(c.Search.Provider) {
	case "", "tavily":
	case "searxng":
		if c.Search.SearXNG.BaseURL == "" {
			return &Error{Field: "search.searxng.base_url", Message: "searxng base url is required"}
		}
	default:
		return &Error{Field: "search.provider", Message: "unknown provider " + c.Search.Provider}
	}
	switch c.Search.Depth {
	case "", "basic", "advanced":
	default:
		return &Error{Field: "search.depth", Message: "must be basic or advanced"}
	}
	for field, f := range map[string]string{"extract.format": c.Extract.Format, "extract.fallback_format": c.Extract.FallbackFormat} {
		switch f {
		case "", "markdown", "text":
		default:
			return &Error{Field: field, Message: "must be markdown or text"}
		}
	}
	if c.Chunk.MaxTokens < 0 || c.Chunk.ComposeMaxTokens < 0 {
		return &Error{Field: "chunk", Message: "token budgets must not be negative"}
	}
	if c.Retry.MaxAttempts < 0 {
		return &Error{Field: "retry.max_attempts", Message: "must not be negative"}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
