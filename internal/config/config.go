package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Scan       ScanConfig       `yaml:"scan" mapstructure:"scan"`
	GDELT      GDELTConfig      `yaml:"gdelt" mapstructure:"gdelt"`
	GoogleNews GoogleNewsConfig `yaml:"google_news" mapstructure:"google_news"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Permits    PermitsConfig    `yaml:"permits" mapstructure:"permits"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"`
	OpenAIKey      string  `yaml:"openai_key" mapstructure:"openai_key"`
	OpenAIModel    string  `yaml:"openai_model" mapstructure:"openai_model"`
	AnthropicKey   string  `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	AnthropicModel string  `yaml:"anthropic_model" mapstructure:"anthropic_model"`
	MaxTokens      int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature    float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ScanConfig configures the daily national scan.
type ScanConfig struct {
	MaxProspects      int `yaml:"max_prospects" mapstructure:"max_prospects"`
	KeywordFanOut     int `yaml:"keyword_fan_out" mapstructure:"keyword_fan_out"`
	PerKeywordRecords int `yaml:"per_keyword_records" mapstructure:"per_keyword_records"`
	Concurrency       int `yaml:"concurrency" mapstructure:"concurrency"`
	KeywordTTLDays    int `yaml:"keyword_ttl_days" mapstructure:"keyword_ttl_days"`
	MaxKeywords       int `yaml:"max_keywords" mapstructure:"max_keywords"`
}

// GDELTConfig configures the GDELT DOC API client.
type GDELTConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GoogleNewsConfig configures the Google News RSS client.
type GoogleNewsConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GeocodeConfig configures the geocoding cascade.
type GeocodeConfig struct {
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	NominatimURL     string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	NominatimRPS     float64 `yaml:"nominatim_rps" mapstructure:"nominatim_rps"`
	CensusFallback   bool    `yaml:"census_fallback" mapstructure:"census_fallback"`
	CacheTTLHours    int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	BatchConcurrency int     `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
}

// PermitsConfig configures the permit alert feeds.
type PermitsConfig struct {
	MaxPerFeed   int    `yaml:"max_per_feed" mapstructure:"max_per_feed"`
	CountiesFile string `yaml:"counties_file" mapstructure:"counties_file"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADMASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "lead_master.db")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.openai_model", "gpt-4o-mini")
	v.SetDefault("llm.anthropic_model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.max_tokens", 300)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.timeout_secs", 30)
	v.SetDefault("scan.max_prospects", 50)
	v.SetDefault("scan.keyword_fan_out", 10)
	v.SetDefault("scan.per_keyword_records", 5)
	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("scan.keyword_ttl_days", 7)
	v.SetDefault("scan.max_keywords", 60)
	v.SetDefault("gdelt.base_url", "https://api.gdeltproject.org/api/v2/doc/doc")
	v.SetDefault("gdelt.rate_limit", 2.0)
	v.SetDefault("gdelt.timeout_secs", 30)
	v.SetDefault("google_news.base_url", "https://news.google.com/rss/search")
	v.SetDefault("google_news.rate_limit", 2.0)
	v.SetDefault("google_news.timeout_secs", 30)
	v.SetDefault("geocode.user_agent", "lead-master/1.0")
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.nominatim_rps", 1.0) // Nominatim usage policy: 1 req/s
	v.SetDefault("geocode.census_fallback", true)
	v.SetDefault("geocode.cache_ttl_hours", 720)
	v.SetDefault("geocode.batch_concurrency", 4)
	v.SetDefault("permits.max_per_feed", 10)
	v.SetDefault("permits.counties_file", "counties.yaml")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// The CI job injects bare API keys (not LEADMASTER_-prefixed).
	if cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.AnthropicKey == "" {
		cfg.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
