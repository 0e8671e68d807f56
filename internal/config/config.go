package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Environment string `json:"environment"`
	APIPrefix   string `json:"api_prefix"`
	LogLevel    string `json:"log_level"`

	// CORS
	CORSOrigins []string `json:"cors_origins"`

	// Auth
	APIKeyHeader string   `json:"api_key_header"`
	APIKeys      []string `json:"api_keys"`
	EnableAuth   bool     `json:"enable_auth"`

	// Rate Limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute"`

	// AI / LLM
	AnthropicAPIKey  string `json:"anthropic_api_key"`
	AnthropicBaseURL string `json:"anthropic_base_url"` // override for custom proxy
	Model            string `json:"model"`
	LLMTimeoutSec    int    `json:"llm_timeout_sec"`

	// Translation
	TokenBudget     int `json:"token_budget"`      // prompt size cap, estimated tokens
	HistoryWindow   int `json:"history_window"`    // last K turns included in the prompt
	MaxHistory      int `json:"max_history"`       // turns retained per session
	MaxUtteranceLen int `json:"max_utterance_len"`

	// Execution
	RowLimitCeiling  int `json:"row_limit_ceiling"`
	ExecTimeoutMs    int `json:"exec_timeout_ms"`
	MaxSubqueryDepth int `json:"max_subquery_depth"`

	// Introspection
	SampleValues     int     `json:"sample_values"`
	CategoricalRatio float64 `json:"categorical_ratio"` // distinct/rows below this => categorical

	// Chart recommendation
	HistogramMinRows   int `json:"histogram_min_rows"`
	MaxCategoricalDims int `json:"max_categorical_dims"`

	// Security
	EnableDataMasking  bool     `json:"enable_data_masking"`
	EnableAuditLogging bool     `json:"enable_audit_logging"`
	SensitiveColumns   []string `json:"sensitive_columns"`
}

// LLMTimeout converts the configured completion timeout to a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:               DefaultHost,
		Port:               DefaultPort,
		Environment:        DefaultEnvironment,
		APIPrefix:          DefaultAPIPrefix,
		LogLevel:           DefaultLogLevel,
		CORSOrigins:        DefaultCORSOrigins,
		APIKeyHeader:       "X-API-Key",
		EnableAuth:         true,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		Model:              DefaultModel,
		LLMTimeoutSec:      DefaultLLMTimeoutSec,
		TokenBudget:        DefaultTokenBudget,
		HistoryWindow:      DefaultHistoryWindow,
		MaxHistory:         DefaultMaxHistory,
		MaxUtteranceLen:    DefaultMaxUtteranceLen,
		RowLimitCeiling:    DefaultRowLimitCeiling,
		ExecTimeoutMs:      DefaultExecTimeoutMs,
		MaxSubqueryDepth:   DefaultMaxSubqueryDepth,
		SampleValues:       DefaultSampleValues,
		CategoricalRatio:   DefaultCategoricalRatio,
		HistogramMinRows:   DefaultHistogramMinRows,
		MaxCategoricalDims: DefaultMaxCategoricalDims,
		EnableDataMasking:  true,
		EnableAuditLogging: true,
		SensitiveColumns:   DefaultSensitiveColumns,
	}

	// Load from JSON config file if specified
	if path := getEnv("DATASAGE_CONFIG", ""); path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, err
		}
	}

	// Environment overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("DATASAGE_HOST", ""); v != "" {
		cfg.Host = v
	}
	if v := getEnv("DATASAGE_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := getEnv("DATASAGE_ENV", ""); v != "" {
		cfg.Environment = v
	}
	if v := getEnv("DATASAGE_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv("DATASAGE_API_KEYS", ""); v != "" {
		cfg.APIKeys = strings.Split(v, ",")
	}
	if v := getEnv("ANTHROPIC_API_KEY", ""); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := getEnv("ANTHROPIC_BASE_URL", ""); v != "" {
		cfg.AnthropicBaseURL = v
	}
	if v := getEnv("DATASAGE_MODEL", ""); v != "" {
		cfg.Model = v
	}
	if v := getEnv("DATASAGE_ROW_LIMIT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RowLimitCeiling = n
		}
	}
	if v := getEnv("DATASAGE_EXEC_TIMEOUT_MS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ExecTimeoutMs = n
		}
	}
	if v := getEnv("DATASAGE_TOKEN_BUDGET", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TokenBudget = n
		}
	}
	if v := getEnv("DATASAGE_HISTORY_WINDOW", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryWindow = n
		}
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = r
		}
	}
	if v := getEnv("ENABLE_AUTH", ""); v != "" {
		cfg.EnableAuth = v == "true" || v == "1"
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
