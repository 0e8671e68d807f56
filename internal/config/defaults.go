package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"

	DefaultRateLimitPerMinute = 60

	DefaultModel         = "claude-sonnet-4-5"
	DefaultLLMTimeoutSec = 60

	DefaultTokenBudget     = 6000
	DefaultHistoryWindow   = 6
	DefaultMaxHistory      = 50
	DefaultMaxUtteranceLen = 2000

	DefaultRowLimitCeiling  = 1000
	DefaultExecTimeoutMs    = 30000
	DefaultMaxSubqueryDepth = 3

	DefaultSampleValues     = 5
	DefaultCategoricalRatio = 0.2

	DefaultHistogramMinRows   = 20
	DefaultMaxCategoricalDims = 3

	DefaultCORSMaxAge = 300
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}

var DefaultSensitiveColumns = []string{
	"email", "phone", "ssn", "social_security_number",
	"credit_card", "password", "secret", "token",
	"api_key", "access_key", "private_key",
}
