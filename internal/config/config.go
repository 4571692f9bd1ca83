package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	LLM       LLMConfig
	Gateway   GatewayConfig
	Pipeline  PipelineConfig
	Analyzer  AnalyzerConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
	LogFile  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	GeneratePerHour int
	AnalyzePerMin   int
}

type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

type GatewayConfig struct {
	Enabled bool
}

// PipelineConfig tunes the generation pipeline.
type PipelineConfig struct {
	DataDir         string // root under which project directories are created
	JournalDays     int    // daily entries per journal
	ParserRetries   int
	ParserBackoffMS int
	// Research findings targets per depth; completion heuristics use the
	// same numbers.
	FindingsLight    int
	FindingsStandard int
	FindingsDeep     int
}

// FindingsTarget returns the findings count expected for a depth.
func (p PipelineConfig) FindingsTarget(depth string) int {
	switch depth {
	case "light":
		return p.FindingsLight
	case "deep":
		return p.FindingsDeep
	default:
		return p.FindingsStandard
	}
}

// AnalyzerConfig holds the quality-score weights. The values are heuristic
// constants with no derivation; they are configurable rather than baked in,
// but must stay stable within one deployment.
type AnalyzerConfig struct {
	WeightResearch int
	WeightContent  int
	WeightVisual   int
	WeightDocument int
}

func Load() (*Config, error) {
	readSecret("LLM_API_KEY")
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.log_file", "LOG_FILE")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("llm.api_key", "LLM_API_KEY")
	_ = viper.BindEnv("llm.base_url", "LLM_BASE_URL")
	_ = viper.BindEnv("llm.model", "LLM_MODEL")
	_ = viper.BindEnv("llm.timeout_seconds", "LLM_TIMEOUT_SECONDS")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
	_ = viper.BindEnv("pipeline.data_dir", "PIPELINE_DATA_DIR")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.log_file", "journalforge.log")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.analyze_per_min", 30)

	// LLM defaults (OpenAI-compatible endpoint)
	viper.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("llm.model", "llama-3.3-70b-versatile")
	viper.SetDefault("llm.timeout_seconds", 120)

	viper.SetDefault("gateway.enabled", false)

	// Pipeline defaults
	viper.SetDefault("pipeline.data_dir", "./data/projects")
	viper.SetDefault("pipeline.journal_days", 30)
	viper.SetDefault("pipeline.parser_retries", 3)
	viper.SetDefault("pipeline.parser_backoff_ms", 2000)
	viper.SetDefault("pipeline.findings_light", 5)
	viper.SetDefault("pipeline.findings_standard", 10)
	viper.SetDefault("pipeline.findings_deep", 20)

	// Analyzer weights
	viper.SetDefault("analyzer.weight_research", 30)
	viper.SetDefault("analyzer.weight_content", 40)
	viper.SetDefault("analyzer.weight_visual", 15)
	viper.SetDefault("analyzer.weight_document", 15)

	// Config file is optional
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
			LogFile:  viper.GetString("server.log_file"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
			AnalyzePerMin:   viper.GetInt("ratelimit.analyze_per_min"),
		},
		LLM: LLMConfig{
			APIKey:         viper.GetString("llm.api_key"),
			BaseURL:        viper.GetString("llm.base_url"),
			Model:          viper.GetString("llm.model"),
			TimeoutSeconds: viper.GetInt("llm.timeout_seconds"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
		Pipeline: PipelineConfig{
			DataDir:          viper.GetString("pipeline.data_dir"),
			JournalDays:      viper.GetInt("pipeline.journal_days"),
			ParserRetries:    viper.GetInt("pipeline.parser_retries"),
			ParserBackoffMS:  viper.GetInt("pipeline.parser_backoff_ms"),
			FindingsLight:    viper.GetInt("pipeline.findings_light"),
			FindingsStandard: viper.GetInt("pipeline.findings_standard"),
			FindingsDeep:     viper.GetInt("pipeline.findings_deep"),
		},
		Analyzer: AnalyzerConfig{
			WeightResearch: viper.GetInt("analyzer.weight_research"),
			WeightContent:  viper.GetInt("analyzer.weight_content"),
			WeightVisual:   viper.GetInt("analyzer.weight_visual"),
			WeightDocument: viper.GetInt("analyzer.weight_document"),
		},
	}

	return cfg, nil
}
