package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"recipe-extractor/internal/pkg/common"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	OCR         OCRConfig        `mapstructure:"ocr"`
	Extract     ExtractConfig    `mapstructure:"extract"`
	Catalog     CatalogConfig    `mapstructure:"catalog"`
	Pipeline    PipelineConfig   `mapstructure:"pipeline"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Queue       QueueConfig      `mapstructure:"queue"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Image       ImageConfig      `mapstructure:"image"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	UploadDir      string        `mapstructure:"upload_dir"`
}

// OpenRouterConfig OpenRouter 配置；api_key 為空時停用 AI 補全
type OpenRouterConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// Retries 傳輸層對 429/5xx 的重試次數；Attempts 為補全服務含第一次在內的總呼叫次數
	Retries   int           `mapstructure:"retries"`
	Attempts  int           `mapstructure:"attempts"`
	RPS       float64       `mapstructure:"rps"`
}

// OCRConfig OCR 引擎設定；commands 為 名稱 -> 指令列，指令列可用 {image} {lang}
type OCRConfig struct {
	Engines       []string          `mapstructure:"engines"`
	DefaultEngine string            `mapstructure:"default_engine"`
	Language      string            `mapstructure:"language"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	Workers       int               `mapstructure:"workers"`
	MaxSide       int               `mapstructure:"max_side"`
	Commands      map[string]string `mapstructure:"commands"`
	CommandsEnv   string            `mapstructure:"commands_env"`
}

// ExtractConfig 文字擷取設定
type ExtractConfig struct {
	MaxFileBytes int64         `mapstructure:"max_file_bytes"`
	MaxDocxChars int           `mapstructure:"max_docx_chars"`
	MaxDocxRows  int           `mapstructure:"max_docx_rows"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PDFToPPM     string        `mapstructure:"pdftoppm"`
	RasterDPI    int           `mapstructure:"raster_dpi"`
}

// CatalogConfig 參考表路徑（json/yaml/toml）
type CatalogConfig struct {
	PricePath     string `mapstructure:"price_path"`
	NutritionPath string `mapstructure:"nutrition_path"`
	AllergenPath  string `mapstructure:"allergen_path"`
}

// PipelineConfig 流程設定
type PipelineConfig struct {
	MaxPasses          int  `mapstructure:"max_passes"`
	MaxSourceChars     int  `mapstructure:"max_source_chars"`
	AllowOverrideLists bool `mapstructure:"allow_override_lists"`
}

// CacheConfig 緩存配置；redis_addr 非空時改用 Redis
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
}

// QueueConfig 請求隊列設定
type QueueConfig struct {
	Workers    int           `mapstructure:"workers"`
	MaxSize    int           `mapstructure:"max_size"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// envBindings 設定鍵 -> 環境變數
var envBindings = map[string]string{
	"openrouter.api_key":            "OPENROUTER_API_KEY",
	"openrouter.model":              "OPENROUTER_MODEL",
	"openrouter.base_url":           "OPENROUTER_BASE_URL",
	"openrouter.max_tokens":         "MODEL_MAX_TOKENS",
	"openrouter.attempts":           "AI_ATTEMPTS",
	"ocr.engines":                   "OCR_ENGINES",
	"ocr.default_engine":            "OCR_DEFAULT_ENGINE",
	"ocr.language":                  "OCR_LANG",
	"ocr.commands_env":              "OCR_COMMANDS",
	"catalog.price_path":            "PRICE_CATALOG",
	"catalog.nutrition_path":        "NUTRITION_CATALOG",
	"catalog.allergen_path":         "ALLERGEN_CATALOG",
	"pipeline.max_passes":           "PIPELINE_MAX_PASSES",
	"pipeline.allow_override_lists": "PIPELINE_OVERRIDE_LISTS",
	"cache.enabled":                 "CACHE_ENABLED",
	"cache.redis_addr":              "REDIS_ADDR",
	"cache.redis_password":          "REDIS_PASSWORD",
	"rate_limit.enabled":            "RATE_LIMIT_ENABLED",
	"rate_limit.requests":           "RATE_LIMIT_REQUESTS",
	"rate_limit.window":             "RATE_LIMIT_WINDOW",
	"dedup_window":                  "DEDUP_WINDOW",
	"log_level":                     "LOG_LEVEL",
	"server.port":                   "PORT",
}

// LoadConfig 載入設定：預設值 < 設定檔 < .env < 環境變數
func LoadConfig() (*Config, error) {
	// .env 為選用
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	// APP_CONFIG_FILE 可指定 yaml/toml/json 設定檔
	if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.OCR.Commands = mergeCommands(config.OCR.Commands, config.OCR.CommandsEnv)
	config.OCR.Engines = cleanList(config.OCR.Engines)
	if config.OpenRouter.APIKey != "" {
		config.OpenRouter.Enabled = true
	}

	common.RegisterSecret(config.OpenRouter.APIKey)
	common.RegisterSecret(config.Cache.RedisPassword)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-extractor")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "240s")
	v.SetDefault("server.max_body_bytes", 64<<20)
	v.SetDefault("server.upload_dir", "")

	// OpenRouter 設定
	v.SetDefault("openrouter.enabled", false)
	v.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.max_tokens", 4096)
	v.SetDefault("openrouter.timeout", "90s")
	v.SetDefault("openrouter.retries", 2)
	v.SetDefault("openrouter.attempts", 2)
	v.SetDefault("openrouter.rps", 1)

	// OCR 設定
	v.SetDefault("ocr.engines", []string{"tesseract"})
	v.SetDefault("ocr.default_engine", "tesseract")
	v.SetDefault("ocr.language", "ita+eng")
	v.SetDefault("ocr.timeout", "45s")
	v.SetDefault("ocr.workers", 4)
	v.SetDefault("ocr.max_side", 2400)

	// 擷取設定
	v.SetDefault("extract.max_file_bytes", 15<<20)
	v.SetDefault("extract.max_docx_chars", 60000)
	v.SetDefault("extract.max_docx_rows", 2000)
	v.SetDefault("extract.timeout", "45s")
	v.SetDefault("extract.pdftoppm", "pdftoppm")
	v.SetDefault("extract.raster_dpi", 300)

	// 參考表
	v.SetDefault("catalog.price_path", "data/prices.json")
	v.SetDefault("catalog.nutrition_path", "data/nutrition.json")
	v.SetDefault("catalog.allergen_path", "data/allergens.yaml")

	// 流程
	v.SetDefault("pipeline.max_passes", 2)
	v.SetDefault("pipeline.max_source_chars", 20000)
	v.SetDefault("pipeline.allow_override_lists", false)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_db", 0)

	// 隊列設定
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.max_size", 20)
	v.SetDefault("queue.job_timeout", "5m")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 20*1024*1024)

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// mergeCommands 將 "name=cmd;name2=cmd2" 形式的環境變數併入設定檔中的指令
func mergeCommands(base map[string]string, raw string) map[string]string {
	out := make(map[string]string, len(base))
	for k, cmd := range base {
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(cmd)
	}
	for _, part := range strings.Split(raw, ";") {
		name, cmd, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && strings.TrimSpace(cmd) != "" {
			out[name] = strings.TrimSpace(cmd)
		}
	}
	return out
}

func cleanList(items []string) []string {
	var out []string
	for _, it := range items {
		for _, s := range strings.Split(it, ",") {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid server max body bytes")
	}

	if config.Cache.Enabled && config.Cache.RedisAddr == "" {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	if len(config.OCR.Engines) == 0 {
		return fmt.Errorf("at least one OCR engine is required")
	}
	if config.Pipeline.MaxPasses < 0 {
		return fmt.Errorf("invalid pipeline max passes")
	}
	if config.Extract.MaxFileBytes <= 0 {
		return fmt.Errorf("invalid extract max file bytes")
	}
	return nil
}
