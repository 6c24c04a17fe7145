package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/pkg/common"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// ProviderName 診斷與日誌中使用的名稱
	ProviderName = "openrouter"

	// DefaultBaseURL OpenRouter API 位址
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	// DefaultModel 預設模型
	DefaultModel = "openai/gpt-4o-mini"

	defaultTimeout   = 60 * time.Second
	defaultRetries   = 2
	defaultRetryWait = time.Second
	defaultMaxTokens = 4096
	maxErrorBody     = 300
)

// ErrNoAPIKey 未設定 API Key
var ErrNoAPIKey = errors.New("openrouter api key not configured")

// request 表示 API 請求
type request struct {
	Model          string             `json:"model"`
	Messages       []provider.Message `json:"messages"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Temperature    float64            `json:"temperature"`
	ResponseFormat *responseFormat    `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// response OpenRouter 響應結構
type response struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []choice       `json:"choices"`
	Usage   provider.Usage `json:"usage"`
}

type choice struct {
	Message provider.Message `json:"message"`
}

// apiError 表示 API 錯誤
type apiError struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// Client OpenRouter API 客戶端
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	config  provider.Config
}

// NewClient 創建新的 OpenRouter 客戶端：resty 走 retryablehttp 傳輸層，請求前經過 rate limiter
func NewClient(cfg provider.Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultRetries
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Redactor == nil {
		cfg.Redactor = common.NewRedactor()
	}
	cfg.Redactor.Register(cfg.APIKey)

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWait
	retryClient.RetryWaitMax = cfg.RetryWait * 10
	retryClient.Logger = nil
	// 重試用盡時仍把最後的響應交給 resty，狀態碼才能被判讀
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetTransport(&retryablehttp.RoundTripper{Client: retryClient}).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "recipe-extractor/1.0")
	if cfg.APIKey != "" {
		restyClient.SetAuthToken(cfg.APIKey)
	}
	if cfg.Referer != "" {
		restyClient.SetHeader("HTTP-Referer", cfg.Referer)
	}
	if cfg.Title != "" {
		restyClient.SetHeader("X-Title", cfg.Title)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &Client{resty: restyClient, limiter: limiter, config: cfg}
}

// Name 提供者名稱
func (c *Client) Name() string { return ProviderName }

// GetModel 模型名稱
func (c *Client) GetModel() string { return c.config.Model }

// GetTimeout 單次請求超時
func (c *Client) GetTimeout() time.Duration { return c.config.Timeout }

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if c.config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body := request{
		Model:       c.config.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = c.config.MaxTokens
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
	)

	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&response{}).
		SetError(&apiError{}).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.IsError() {
		msg := c.sanitize(resp.Body())
		if e, ok := resp.Error().(*apiError); ok && e.Error.Message != "" {
			msg = c.sanitize([]byte(e.Error.Message))
		}
		return nil, fmt.Errorf("AI service error (status %d): %s", resp.StatusCode(), msg)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), c.sanitize(resp.Body()))
	}

	out, ok := resp.Result().(*response)
	if !ok || len(out.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response: %s", c.sanitize(resp.Body()))
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty content in response")
	}

	model := out.Model
	if model == "" {
		model = body.Model
	}
	common.LogDebug("OpenRouter response received",
		zap.String("model", model),
		zap.Int("content_length", len(content)),
		zap.Int("total_tokens", out.Usage.TotalTokens),
	)
	return &provider.Response{Content: content, Model: model, Usage: out.Usage}, nil
}

// sanitize 先遮罩再截斷響應內容
func (c *Client) sanitize(body []byte) string {
	return common.Truncate(c.config.Redactor.Redact(strings.TrimSpace(string(body))), maxErrorBody, "...")
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.resty.GetClient().CloseIdleConnections()
	return nil
}
