// =============================================================================
// BrandForge OpenAI-Compatible Text Adapter
// =============================================================================
// 任意兼容 /chat/completions 流式接口的服务（OpenAI、DeepSeek、Qwen、本地网关等）
// 都可以通过 BaseURL + Model 接入文本生成。
// =============================================================================

package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/brandforge/internal/tlsutil"
	"github.com/BaSui01/brandforge/llm"
	"github.com/BaSui01/brandforge/llm/providers"
	"go.uber.org/zap"
)

// DefaultBaseURL 未配置 BaseURL 时使用
const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds the configuration for an OpenAI-compatible text adapter.
type Config struct {
	// ProviderName 用于错误与指标标签，默认 "openai-compatible"。
	ProviderName string

	APIKey  string
	Model   string
	BaseURL string

	// Timeout 为响应头超时；为零时使用 60s。流式响应体本身只受 ctx 约束。
	Timeout time.Duration
}

// TextAdapter 通过 SSE 流式调用 chat completions。
type TextAdapter struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a new OpenAI-compatible text adapter with the given config.
func New(cfg Config, logger *zap.Logger) *TextAdapter {
	if cfg.ProviderName == "" {
		cfg.ProviderName = "openai-compatible"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextAdapter{
		cfg:    cfg,
		client: tlsutil.StreamingHTTPClient(timeout),
		logger: logger.With(zap.String("provider", cfg.ProviderName)),
	}
}

// Name returns the provider name.
func (a *TextAdapter) Name() string { return a.cfg.ProviderName }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

func buildMessages(prompt, systemInstruction string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if systemInstruction != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemInstruction})
	}
	return append(msgs, chatMessage{Role: "user", Content: prompt})
}

// GenerateContentStream 发起流式请求。非 2xx 响应直接返回错误，响应体已关闭。
func (a *TextAdapter) GenerateContentStream(ctx context.Context, prompt, systemInstruction string) (<-chan llm.AIStreamChunk, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    a.cfg.Model,
		Messages: buildMessages(prompt, systemInstruction),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, llm.ResolveAPIKey(ctx, a.cfg.APIKey))
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, providers.TransportError(err, a.Name())
	}
	if !providers.IsSuccess(resp.StatusCode) {
		apiErr := providers.ErrorFromResponse(resp, a.Name())
		a.logger.Warn("chat completions rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("model", a.cfg.Model))
		return nil, apiErr
	}

	return StreamSSE(ctx, resp.Body, a.Name()), nil
}
