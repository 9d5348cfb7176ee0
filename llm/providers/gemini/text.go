package gemini

import (
	"context"

	"github.com/BaSui01/brandforge/llm"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// TextConfig 文本适配器配置
type TextConfig struct {
	APIKey string
	Model  string
}

// TextAdapter 直接使用 SDK 的原生流式接口，逐条透传响应文本。
type TextAdapter struct {
	cfg    TextConfig
	pool   *backendPool
	logger *zap.Logger
}

// NewTextAdapter 创建 Gemini 文本适配器。
func NewTextAdapter(cfg TextConfig, factory BackendFactory, logger *zap.Logger) *TextAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextAdapter{
		cfg:    cfg,
		pool:   newBackendPool(factory),
		logger: logger.With(zap.String("provider", ProviderName)),
	}
}

// Name returns the provider name.
func (a *TextAdapter) Name() string { return ProviderName }

func systemContent(systemInstruction string) *genai.Content {
	if systemInstruction == "" {
		return nil
	}
	return &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}}
}

// GenerateContentStream 实现 llm.TextStreamAdapter。
func (a *TextAdapter) GenerateContentStream(ctx context.Context, prompt, systemInstruction string) (<-chan llm.AIStreamChunk, error) {
	backend, err := a.pool.get(ctx, llm.ResolveAPIKey(ctx, a.cfg.APIKey))
	if err != nil {
		return nil, err
	}
	seq := backend.GenerateContentStream(ctx, a.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: systemContent(systemInstruction),
	})

	ch := make(chan llm.AIStreamChunk)
	go func() {
		defer close(ch)
		// break 退出 range 时 SDK 会释放底层连接
		for resp, err := range seq {
			var chunk llm.AIStreamChunk
			if err != nil {
				chunk.Err = mapSDKError(err)
				a.logger.Warn("stream failed", zap.String("model", a.cfg.Model), zap.Error(err))
			} else if resp != nil {
				chunk.Text = resp.Text()
			}
			if chunk.Err == nil && chunk.Text == "" {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case ch <- chunk:
			}
			if chunk.Err != nil {
				return
			}
		}
	}()
	return ch, nil
}
