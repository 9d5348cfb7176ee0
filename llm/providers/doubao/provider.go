package doubao

import (
	"time"

	"github.com/BaSui01/brandforge/llm/providers/openaicompat"
	"go.uber.org/zap"
)

const (
	// ProviderName 用于错误与指标标签
	ProviderName = "doubao"

	// DefaultBaseURL 火山方舟 Ark v3 接口
	DefaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
)

// NewTextAdapter 创建豆包文本适配器。
// 方舟的 chat/completions 与 OpenAI 兼容，直接复用 openaicompat。
func NewTextAdapter(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) *openaicompat.TextAdapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName: ProviderName,
		APIKey:       apiKey,
		Model:        model,
		BaseURL:      baseURL,
		Timeout:      timeout,
	}, logger)
}
