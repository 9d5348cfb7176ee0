package gemini

import (
	"container/list"
	"context"
	"errors"
	"iter"
	"net/http"
	"sync"

	"github.com/BaSui01/brandforge/llm/providers"
	"github.com/BaSui01/brandforge/types"
	"google.golang.org/genai"
)

// ProviderName 用于错误与指标标签
const ProviderName = "gemini"

// Backend 是适配器使用到的 Gen AI SDK 子集。
// 生产环境由 *genai.Client 提供，测试中可替换为内存实现。
type Backend interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

// BackendFactory 按 API Key 构造 Backend。
type BackendFactory func(ctx context.Context, apiKey string) (Backend, error)

type sdkBackend struct {
	client *genai.Client
}

func (b *sdkBackend) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return b.client.Models.GenerateContentStream(ctx, model, contents, cfg)
}

func (b *sdkBackend) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return b.client.Models.GenerateContent(ctx, model, contents, cfg)
}

func (b *sdkBackend) GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return b.client.Models.GenerateVideos(ctx, model, prompt, image, cfg)
}

func (b *sdkBackend) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return b.client.Operations.GetVideosOperation(ctx, op, nil)
}

// SDKBackendFactory 返回基于 google.golang.org/genai 的 BackendFactory。
// baseURL 为空时使用 SDK 默认端点。
func SDKBackendFactory(baseURL string, httpClient *http.Client) BackendFactory {
	return func(ctx context.Context, apiKey string) (Backend, error) {
		cfg := &genai.ClientConfig{
			APIKey:     apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		}
		if baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
		}
		client, err := genai.NewClient(ctx, cfg)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidConfig, "create gemini client").
				WithCause(err).
				WithProvider(ProviderName)
		}
		return &sdkBackend{client: client}, nil
	}
}

// maxPooledBackends 每个适配器最多缓存的客户端数，超出后淘汰最久未用的。
// 服务端 Key 与当前活跃项目的覆盖 Key 都在其中。
const maxPooledBackends = 32

// backendPool 按 Key 缓存 Backend；覆盖凭据会得到独立的客户端。
type backendPool struct {
	factory  BackendFactory
	capacity int

	mu       sync.Mutex
	order    *list.List // 前端最近使用，元素值为 apiKey
	backends map[string]pooledBackend
}

type pooledBackend struct {
	backend Backend
	elem    *list.Element
}

func newBackendPool(factory BackendFactory) *backendPool {
	return &backendPool{
		factory:  factory,
		capacity: maxPooledBackends,
		order:    list.New(),
		backends: make(map[string]pooledBackend),
	}
}

func (p *backendPool) get(ctx context.Context, apiKey string) (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pb, ok := p.backends[apiKey]; ok {
		p.order.MoveToFront(pb.elem)
		return pb.backend, nil
	}
	b, err := p.factory(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	p.backends[apiKey] = pooledBackend{backend: b, elem: p.order.PushFront(apiKey)}
	for p.order.Len() > p.capacity {
		oldest := p.order.Back()
		p.order.Remove(oldest)
		delete(p.backends, oldest.Value.(string))
	}
	return b, nil
}

// len 当前缓存的客户端数
func (p *backendPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.backends)
}

// mapSDKError 把 SDK 错误统一为 types.Error。
func mapSDKError(err error) *types.Error {
	if err == nil {
		return nil
	}
	if e, ok := types.AsError(err); ok {
		return e
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Status
		}
		return providers.MapHTTPError(apiErr.Code, msg, ProviderName).WithCause(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.ErrUpstreamTimeout, "gemini request timed out").
			WithCause(err).
			WithRetryable(true).
			WithProvider(ProviderName)
	}
	return providers.TransportError(err, ProviderName)
}
