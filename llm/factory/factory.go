// Package factory 按配置选择并构造文本与媒体适配器。
// 它引用全部 provider 子包，避免 llm 包与子包之间的循环依赖。
package factory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/brandforge/config"
	"github.com/BaSui01/brandforge/internal/tlsutil"
	"github.com/BaSui01/brandforge/llm"
	"github.com/BaSui01/brandforge/llm/providers/doubao"
	"github.com/BaSui01/brandforge/llm/providers/gemini"
	"github.com/BaSui01/brandforge/llm/providers/openaicompat"
	"github.com/BaSui01/brandforge/types"
	"go.uber.org/zap"
)

// Recorder 接收 Provider 调用指标，*metrics.Collector 满足该接口。
type Recorder interface {
	RecordProviderRequest(provider, capability, status string, duration time.Duration)
	RecordVideoPoll(provider string)
}

// Deps 是构造适配器时可用的依赖。
type Deps struct {
	Blobs    llm.BlobStore
	Recorder Recorder
	Logger   *zap.Logger

	// GeminiBackend 为空时使用 SDK；测试可注入内存实现。
	GeminiBackend gemini.BackendFactory
}

type textBuilder func(cfg config.TextProviderConfig, deps Deps) llm.TextStreamAdapter

type mediaBuilder func(cfg config.MediaProviderConfig, deps Deps) llm.MediaAdapter

// =============================================================================
// 📋 Builder 注册表
// =============================================================================

var textBuilders = map[string]textBuilder{
	config.ProviderGemini: func(cfg config.TextProviderConfig, deps Deps) llm.TextStreamAdapter {
		backend := deps.GeminiBackend
		if backend == nil {
			timeout := cfg.Timeout
			if timeout == 0 {
				timeout = 60 * time.Second
			}
			backend = gemini.SDKBackendFactory(cfg.BaseURL, tlsutil.StreamingHTTPClient(timeout))
		}
		return gemini.NewTextAdapter(gemini.TextConfig{APIKey: cfg.APIKey, Model: cfg.Model}, backend, deps.Logger)
	},
	config.ProviderOpenAICompatible: func(cfg config.TextProviderConfig, deps Deps) llm.TextStreamAdapter {
		return openaicompat.New(openaicompat.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, deps.Logger)
	},
	config.ProviderDoubao: func(cfg config.TextProviderConfig, deps Deps) llm.TextStreamAdapter {
		return doubao.NewTextAdapter(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout, deps.Logger)
	},
}

var mediaBuilders = map[string]mediaBuilder{
	config.ProviderGemini: func(cfg config.MediaProviderConfig, deps Deps) llm.MediaAdapter {
		backend := deps.GeminiBackend
		if backend == nil {
			backend = gemini.SDKBackendFactory(cfg.BaseURL, tlsutil.SecureHTTPClient(cfg.Timeout))
		}
		return gemini.NewMediaAdapter(gemini.MediaConfig{
			APIKey:       cfg.APIKey,
			ImageModel:   cfg.ImageModel,
			VideoModel:   cfg.VideoModel,
			AspectRatio:  cfg.AspectRatio,
			PollInterval: cfg.PollInterval,
			Timeout:      cfg.Timeout,
			OnPoll:       pollHook(deps.Recorder, gemini.ProviderName),
		}, backend, deps.Blobs, deps.Logger)
	},
	config.ProviderDoubao: func(cfg config.MediaProviderConfig, deps Deps) llm.MediaAdapter {
		return doubao.NewMediaAdapter(doubao.MediaConfig{
			APIKey:       cfg.APIKey,
			ImageModel:   cfg.ImageModel,
			VideoModel:   cfg.VideoModel,
			BaseURL:      cfg.BaseURL,
			ImageSize:    cfg.ImageSize,
			PollInterval: cfg.PollInterval,
			Timeout:      cfg.Timeout,
			OnPoll:       pollHook(deps.Recorder, doubao.ProviderName),
		}, deps.Blobs, deps.Logger)
	},
}

func pollHook(r Recorder, provider string) func() {
	if r == nil {
		return nil
	}
	return func() { r.RecordVideoPoll(provider) }
}

// SupportedTextProviders 返回已注册的文本 Provider 名称
func SupportedTextProviders() []string { return sortedKeys(textBuilders) }

// SupportedMediaProviders 返回已注册的媒体 Provider 名称
func SupportedMediaProviders() []string { return sortedKeys(mediaBuilders) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// 🎯 Selector
// =============================================================================

// Selector 每个进程持有一个文本适配器与一个媒体适配器，首次使用时构造。
type Selector struct {
	text  config.TextProviderConfig
	media config.MediaProviderConfig
	deps  Deps

	textBuild  textBuilder
	mediaBuild mediaBuilder

	textOnce    sync.Once
	textAdapter llm.TextStreamAdapter

	mediaOnce    sync.Once
	mediaAdapter llm.MediaAdapter
}

// NewSelector 校验 Provider 名称并返回 Selector。未知名称立即返回配置错误。
func NewSelector(text config.TextProviderConfig, media config.MediaProviderConfig, deps Deps) (*Selector, error) {
	tb, ok := textBuilders[text.Provider]
	if !ok {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("unknown text provider %q (supported: %v)", text.Provider, SupportedTextProviders()))
	}
	mb, ok := mediaBuilders[media.Provider]
	if !ok {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("unknown media provider %q (supported: %v)", media.Provider, SupportedMediaProviders()))
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Logger = deps.Logger.With(zap.String("component", "llm"))
	if deps.Blobs == nil {
		deps.Blobs = discardBlobs{}
	}
	return &Selector{
		text:       text,
		media:      media,
		deps:       deps,
		textBuild:  tb,
		mediaBuild: mb,
	}, nil
}

// Text 返回文本适配器
func (s *Selector) Text() llm.TextStreamAdapter {
	s.textOnce.Do(func() {
		s.textAdapter = instrumentText(s.textBuild(s.text, s.deps), s.text.Provider, s.deps.Recorder)
		s.deps.Logger.Info("text adapter ready",
			zap.String("provider", s.text.Provider),
			zap.String("model", s.text.Model))
	})
	return s.textAdapter
}

// Media 返回媒体适配器
func (s *Selector) Media() llm.MediaAdapter {
	s.mediaOnce.Do(func() {
		s.mediaAdapter = instrumentMedia(s.mediaBuild(s.media, s.deps), s.media.Provider, s.deps.Recorder)
		s.deps.Logger.Info("media adapter ready",
			zap.String("provider", s.media.Provider),
			zap.String("image_model", s.media.ImageModel),
			zap.String("video_model", s.media.VideoModel))
	})
	return s.mediaAdapter
}

// TextProvider 当前文本 Provider 名称
func (s *Selector) TextProvider() string { return s.text.Provider }

// MediaProvider 当前媒体 Provider 名称
func (s *Selector) MediaProvider() string { return s.media.Provider }

type discardBlobs struct{}

func (discardBlobs) Put(context.Context, string, []byte) (string, error) {
	return "", types.NewError(types.ErrUnavailable, "no media store configured")
}
