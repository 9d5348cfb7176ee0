package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/brandforge/internal/tlsutil"
	"github.com/BaSui01/brandforge/llm"
	"github.com/BaSui01/brandforge/llm/providers"
	"github.com/BaSui01/brandforge/types"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultVideoPollInterval = 10 * time.Second
	defaultImageMIME         = "image/png"
	defaultVideoMIME         = "video/mp4"

	imagePromptTemplate = "High-end beauty product packaging design: %s. Professional studio photography, elegant lighting, luxury aesthetic."
	videoPromptTemplate = "Cinematic beauty commercial: %s. Slow motion, high-end production value, elegant transitions."

	progressVideoInit    = "Initializing video generation..."
	progressVideoRunning = "Crafting your cinematic commercial... This may take a few minutes."
)

// MediaConfig 媒体适配器配置
type MediaConfig struct {
	APIKey      string
	ImageModel  string
	VideoModel  string
	AspectRatio string

	// PollInterval 视频任务轮询间隔，为零时 10s。
	PollInterval time.Duration

	// Timeout 视频下载超时，为零时 2m。
	Timeout time.Duration

	// OnPoll 每次查询任务状态时调用，可为 nil。
	OnPoll func()
}

// MediaAdapter 基于 Gemini 图像模型与 Veo 视频模型。
type MediaAdapter struct {
	cfg    MediaConfig
	pool   *backendPool
	blobs  llm.BlobStore
	client *http.Client
	logger *zap.Logger
}

// NewMediaAdapter 创建 Gemini 媒体适配器。blobs 用于保存下载后的视频。
func NewMediaAdapter(cfg MediaConfig, factory BackendFactory, blobs llm.BlobStore, logger *zap.Logger) *MediaAdapter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultVideoPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = "1:1"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaAdapter{
		cfg:    cfg,
		pool:   newBackendPool(factory),
		blobs:  blobs,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", ProviderName)),
	}
}

// Name returns the provider name.
func (a *MediaAdapter) Name() string { return ProviderName }

// =============================================================================
// 🖼️ Image Generation
// =============================================================================

// GenerateImage 参考图作为第一个 inline part，其后是提示词。
func (a *MediaAdapter) GenerateImage(ctx context.Context, prompt, referenceImage string) (*llm.Image, error) {
	backend, err := a.pool.get(ctx, llm.ResolveAPIKey(ctx, a.cfg.APIKey))
	if err != nil {
		return nil, err
	}

	parts := make([]*genai.Part, 0, 2)
	if ref, ok := llm.ParseDataURL(referenceImage); ok {
		data, err := ref.Bytes()
		if err != nil {
			return nil, types.NewError(types.ErrInvalidRequest, "invalid reference image").
				WithCause(err).
				WithProvider(ProviderName)
		}
		parts = append(parts, genai.NewPartFromBytes(data, ref.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(fmt.Sprintf(imagePromptTemplate, prompt)))

	resp, err := backend.GenerateContent(ctx, a.cfg.ImageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{AspectRatio: a.cfg.AspectRatio},
		})
	if err != nil {
		return nil, mapSDKError(err)
	}
	return firstInlineImage(resp), nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) *llm.Image {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = defaultImageMIME
			}
			return &llm.Image{MIMEType: mime, Data: part.InlineData.Data}
		}
	}
	return nil
}

// =============================================================================
// 🎬 Video Generation
// =============================================================================

// GenerateVideo 提交 Veo 任务，按固定间隔轮询直到完成，下载后落地到 BlobStore。
func (a *MediaAdapter) GenerateVideo(ctx context.Context, prompt string, onProgress llm.ProgressFunc, referenceImage string) (*llm.VideoHandle, error) {
	apiKey := llm.ResolveAPIKey(ctx, a.cfg.APIKey)
	backend, err := a.pool.get(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	var image *genai.Image
	if ref, ok := llm.ParseDataURL(referenceImage); ok {
		data, err := ref.Bytes()
		if err != nil {
			return nil, types.NewError(types.ErrInvalidRequest, "invalid reference image").
				WithCause(err).
				WithProvider(ProviderName)
		}
		image = &genai.Image{ImageBytes: data, MIMEType: ref.MIMEType}
	}

	onProgress.Progress(progressVideoInit)
	op, err := backend.GenerateVideos(ctx, a.cfg.VideoModel, fmt.Sprintf(videoPromptTemplate, prompt), image,
		&genai.GenerateVideosConfig{
			NumberOfVideos: 1,
			Resolution:     "1080p",
			AspectRatio:    "16:9",
		})
	if err != nil {
		return nil, mapSDKError(err)
	}
	if op == nil || (op.Name == "" && !op.Done) {
		return nil, types.NewError(types.ErrTaskFailed, "no operation returned").WithProvider(ProviderName)
	}
	a.logger.Info("video operation submitted", zap.String("operation", op.Name))

	op, err = a.pollOperation(ctx, backend, op, onProgress)
	if err != nil {
		return nil, err
	}

	video, err := generatedVideo(op)
	if err != nil {
		return nil, err
	}

	data := video.VideoBytes
	mime := video.MIMEType
	if len(data) == 0 {
		data, mime, err = a.download(ctx, video.URI, apiKey)
		if err != nil {
			return nil, err
		}
	}
	if !strings.HasPrefix(mime, "video/") {
		mime = defaultVideoMIME
	}

	url, err := a.blobs.Put(ctx, mime, data)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "store video").WithCause(err)
	}
	return &llm.VideoHandle{URL: url, MIMEType: mime, Size: len(data)}, nil
}

func (a *MediaAdapter) pollOperation(ctx context.Context, backend Backend, op *genai.GenerateVideosOperation, onProgress llm.ProgressFunc) (*genai.GenerateVideosOperation, error) {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for !op.Done {
		onProgress.Progress(progressVideoRunning)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if a.cfg.OnPoll != nil {
			a.cfg.OnPoll()
		}
		next, err := backend.GetVideosOperation(ctx, op)
		if err != nil {
			return nil, mapSDKError(err)
		}
		if next == nil {
			return nil, types.NewError(types.ErrTaskFailed, "empty operation").WithProvider(ProviderName)
		}
		op = next
	}
	return op, nil
}

func generatedVideo(op *genai.GenerateVideosOperation) (*genai.Video, error) {
	if len(op.Error) > 0 {
		msg, _ := op.Error["message"].(string)
		if msg == "" {
			msg = "未知错误"
		}
		return nil, types.NewError(types.ErrTaskFailed, msg).WithProvider(ProviderName)
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, types.NewError(types.ErrMissingMedia, "Video generation failed").WithProvider(ProviderName)
	}
	v := op.Response.GeneratedVideos[0].Video
	if v == nil || (v.URI == "" && len(v.VideoBytes) == 0) {
		return nil, types.NewError(types.ErrMissingMedia, "Video generation failed").WithProvider(ProviderName)
	}
	return v, nil
}

func (a *MediaAdapter) download(ctx context.Context, uri, apiKey string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", types.NewError(types.ErrMissingMedia, "invalid video uri").WithCause(err).WithProvider(ProviderName)
	}
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", providers.TransportError(err, ProviderName)
	}
	if !providers.IsSuccess(resp.StatusCode) {
		return nil, "", providers.ErrorFromResponse(resp, ProviderName)
	}
	defer providers.SafeCloseBody(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", providers.TransportError(err, ProviderName)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
