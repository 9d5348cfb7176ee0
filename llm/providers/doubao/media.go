package doubao

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
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
)

const (
	defaultPollInterval = 5 * time.Second
	defaultImageSize    = "2K"
	defaultVideoMIME    = "video/mp4"

	progressCreating  = "正在创建视频生成任务..."
	progressSubmitted = "视频生成中，请稍候..."
	progressRendering = "视频正在渲染中，可能需要几分钟..."

	unknownFailure = "未知错误"
)

// MediaConfig 豆包媒体适配器配置
type MediaConfig struct {
	APIKey     string
	ImageModel string
	VideoModel string
	BaseURL    string
	ImageSize  string

	// PollInterval 视频任务轮询间隔，为零时 5s。
	PollInterval time.Duration

	// Timeout 单次 HTTP 请求超时，为零时 2m。
	Timeout time.Duration

	// OnPoll 每次查询任务状态时调用，可为 nil。
	OnPoll func()
}

// MediaAdapter 通过方舟 HTTP 接口生成图片与视频。
type MediaAdapter struct {
	cfg    MediaConfig
	client *http.Client
	blobs  llm.BlobStore
	logger *zap.Logger
}

// NewMediaAdapter 创建豆包媒体适配器。blobs 用于保存下载后的视频。
func NewMediaAdapter(cfg MediaConfig, blobs llm.BlobStore, logger *zap.Logger) *MediaAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ImageSize == "" {
		cfg.ImageSize = defaultImageSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaAdapter{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		blobs:  blobs,
		logger: logger.With(zap.String("provider", ProviderName)),
	}
}

// Name returns the provider name.
func (a *MediaAdapter) Name() string { return ProviderName }

// =============================================================================
// 🖼️ Image Generation
// =============================================================================

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
	Watermark      bool   `json:"watermark"`
	Image          string `json:"image,omitempty"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateImage 调用 /images/generations，参考图以完整 data URL 传入。
func (a *MediaAdapter) GenerateImage(ctx context.Context, prompt, referenceImage string) (*llm.Image, error) {
	body := imageRequest{
		Model:          a.cfg.ImageModel,
		Prompt:         prompt,
		Size:           a.cfg.ImageSize,
		ResponseFormat: "b64_json",
		Watermark:      false,
	}
	if _, ok := llm.ParseDataURL(referenceImage); ok {
		body.Image = referenceImage
	}

	var out imageResponse
	if err := a.doJSON(ctx, http.MethodPost, "/images/generations", llm.ResolveAPIKey(ctx, a.cfg.APIKey), body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return nil, providers.DecodeError(err, ProviderName)
	}
	return &llm.Image{MIMEType: "image/jpeg", Data: data}, nil
}

// =============================================================================
// 🎬 Video Generation
// =============================================================================

type contentItem struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type taskRequest struct {
	Model   string        `json:"model"`
	Content []contentItem `json:"content"`
}

type taskCreated struct {
	ID string `json:"id"`
}

type taskStatus struct {
	Status  string          `json:"status"`
	Content json.RawMessage `json:"content"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// videoURL 兼容 content 为对象或数组两种形态。
func (s taskStatus) videoURL() string {
	if len(s.Content) == 0 {
		return ""
	}
	var obj struct {
		VideoURL string `json:"video_url"`
	}
	if err := json.Unmarshal(s.Content, &obj); err == nil && obj.VideoURL != "" {
		return obj.VideoURL
	}
	var arr []struct {
		VideoURL string `json:"video_url"`
	}
	if err := json.Unmarshal(s.Content, &arr); err == nil && len(arr) > 0 {
		return arr[0].VideoURL
	}
	return ""
}

// GenerateVideo 创建任务 → 轮询 → 下载 → 写入 BlobStore。
func (a *MediaAdapter) GenerateVideo(ctx context.Context, prompt string, onProgress llm.ProgressFunc, referenceImage string) (*llm.VideoHandle, error) {
	apiKey := llm.ResolveAPIKey(ctx, a.cfg.APIKey)

	content := []contentItem{{Type: "text", Text: prompt}}
	if _, ok := llm.ParseDataURL(referenceImage); ok {
		content = append(content, contentItem{Type: "image_url", ImageURL: &imageURL{URL: referenceImage}})
	}

	onProgress.Progress(progressCreating)
	var created taskCreated
	if err := a.doJSON(ctx, http.MethodPost, "/contents/generations/tasks", apiKey,
		taskRequest{Model: a.cfg.VideoModel, Content: content}, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, types.NewError(types.ErrTaskFailed, "no task id returned").WithProvider(ProviderName)
	}
	a.logger.Info("video task created", zap.String("task_id", created.ID))
	onProgress.Progress(progressSubmitted)

	url, err := a.pollTask(ctx, created.ID, apiKey, onProgress)
	if err != nil {
		return nil, err
	}

	data, mime, err := a.download(ctx, url)
	if err != nil {
		return nil, err
	}
	local, err := a.blobs.Put(ctx, mime, data)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "store video").WithCause(err)
	}
	return &llm.VideoHandle{URL: local, MIMEType: mime, Size: len(data)}, nil
}

func (a *MediaAdapter) pollTask(ctx context.Context, id, apiKey string, onProgress llm.ProgressFunc) (string, error) {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		if a.cfg.OnPoll != nil {
			a.cfg.OnPoll()
		}

		var st taskStatus
		if err := a.doJSON(ctx, http.MethodGet, "/contents/generations/tasks/"+id, apiKey, nil, &st); err != nil {
			return "", err
		}
		switch st.Status {
		case "succeeded":
			url := st.videoURL()
			if url == "" {
				return "", types.NewError(types.ErrMissingMedia, "video url missing").WithProvider(ProviderName)
			}
			return url, nil
		case "failed":
			msg := unknownFailure
			if st.Error != nil && st.Error.Message != "" {
				msg = st.Error.Message
			}
			return "", types.NewError(types.ErrTaskFailed, msg).WithProvider(ProviderName)
		default:
			// queued / running
			onProgress.Progress(progressRendering)
		}
	}
}

func (a *MediaAdapter) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", types.NewError(types.ErrMissingMedia, "invalid video url").WithCause(err).WithProvider(ProviderName)
	}
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
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "video/") {
		mime = defaultVideoMIME
	}
	return data, mime, nil
}

// doJSON 发送 JSON 请求并解码响应；非 2xx 直接失败。
func (a *MediaAdapter) doJSON(ctx context.Context, method, path, apiKey string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(req, apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return providers.TransportError(err, ProviderName)
	}
	if !providers.IsSuccess(resp.StatusCode) {
		apiErr := providers.ErrorFromResponse(resp, ProviderName)
		a.logger.Warn("ark request rejected",
			zap.String("path", path),
			zap.Int("status", apiErr.HTTPStatus))
		return apiErr
	}
	defer providers.SafeCloseBody(resp.Body)

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.DecodeError(err, ProviderName)
	}
	return nil
}
