package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/brandforge/llm"
	"github.com/BaSui01/brandforge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type streamItem struct {
	text string
	err  error
}

type fakeBackend struct {
	mu sync.Mutex

	stream      []streamItem
	streamModel string
	streamCfg   *genai.GenerateContentConfig

	imageResp     *genai.GenerateContentResponse
	imageErr      error
	imageContents []*genai.Content
	imageCfg      *genai.GenerateContentConfig

	videoPrompt string
	videoImage  *genai.Image
	videoCfg    *genai.GenerateVideosConfig
	submitErr   error
	ops         []*genai.GenerateVideosOperation
	polls       int
}

func (f *fakeBackend) GenerateContentStream(_ context.Context, model string, _ []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.streamModel = model
	f.streamCfg = cfg
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, it := range f.stream {
			if it.err != nil {
				yield(nil, it.err)
				return
			}
			resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: it.text}}},
			}}}
			if !yield(resp, nil) {
				return
			}
		}
	}
}

func (f *fakeBackend) GenerateContent(_ context.Context, _ string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.imageContents = contents
	f.imageCfg = cfg
	return f.imageResp, f.imageErr
}

func (f *fakeBackend) GenerateVideos(_ context.Context, _ string, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	f.videoPrompt = prompt
	f.videoImage = image
	f.videoCfg = cfg
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &genai.GenerateVideosOperation{Name: "operations/1"}, nil
}

func (f *fakeBackend) GetVideosOperation(_ context.Context, _ *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := f.ops[f.polls]
	if f.polls < len(f.ops)-1 {
		f.polls++
	}
	return op, nil
}

func factoryFor(b Backend, keys *[]string) BackendFactory {
	return func(_ context.Context, apiKey string) (Backend, error) {
		if keys != nil {
			*keys = append(*keys, apiKey)
		}
		return b, nil
	}
}

type memBlobs struct {
	mime string
	data []byte
}

func (m *memBlobs) Put(_ context.Context, mime string, data []byte) (string, error) {
	m.mime = mime
	m.data = data
	return "/api/v1/media/abc", nil
}

func drain(t *testing.T, ch <-chan llm.AIStreamChunk) ([]string, *llm.Error) {
	t.Helper()
	var out []string
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return out, nil
			}
			if c.Err != nil {
				return out, c.Err
			}
			out = append(out, c.Text)
		case <-time.After(2 * time.Second):
			t.Fatal("stream not closed")
		}
	}
}

// ---------------------------------------------------------------------------
// text
// ---------------------------------------------------------------------------

func TestTextAdapter_StreamsFragmentsAsIs(t *testing.T) {
	fb := &fakeBackend{stream: []streamItem{{text: "竞品"}, {text: ""}, {text: "调研"}}}
	a := NewTextAdapter(TextConfig{APIKey: "k", Model: "gemini-3-flash-preview"}, factoryFor(fb, nil), nil)

	ch, err := a.GenerateContentStream(context.Background(), "prompt", "You are a consultant.")
	require.NoError(t, err)
	got, streamErr := drain(t, ch)

	require.Nil(t, streamErr)
	assert.Equal(t, []string{"竞品", "调研"}, got)
	assert.Equal(t, "gemini-3-flash-preview", fb.streamModel)
	require.NotNil(t, fb.streamCfg.SystemInstruction)
	assert.Equal(t, "You are a consultant.", fb.streamCfg.SystemInstruction.Parts[0].Text)
}

func TestTextAdapter_NoSystemInstruction(t *testing.T) {
	fb := &fakeBackend{}
	a := NewTextAdapter(TextConfig{Model: "m"}, factoryFor(fb, nil), nil)
	ch, err := a.GenerateContentStream(context.Background(), "p", "")
	require.NoError(t, err)
	_, _ = drain(t, ch)
	assert.Nil(t, fb.streamCfg.SystemInstruction)
}

func TestTextAdapter_MidStreamError(t *testing.T) {
	fb := &fakeBackend{stream: []streamItem{
		{text: "a"},
		{err: genai.APIError{Code: 429, Message: "Resource has been exhausted"}},
	}}
	a := NewTextAdapter(TextConfig{Model: "m"}, factoryFor(fb, nil), nil)

	ch, err := a.GenerateContentStream(context.Background(), "p", "s")
	require.NoError(t, err)
	got, streamErr := drain(t, ch)

	assert.Equal(t, []string{"a"}, got)
	require.NotNil(t, streamErr)
	assert.Equal(t, types.ErrRateLimited, streamErr.Code)
	assert.Equal(t, 429, streamErr.HTTPStatus)
	assert.Equal(t, ProviderName, streamErr.Provider)
}

func TestTextAdapter_CredentialOverrideUsesSeparateBackend(t *testing.T) {
	var keys []string
	fb := &fakeBackend{}
	a := NewTextAdapter(TextConfig{APIKey: "server", Model: "m"}, factoryFor(fb, &keys), nil)

	for range 2 {
		ch, err := a.GenerateContentStream(context.Background(), "p", "")
		require.NoError(t, err)
		_, _ = drain(t, ch)
	}
	ctx := llm.WithCredentialOverride(context.Background(), llm.CredentialOverride{APIKey: "user"})
	ch, err := a.GenerateContentStream(ctx, "p", "")
	require.NoError(t, err)
	_, _ = drain(t, ch)

	assert.Equal(t, []string{"server", "user"}, keys)
}

func TestBackendPool_EvictsLeastRecentlyUsed(t *testing.T) {
	var keys []string
	pool := newBackendPool(factoryFor(&fakeBackend{}, &keys))
	pool.capacity = 3
	ctx := context.Background()

	for _, k := range []string{"server", "u1", "u2"} {
		_, err := pool.get(ctx, k)
		require.NoError(t, err)
	}
	// server 最近使用过，u1 被淘汰
	_, err := pool.get(ctx, "server")
	require.NoError(t, err)
	_, err = pool.get(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, 3, pool.len())

	_, err = pool.get(ctx, "server")
	require.NoError(t, err)
	_, err = pool.get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"server", "u1", "u2", "u3", "u1"}, keys)
	assert.Equal(t, 3, pool.len())
}

func TestBackendPool_BoundedByDefault(t *testing.T) {
	pool := newBackendPool(factoryFor(&fakeBackend{}, nil))
	for i := range maxPooledBackends * 2 {
		_, err := pool.get(context.Background(), fmt.Sprintf("user-key-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, maxPooledBackends, pool.len())
}

func TestTextAdapter_FactoryError(t *testing.T) {
	boom := types.NewError(types.ErrInvalidConfig, "no key")
	a := NewTextAdapter(TextConfig{}, func(context.Context, string) (Backend, error) { return nil, boom }, nil)
	_, err := a.GenerateContentStream(context.Background(), "p", "")
	assert.ErrorIs(t, err, boom)
}

// ---------------------------------------------------------------------------
// image
// ---------------------------------------------------------------------------

func TestMediaAdapter_GenerateImage(t *testing.T) {
	fb := &fakeBackend{imageResp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "here you go"},
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
		}},
	}}}}
	a := NewMediaAdapter(MediaConfig{ImageModel: "img"}, factoryFor(fb, nil), &memBlobs{}, nil)

	ref := llm.FormatDataURL("image/jpeg", []byte{9, 9})
	img, err := a.GenerateImage(context.Background(), "玫瑰精华瓶", ref)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)

	// 参考图在前，提示词在后
	require.Len(t, fb.imageContents, 1)
	parts := fb.imageContents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte{9, 9}, parts[0].InlineData.Data)
	assert.Contains(t, parts[1].Text, "玫瑰精华瓶")
	assert.Equal(t, "1:1", fb.imageCfg.ImageConfig.AspectRatio)
}

func TestMediaAdapter_GenerateImage_NoInlineData(t *testing.T) {
	fb := &fakeBackend{imageResp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "sorry"}}},
	}}}}
	a := NewMediaAdapter(MediaConfig{}, factoryFor(fb, nil), &memBlobs{}, nil)

	img, err := a.GenerateImage(context.Background(), "p", "")
	assert.NoError(t, err)
	assert.Nil(t, img)
	require.Len(t, fb.imageContents[0].Parts, 1)
}

func TestMediaAdapter_GenerateImage_APIError(t *testing.T) {
	fb := &fakeBackend{imageErr: genai.APIError{Code: 403, Message: "permission denied"}}
	a := NewMediaAdapter(MediaConfig{}, factoryFor(fb, nil), &memBlobs{}, nil)

	_, err := a.GenerateImage(context.Background(), "p", "")
	require.Error(t, err)
	assert.Equal(t, types.ErrForbidden, types.GetErrorCode(err))
	assert.Equal(t, 403, types.HTTPStatusOf(err))
}

// ---------------------------------------------------------------------------
// video
// ---------------------------------------------------------------------------

func TestMediaAdapter_GenerateVideo_PollsAndDownloads(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4-bytes"))
	}))
	defer srv.Close()

	fb := &fakeBackend{ops: []*genai.GenerateVideosOperation{
		{Name: "operations/1"},
		{Name: "operations/1"},
		{Name: "operations/1", Done: true, Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{URI: srv.URL + "/v.mp4"}}},
		}},
	}}
	blobs := &memBlobs{}
	var polls int
	a := NewMediaAdapter(MediaConfig{
		APIKey:       "server",
		VideoModel:   "veo",
		PollInterval: time.Millisecond,
		OnPoll:       func() { polls++ },
	}, factoryFor(fb, nil), blobs, nil)

	var progress []string
	ctx := llm.WithCredentialOverride(context.Background(), llm.CredentialOverride{APIKey: "selected"})
	ref := llm.FormatDataURL("image/png", []byte{7})
	h, err := a.GenerateVideo(ctx, "品牌短片", func(s string) { progress = append(progress, s) }, ref)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/media/abc", h.URL)
	assert.Equal(t, "video/mp4", h.MIMEType)
	assert.Equal(t, len("mp4-bytes"), h.Size)
	assert.Equal(t, []byte("mp4-bytes"), blobs.data)
	assert.Equal(t, "selected", gotKey)
	assert.Equal(t, 3, polls)

	require.NotEmpty(t, progress)
	assert.Equal(t, progressVideoInit, progress[0])
	assert.GreaterOrEqual(t, len(progress), 4)

	assert.Contains(t, fb.videoPrompt, "品牌短片")
	require.NotNil(t, fb.videoImage)
	assert.Equal(t, "image/png", fb.videoImage.MIMEType)
	assert.Equal(t, "1080p", fb.videoCfg.Resolution)
	assert.Equal(t, "16:9", fb.videoCfg.AspectRatio)
}

func TestMediaAdapter_GenerateVideo_InlineBytes(t *testing.T) {
	fb := &fakeBackend{ops: []*genai.GenerateVideosOperation{
		{Done: true, Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{VideoBytes: []byte("raw"), MIMEType: "video/webm"}}},
		}},
	}}
	blobs := &memBlobs{}
	a := NewMediaAdapter(MediaConfig{PollInterval: time.Millisecond}, factoryFor(fb, nil), blobs, nil)

	h, err := a.GenerateVideo(context.Background(), "p", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "video/webm", h.MIMEType)
	assert.Equal(t, []byte("raw"), blobs.data)
	assert.Nil(t, fb.videoImage)
}

func TestMediaAdapter_GenerateVideo_Failures(t *testing.T) {
	tests := []struct {
		name     string
		op       *genai.GenerateVideosOperation
		wantCode types.ErrorCode
		wantMsg  string
	}{
		{
			name:     "operation error",
			op:       &genai.GenerateVideosOperation{Done: true, Error: map[string]any{"message": "safety filter"}},
			wantCode: types.ErrTaskFailed,
			wantMsg:  "safety filter",
		},
		{
			name:     "operation error without message",
			op:       &genai.GenerateVideosOperation{Done: true, Error: map[string]any{"code": 3}},
			wantCode: types.ErrTaskFailed,
			wantMsg:  "未知错误",
		},
		{
			name:     "missing uri",
			op:       &genai.GenerateVideosOperation{Done: true, Response: &genai.GenerateVideosResponse{}},
			wantCode: types.ErrMissingMedia,
			wantMsg:  "Video generation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{ops: []*genai.GenerateVideosOperation{tt.op}}
			a := NewMediaAdapter(MediaConfig{PollInterval: time.Millisecond}, factoryFor(fb, nil), &memBlobs{}, nil)

			_, err := a.GenerateVideo(context.Background(), "p", nil, "")
			require.Error(t, err)
			e, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantMsg, e.Message)
		})
	}
}

func TestMediaAdapter_GenerateVideo_DownloadNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	fb := &fakeBackend{ops: []*genai.GenerateVideosOperation{
		{Done: true, Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{URI: srv.URL}}},
		}},
	}}
	a := NewMediaAdapter(MediaConfig{PollInterval: time.Millisecond}, factoryFor(fb, nil), &memBlobs{}, nil)

	_, err := a.GenerateVideo(context.Background(), "p", nil, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, types.HTTPStatusOf(err))
}

func TestMediaAdapter_GenerateVideo_SubmitError(t *testing.T) {
	fb := &fakeBackend{submitErr: errors.New("dial tcp: refused")}
	a := NewMediaAdapter(MediaConfig{}, factoryFor(fb, nil), &memBlobs{}, nil)

	_, err := a.GenerateVideo(context.Background(), "p", nil, "")
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

func TestMediaAdapter_GenerateVideo_Cancelled(t *testing.T) {
	fb := &fakeBackend{ops: []*genai.GenerateVideosOperation{{Name: "operations/1"}}}
	a := NewMediaAdapter(MediaConfig{PollInterval: time.Hour}, factoryFor(fb, nil), &memBlobs{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := a.GenerateVideo(ctx, "p", nil, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
