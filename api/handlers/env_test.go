package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/brandforge/api"
	"github.com/BaSui01/brandforge/internal/mediastore"
	"github.com/BaSui01/brandforge/llm"
	"github.com/BaSui01/brandforge/project"
	"github.com/BaSui01/brandforge/studio"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 测试桩
// =============================================================================

type stubText struct {
	chunks []string
	err    *llm.Error
	calls  int
	mu     sync.Mutex
}

func (s *stubText) GenerateContentStream(ctx context.Context, prompt, system string) (<-chan llm.AIStreamChunk, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	ch := make(chan llm.AIStreamChunk, len(s.chunks)+1)
	for _, c := range s.chunks {
		ch <- llm.AIStreamChunk{Text: c}
	}
	if s.err != nil {
		ch <- llm.AIStreamChunk{Err: s.err}
	}
	close(ch)
	return ch, nil
}

func (s *stubText) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubMedia struct {
	blobs    llm.BlobStore
	progress []string
	videoErr error
	apiKey   string

	mu   sync.Mutex
	refs []string
}

func (m *stubMedia) GenerateImage(ctx context.Context, prompt, ref string) (*llm.Image, error) {
	m.mu.Lock()
	m.refs = append(m.refs, ref)
	m.mu.Unlock()
	return &llm.Image{MIMEType: "image/png", Data: []byte("png")}, nil
}

// Refs 返回每次生成收到的参考图
func (m *stubMedia) Refs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.refs...)
}

func (m *stubMedia) GenerateVideo(ctx context.Context, prompt string, onProgress llm.ProgressFunc, ref string) (*llm.VideoHandle, error) {
	m.mu.Lock()
	m.refs = append(m.refs, ref)
	m.mu.Unlock()
	m.apiKey = llm.ResolveAPIKey(ctx, "")
	for _, p := range m.progress {
		onProgress.Progress(p)
	}
	if m.videoErr != nil {
		return nil, m.videoErr
	}
	url, err := m.blobs.Put(ctx, "video/mp4", []byte("mp4"))
	if err != nil {
		return nil, err
	}
	return &llm.VideoHandle{URL: url, MIMEType: "video/mp4", Size: 3}, nil
}

// =============================================================================
// 🧪 测试环境
// =============================================================================

type testEnv struct {
	store  *project.Store
	blobs  *mediastore.MemoryStore
	text   *stubText
	media  *stubMedia
	studio *studio.Studio
	mux    *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	var st *studio.Studio
	store := project.NewStore(project.WithRemoveObserver(func(p project.Project) { st.ReleaseProject(p) }))
	blobs := mediastore.NewMemoryStore(time.Hour, "/api/v1/media/")
	text := &stubText{chunks: []string{"第一段", "，第二段"}}
	media := &stubMedia{blobs: blobs}

	st, err := studio.New(studio.Config{RequireSelectedKey: true}, studio.Deps{
		Store: store,
		Text:  text,
		Media: media,
		Blobs: blobs,
	})
	require.NoError(t, err)

	logger := zap.NewNop()
	set := &Set{
		Health:  NewHealthHandler(logger),
		Project: NewProjectHandler(store, st, logger),
		Stage:   NewStageHandler(st, logger),
		Key:     NewKeyHandler(store, st.Keys(), logger),
		Media:   NewMediaHandler(blobs, logger),
		Events:  NewEventsHandler(store, st.Keys(), nil, logger),
		Version: VersionInfo{Version: "1.0.0", BuildTime: "now", GitCommit: "abc"},
	}
	mux := http.NewServeMux()
	set.Register(mux)

	return &testEnv{store: store, blobs: blobs, text: text, media: media, studio: st, mux: mux}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func auraBrief() project.Brief {
	return project.Brief{
		Name:           "Aura",
		TargetAudience: "25-35岁都市女性",
		SalesChannels:  "抖音",
		SalesRegions:   "中国",
		PainPoints:     "干燥",
	}
}

// envelope 解码统一响应
type envelope[T any] struct {
	Success   bool       `json:"success"`
	Data      T          `json:"data"`
	Error     *ErrorInfo `json:"error"`
	RequestID string     `json:"request_id"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

type sseEvent struct {
	Name string
	Data string
}

func readEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var out []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			if v, ok := strings.CutPrefix(line, "event: "); ok {
				ev.Name = v
			}
			if v, ok := strings.CutPrefix(line, "data: "); ok {
				ev.Data = v
			}
		}
		require.NotEmpty(t, ev.Name, "malformed event block %q", block)
		out = append(out, ev)
	}
	return out
}

func eventNames(events []sseEvent) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Name
	}
	return names
}

func decodeProject(t *testing.T, data string) api.ProjectResponse {
	t.Helper()
	var p api.ProjectResponse
	require.NoError(t, json.Unmarshal([]byte(data), &p))
	return p
}
