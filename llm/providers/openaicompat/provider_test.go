package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/brandforge/llm"
	"github.com/BaSui01/brandforge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// tb 同时兼容 *testing.T 与 *rapid.T
type tb interface {
	Helper()
	Errorf(format string, args ...any)
	Fatal(args ...any)
	FailNow()
}

func collect(t tb, ch <-chan llm.AIStreamChunk) ([]string, *llm.Error) {
	t.Helper()
	var texts []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return texts, nil
			}
			if c.Err != nil {
				// 错误 chunk 之后通道必须关闭
				_, more := <-ch
				assert.False(t, more)
				return texts, c.Err
			}
			texts = append(texts, c.Text)
		case <-timeout:
			t.Fatal("stream did not close")
			return nil, nil
		}
	}
}

func deltaLine(text string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": text}}},
	})
	return "data: " + string(b) + "\n"
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

// chunkedReader 按给定的切分点返回数据，模拟任意 TCP 读边界。
type chunkedReader struct {
	data  []byte
	sizes []int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := len(r.data)
	if len(r.sizes) > 0 {
		n = r.sizes[0]
		r.sizes = r.sizes[1:]
	}
	if n > len(p) {
		n = len(p)
	}
	if n > len(r.data) {
		n = len(r.data)
	}
	if n < 1 {
		n = 1
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

// ---------------------------------------------------------------------------
// SSE decoder
// ---------------------------------------------------------------------------

func TestStreamSSE_Decoding(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "basic deltas then done",
			body: deltaLine("Hel") + deltaLine("lo") + "data: [DONE]\n",
			want: []string{"Hel", "lo"},
		},
		{
			name: "ignores comments and non-data lines",
			body: ": keep-alive\n" + "event: message\n" + deltaLine("A") + "\n" + "id: 3\n" + deltaLine("B"),
			want: []string{"A", "B"},
		},
		{
			name: "skips malformed json",
			body: "data: {not json\n" + deltaLine("ok"),
			want: []string{"ok"},
		},
		{
			name: "empty delta and empty choices emit nothing",
			body: deltaLine("") + "data: {\"choices\":[]}\n" + deltaLine("x"),
			want: []string{"x"},
		},
		{
			name: "nothing after done",
			body: deltaLine("a") + "data: [DONE]\n" + deltaLine("late"),
			want: []string{"a"},
		},
		{
			name: "final unterminated line processed at eof",
			body: deltaLine("a") + strings.TrimSuffix(deltaLine("tail"), "\n"),
			want: []string{"a", "tail"},
		},
		{
			name: "crlf line endings",
			body: strings.ReplaceAll(deltaLine("r")+deltaLine("n"), "\n", "\r\n"),
			want: []string{"r", "n"},
		},
		{
			name: "data without space is not a data line",
			body: "data:{\"choices\":[{\"delta\":{\"content\":\"nope\"}}]}\n" + deltaLine("yes"),
			want: []string{"yes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := &trackingBody{Reader: strings.NewReader(tt.body)}
			got, err := collect(t, StreamSSE(context.Background(), body, "test"))
			require.Nil(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, body.closed)
		})
	}
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, deltaLine("partial")), nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestStreamSSE_ReadErrorEndsWithErrorChunk(t *testing.T) {
	body := &trackingBody{Reader: &failingReader{}}
	got, err := collect(t, StreamSSE(context.Background(), body, "test"))

	assert.Equal(t, []string{"partial"}, got)
	require.NotNil(t, err)
	assert.Equal(t, types.ErrUpstreamError, err.Code)
	assert.Equal(t, "test", err.Provider)
	assert.True(t, body.closed)
}

func TestStreamSSE_CancelReleasesBody(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	ch := StreamSSE(ctx, pr, "test")
	go func() {
		_, _ = pw.Write([]byte(deltaLine("one")))
	}()

	first := <-ch
	assert.Equal(t, "one", first.Text)

	cancel()
	// 解除阻塞中的读
	_ = pw.CloseWithError(context.Canceled)

	select {
	case _, ok := <-ch:
		if ok {
			// 允许在关闭前丢弃的残留，但通道最终必须关闭
			for range ch {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

// 任意读边界切分都不改变输出序列
func TestStreamSSE_ReadBoundaryProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		parts := rapid.SliceOfN(rapid.StringMatching(`[a-zA-Z0-9 品牌故事,.!]{1,12}`), 0, 8).Draw(rt, "parts")
		var sb strings.Builder
		for _, p := range parts {
			sb.WriteString(deltaLine(p))
		}
		terminated := rapid.Bool().Draw(rt, "terminated")
		if terminated {
			sb.WriteString("data: [DONE]\n")
		}
		data := []byte(sb.String())
		sizes := rapid.SliceOfN(rapid.IntRange(1, 17), 0, 64).Draw(rt, "sizes")

		body := &trackingBody{Reader: &chunkedReader{data: data, sizes: sizes}}
		got, err := collect(rt, StreamSSE(context.Background(), body, "prop"))
		require.Nil(rt, err)
		if len(parts) == 0 {
			assert.Empty(rt, got)
		} else {
			assert.Equal(rt, parts, got)
		}
	})
}

// ---------------------------------------------------------------------------
// TextAdapter over HTTP
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	a := New(Config{Model: "m"}, nil)
	assert.Equal(t, "openai-compatible", a.Name())
	assert.Equal(t, DefaultBaseURL, a.cfg.BaseURL)
	assert.Zero(t, a.client.Timeout)
}

func TestGenerateContentStream_Request(t *testing.T) {
	var gotBody chatRequest
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, deltaLine("市场"))
		fmt.Fprint(w, deltaLine("分析"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a := New(Config{APIKey: "sk-test", Model: "gpt-4o", BaseURL: srv.URL + "/v1/"}, nil)
	ch, err := a.GenerateContentStream(context.Background(), "prompt", "system")
	require.NoError(t, err)

	got, streamErr := collect(t, ch)
	require.Nil(t, streamErr)
	assert.Equal(t, []string{"市场", "分析"}, got)

	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o", gotBody.Model)
	assert.True(t, gotBody.Stream)
	assert.Equal(t, []chatMessage{
		{Role: "system", Content: "system"},
		{Role: "user", Content: "prompt"},
	}, gotBody.Messages)
}

func TestGenerateContentStream_NoSystemMessage(t *testing.T) {
	assert.Equal(t, []chatMessage{{Role: "user", Content: "p"}}, buildMessages("p", ""))
}

func TestGenerateContentStream_CredentialOverride(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	a := New(Config{APIKey: "server-key", Model: "m", BaseURL: srv.URL}, nil)
	ctx := llm.WithCredentialOverride(context.Background(), llm.CredentialOverride{APIKey: "user-key"})
	ch, err := a.GenerateContentStream(ctx, "p", "")
	require.NoError(t, err)
	_, _ = collect(t, ch)

	assert.Equal(t, "Bearer user-key", gotAuth)
}

func TestGenerateContentStream_HTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  types.ErrorCode
		wantMsg   string
		retryable bool
	}{
		{name: "unauthorized", status: 401, body: `{"error":{"message":"invalid api key"}}`, wantCode: types.ErrUnauthorized, wantMsg: "invalid api key"},
		{name: "rate limited", status: 429, body: "slow down", wantCode: types.ErrRateLimited, wantMsg: "slow down", retryable: true},
		{name: "quota", status: 400, body: `{"error":{"message":"quota exhausted"}}`, wantCode: types.ErrQuotaExceeded, wantMsg: "quota exhausted"},
		{name: "server error", status: 500, body: "internal", wantCode: types.ErrUpstreamError, wantMsg: "internal", retryable: true},
		{name: "empty body uses status", status: 503, body: "", wantCode: types.ErrUpstreamError, wantMsg: "503 Service Unavailable", retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			a := New(Config{APIKey: "k", Model: "m", BaseURL: srv.URL}, nil)
			ch, err := a.GenerateContentStream(context.Background(), "p", "s")
			assert.Nil(t, ch)
			require.Error(t, err)

			apiErr, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.HTTPStatus)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.retryable, apiErr.Retryable)
			assert.Equal(t, "openai-compatible", apiErr.Provider)
		})
	}
}

func TestGenerateContentStream_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a := New(Config{Model: "m", BaseURL: url}, nil)
	_, err := a.GenerateContentStream(context.Background(), "p", "")
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}
