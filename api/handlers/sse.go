package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// eventStream 延迟开启的 SSE 流：第一次 send 时才写出响应头，
// 在此之前失败的请求仍可以返回普通 JSON 错误与正确的状态码。
type eventStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	broken  bool
	logger  *zap.Logger
}

func newEventStream(w http.ResponseWriter, logger *zap.Logger) *eventStream {
	return &eventStream{w: w, rc: http.NewResponseController(w), logger: logger}
}

// Started 是否已写出 SSE 响应头
func (s *eventStream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// send 写出一个事件。客户端断开后的写入静默丢弃，由请求 ctx 负责终止上游。
func (s *eventStream) send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("encode sse payload", zap.String("event", event), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no") // 禁用 nginx 缓冲
		// 视频阶段可能超过服务器写超时
		_ = s.rc.SetWriteDeadline(time.Time{})
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		s.broken = true
		s.logger.Debug("sse write failed", zap.String("event", event), zap.Error(err))
		return
	}
	if err := s.rc.Flush(); err != nil {
		s.broken = true
		s.logger.Debug("sse flush failed", zap.Error(err))
	}
}
