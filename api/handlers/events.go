package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BaSui01/brandforge/api"
	"github.com/BaSui01/brandforge/project"
	"github.com/BaSui01/brandforge/studio"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// EventsHandler 通过 WebSocket 推送项目状态
type EventsHandler struct {
	store          *project.Store
	keys           *studio.KeyRing
	originPatterns []string
	pingInterval   time.Duration
	writeTimeout   time.Duration
	logger         *zap.Logger
}

// NewEventsHandler 创建事件处理器。originPatterns 为允许的跨域来源（同源总是允许）。
func NewEventsHandler(store *project.Store, keys *studio.KeyRing, originPatterns []string, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{
		store:          store,
		keys:           keys,
		originPatterns: originPatterns,
		pingInterval:   30 * time.Second,
		writeTimeout:   10 * time.Second,
		logger:         logger.With(zap.String("handler", "events")),
	}
}

// HandleWatch GET /api/v1/projects/{id}/events
// 连接建立后立即推送当前状态，之后每次变化推送最新状态；消费慢时中间状态会被合并。
// 项目被删除时以 StatusGoingAway 关闭。
func (h *EventsHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.store.Get(id); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	// 长连接不受服务器写超时约束
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		// Accept 已写出错误响应
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// 只推送，不读取客户端消息；对端关闭时 ctx 结束
	ctx := conn.CloseRead(r.Context())
	updates, err := h.store.Watch(ctx, id)
	if err != nil {
		conn.Close(websocket.StatusGoingAway, "project not found")
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "project deleted")
				return
			}
			if err := h.write(ctx, conn, api.NewProjectResponse(p, h.keys.HasSelectedKey(p.ID))); err != nil {
				h.logDisconnect(id, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.logDisconnect(id, err)
				return
			}
		}
	}
}

func (h *EventsHandler) write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}

func (h *EventsHandler) logDisconnect(id string, err error) {
	if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
		return
	}
	h.logger.Debug("websocket closed", zap.String("project_id", id), zap.Error(err))
}
