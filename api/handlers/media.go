package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/BaSui01/brandforge/internal/mediastore"
	"go.uber.org/zap"
)

// MediaHandler 提供已保存的图片与视频
type MediaHandler struct {
	store  mediastore.Store
	logger *zap.Logger
}

// NewMediaHandler 创建媒体处理器
func NewMediaHandler(store mediastore.Store, logger *zap.Logger) *MediaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaHandler{store: store, logger: logger.With(zap.String("handler", "media"))}
}

// HandleGet GET /api/v1/media/{id}
// 支持 Range 请求，视频可以拖动播放
func (h *MediaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	blob, err := h.store.Get(r.Context(), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	w.Header().Set("Content-Type", blob.MIMEType)
	// id 不可变，内容不会变化
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	http.ServeContent(w, r, id, time.Time{}, bytes.NewReader(blob.Data))
}
