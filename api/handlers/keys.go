package handlers

import (
	"net/http"

	"github.com/BaSui01/brandforge/api"
	"github.com/BaSui01/brandforge/project"
	"github.com/BaSui01/brandforge/studio"
	"go.uber.org/zap"
)

// KeyHandler 视频阶段的 API Key 选择。Key 只写不读，响应中只返回是否已选择。
type KeyHandler struct {
	store  *project.Store
	keys   *studio.KeyRing
	logger *zap.Logger
}

// NewKeyHandler 创建 Key 处理器
func NewKeyHandler(store *project.Store, keys *studio.KeyRing, logger *zap.Logger) *KeyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyHandler{store: store, keys: keys, logger: logger.With(zap.String("handler", "key"))}
}

// HandleStatus GET /api/v1/projects/{id}/key
func (h *KeyHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.store.Get(id); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.KeyStatus{Selected: h.keys.HasSelectedKey(id)})
}

// HandleSelect PUT /api/v1/projects/{id}/key
func (h *KeyHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.store.Get(id); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	var req api.KeyRequest
	if err := DecodeJSONBody(r, &req, false); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if err := h.keys.SelectKey(id, req.APIKey); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	h.logger.Info("api key selected", zap.String("project_id", id))
	WriteSuccess(w, r, api.KeyStatus{Selected: true})
}

// HandleClear DELETE /api/v1/projects/{id}/key
func (h *KeyHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.store.Get(id); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	h.keys.ClearKey(id)
	WriteSuccess(w, r, api.KeyStatus{Selected: false})
}
