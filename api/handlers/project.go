package handlers

import (
	"net/http"

	"github.com/BaSui01/brandforge/api"
	"github.com/BaSui01/brandforge/project"
	"github.com/BaSui01/brandforge/studio"
	"go.uber.org/zap"
)

// =============================================================================
// 📁 项目 Handler
// =============================================================================

// ProjectHandler 项目增删查与简报、参考图维护
type ProjectHandler struct {
	store  *project.Store
	studio *studio.Studio
	keys   *studio.KeyRing
	logger *zap.Logger
}

// NewProjectHandler 创建项目处理器。参考图经由 studio 写入媒体存储。
func NewProjectHandler(store *project.Store, st *studio.Studio, logger *zap.Logger) *ProjectHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectHandler{
		store:  store,
		studio: st,
		keys:   st.Keys(),
		logger: logger.With(zap.String("handler", "project")),
	}
}

func (h *ProjectHandler) view(p project.Project) api.ProjectResponse {
	return api.NewProjectResponse(p, h.keys.HasSelectedKey(p.ID))
}

// HandleCreate POST /api/v1/projects
// 请求体可选，提供时作为初始简报
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.BriefRequest
	if err := DecodeJSONBody(r, &req, true); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	p := h.store.Create(req.Brief())
	h.logger.Info("project created", zap.String("project_id", p.ID))
	WriteStatus(w, r, http.StatusCreated, h.view(p))
}

// HandleList GET /api/v1/projects
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	projects := h.store.List()
	items := make([]api.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		items = append(items, api.NewProjectSummary(p))
	}
	WriteSuccess(w, r, api.ProjectList{Projects: items, Total: len(items)})
}

// HandleGet GET /api/v1/projects/{id}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, h.view(p))
}

// HandleDelete DELETE /api/v1/projects/{id}
// Key 与参考图由 store 的移除回调释放
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(id); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	h.logger.Info("project deleted", zap.String("project_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateBrief PUT /api/v1/projects/{id}/brief
func (h *ProjectHandler) HandleUpdateBrief(w http.ResponseWriter, r *http.Request) {
	var req api.BriefRequest
	if err := DecodeJSONBody(r, &req, false); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	p, err := h.store.Dispatch(r.PathValue("id"), project.BriefUpdated{Brief: req.Brief()})
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, h.view(p))
}

// HandleSetReference PUT /api/v1/projects/{id}/references/{stage}
// 只有包装与视频阶段接受参考图；data_url 为空时清除。响应里只有媒体 URL。
func (h *ProjectHandler) HandleSetReference(w http.ResponseWriter, r *http.Request) {
	stage, err := project.ParseStage(r.PathValue("stage"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	var req api.ReferenceRequest
	if err := DecodeJSONBody(r, &req, false); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	p, err := h.studio.SetReference(r.Context(), r.PathValue("id"), stage, req.DataURL)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, h.view(p))
}
