package handlers

import (
	"context"
	"net/http"

	"github.com/BaSui01/brandforge/api"
	"github.com/BaSui01/brandforge/project"
	"github.com/BaSui01/brandforge/studio"
	"go.uber.org/zap"
)

// =============================================================================
// 🎬 阶段 Handler
// =============================================================================

// StageHandler 阶段运行、追问、会话与版本切换
type StageHandler struct {
	studio *studio.Studio
	logger *zap.Logger
}

// NewStageHandler 创建阶段处理器
func NewStageHandler(s *studio.Studio, logger *zap.Logger) *StageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageHandler{
		studio: s,
		logger: logger.With(zap.String("handler", "stage")),
	}
}

// stageOp 一次流式阶段操作
type stageOp func(ctx context.Context, id string, stage project.Stage, obs studio.Observer) (project.Project, error)

// HandleRun POST /api/v1/projects/{id}/stages/{stage}/run
// @Produce text/event-stream
// 事件：progress（视频进度）、state（结构变化）、delta（流式文本）、done 或 error
func (h *StageHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req api.RunRequest
	if err := DecodeJSONBody(r, &req, true); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	h.stream(w, r, func(ctx context.Context, id string, stage project.Stage, obs studio.Observer) (project.Project, error) {
		return h.studio.Run(ctx, id, stage, studio.RunOptions{Custom: req.Custom}, obs)
	})
}

// HandleRefine POST /api/v1/projects/{id}/stages/{stage}/refine
// 与 run 相同的事件约定
func (h *StageHandler) HandleRefine(w http.ResponseWriter, r *http.Request) {
	var req api.RefineRequest
	if err := DecodeJSONBody(r, &req, false); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	h.stream(w, r, func(ctx context.Context, id string, stage project.Stage, obs studio.Observer) (project.Project, error) {
		return h.studio.Refine(ctx, id, stage, req.Text, obs)
	})
}

// stream 运行阶段操作并以 SSE 推送过程。操作在推送任何事件前失败时
// （项目不存在、阶段繁忙、简报不完整、未选择 Key）返回普通 JSON 错误。
func (h *StageHandler) stream(w http.ResponseWriter, r *http.Request, op stageOp) {
	id := r.PathValue("id")
	stage, err := project.ParseStage(r.PathValue("stage"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	es := newEventStream(w, h.logger)
	keys := h.studio.Keys()
	obs := studio.Observer{
		OnState: func(p project.Project) {
			es.send(api.EventState, api.NewProjectResponse(p, keys.HasSelectedKey(p.ID)))
		},
		OnDelta: func(st project.Stage, content string) {
			es.send(api.EventDelta, api.DeltaEvent{Stage: st, Content: content})
		},
		OnProgress: func(status string) {
			es.send(api.EventProgress, api.ProgressEvent{Stage: stage, Status: status})
		},
	}

	p, err := op(r.Context(), id, stage, obs)
	if err != nil {
		if !es.Started() {
			WriteError(w, r, err, h.logger)
			return
		}
		info := errorInfo(ToAPIError(err))
		es.send(api.EventError, api.ErrorEvent{Code: info.Code, Message: info.Message, Retryable: info.Retryable})
		return
	}
	es.send(api.EventDone, api.NewProjectResponse(p, keys.HasSelectedKey(p.ID)))
}

// HandleNewSession POST /api/v1/projects/{id}/stages/{stage}/sessions
// 归档当前内容并开启新会话
func (h *StageHandler) HandleNewSession(w http.ResponseWriter, r *http.Request) {
	stage, err := project.ParseStage(r.PathValue("stage"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	p, err := h.studio.NewSession(r.Context(), r.PathValue("id"), stage)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.NewProjectResponse(p, h.studio.Keys().HasSelectedKey(p.ID)))
}

// HandleSwitchVersion PUT /api/v1/projects/{id}/stages/{stage}/version
func (h *StageHandler) HandleSwitchVersion(w http.ResponseWriter, r *http.Request) {
	stage, err := project.ParseStage(r.PathValue("stage"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	var req api.VersionRequest
	if err := DecodeJSONBody(r, &req, false); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	p, err := h.studio.SwitchVersion(r.Context(), r.PathValue("id"), stage, req.Index)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.NewProjectResponse(p, h.studio.Keys().HasSelectedKey(p.ID)))
}
