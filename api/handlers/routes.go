package handlers

import "net/http"

// Set 全部 API 处理器
type Set struct {
	Health  *HealthHandler
	Project *ProjectHandler
	Stage   *StageHandler
	Key     *KeyHandler
	Media   *MediaHandler
	Events  *EventsHandler

	// 构建信息，/version 返回
	Version VersionInfo
}

// Register 把全部路由注册到 mux（Go 1.22 方法 + 路径模式）
func (s *Set) Register(mux *http.ServeMux) {
	// 健康检查
	mux.HandleFunc("GET /health", s.Health.HandleHealth)
	mux.HandleFunc("GET /healthz", s.Health.HandleHealth)
	mux.HandleFunc("GET /ready", s.Health.HandleReady)
	mux.HandleFunc("GET /readyz", s.Health.HandleReady)
	mux.HandleFunc("GET /version", s.Health.HandleVersion(s.Version))

	// 项目
	mux.HandleFunc("POST /api/v1/projects", s.Project.HandleCreate)
	mux.HandleFunc("GET /api/v1/projects", s.Project.HandleList)
	mux.HandleFunc("GET /api/v1/projects/{id}", s.Project.HandleGet)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", s.Project.HandleDelete)
	mux.HandleFunc("PUT /api/v1/projects/{id}/brief", s.Project.HandleUpdateBrief)
	mux.HandleFunc("PUT /api/v1/projects/{id}/references/{stage}", s.Project.HandleSetReference)

	// 阶段
	mux.HandleFunc("POST /api/v1/projects/{id}/stages/{stage}/run", s.Stage.HandleRun)
	mux.HandleFunc("POST /api/v1/projects/{id}/stages/{stage}/refine", s.Stage.HandleRefine)
	mux.HandleFunc("POST /api/v1/projects/{id}/stages/{stage}/sessions", s.Stage.HandleNewSession)
	mux.HandleFunc("PUT /api/v1/projects/{id}/stages/{stage}/version", s.Stage.HandleSwitchVersion)

	// API Key
	mux.HandleFunc("GET /api/v1/projects/{id}/key", s.Key.HandleStatus)
	mux.HandleFunc("PUT /api/v1/projects/{id}/key", s.Key.HandleSelect)
	mux.HandleFunc("DELETE /api/v1/projects/{id}/key", s.Key.HandleClear)

	// 推送与媒体
	mux.HandleFunc("GET /api/v1/projects/{id}/events", s.Events.HandleWatch)
	mux.HandleFunc("GET /api/v1/media/{id}", s.Media.HandleGet)
}
