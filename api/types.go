package api

import (
	"strings"
	"time"

	"github.com/BaSui01/brandforge/project"
)

// =============================================================================
// 项目
// =============================================================================

// ProjectResponse 项目完整状态。
// @Description 项目状态，含各阶段对话、媒体、历史与版本指针
type ProjectResponse struct {
	project.Project
	// 是否已为视频阶段选择 API Key（Key 本身不会返回）
	KeySelected bool `json:"key_selected"`
}

// NewProjectResponse 由项目状态构造响应
func NewProjectResponse(p project.Project, keySelected bool) ProjectResponse {
	return ProjectResponse{Project: p, KeySelected: keySelected}
}

// ProjectSummary 列表项
type ProjectSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// 已有内容的阶段，按工作流顺序
	Stages    []project.Stage `json:"stages"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewProjectSummary 由项目状态构造列表项
func NewProjectSummary(p project.Project) ProjectSummary {
	stages := make([]project.Stage, 0, len(p.Stages))
	for _, s := range project.Stages {
		if !p.Stage(s).IsEmpty() {
			stages = append(stages, s)
		}
	}
	return ProjectSummary{
		ID:        p.ID,
		Name:      p.Brief.Name,
		Stages:    stages,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ProjectList 项目列表
type ProjectList struct {
	Projects []ProjectSummary `json:"projects"`
	Total    int              `json:"total"`
}

// BriefRequest 品牌与市场信息。未提供的字段视为清空。
// @Description 品牌简报
type BriefRequest struct {
	Name           string `json:"name" example:"Aura"`
	TargetAudience string `json:"target_audience" example:"25-35岁都市女性"`
	SalesChannels  string `json:"sales_channels" example:"抖音"`
	SalesRegions   string `json:"sales_regions" example:"中国"`
	PainPoints     string `json:"pain_points" example:"干燥"`
	CoreValues     string `json:"core_values,omitempty"`
}

// Brief 转换为领域类型，去掉首尾空白
func (r BriefRequest) Brief() project.Brief {
	return project.Brief{
		Name:           strings.TrimSpace(r.Name),
		TargetAudience: strings.TrimSpace(r.TargetAudience),
		SalesChannels:  strings.TrimSpace(r.SalesChannels),
		SalesRegions:   strings.TrimSpace(r.SalesRegions),
		PainPoints:     strings.TrimSpace(r.PainPoints),
		CoreValues:     strings.TrimSpace(r.CoreValues),
	}
}

// ReferenceRequest 设置参考图，data_url 为空时清除。
type ReferenceRequest struct {
	DataURL string `json:"data_url"`
}

// =============================================================================
// 阶段
// =============================================================================

// RunRequest 运行阶段
type RunRequest struct {
	// 用户补充要求（可选）
	Custom string `json:"custom,omitempty"`
}

// RefineRequest 追问优化
type RefineRequest struct {
	Text string `json:"text" binding:"required"`
}

// VersionRequest 切换历史版本
type VersionRequest struct {
	Index int `json:"index"`
}

// =============================================================================
// SSE 事件
// =============================================================================

// SSE 事件名。state 携带完整项目，delta 只携带流式文本。
const (
	EventProgress = "progress"
	EventState    = "state"
	EventDelta    = "delta"
	EventDone     = "done"
	EventError    = "error"
)

// DeltaEvent 流式片段，Content 是该阶段最后一条消息的累计文本
type DeltaEvent struct {
	Stage   project.Stage `json:"stage"`
	Content string        `json:"content"`
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Stage  project.Stage `json:"stage"`
	Status string        `json:"status"`
}

// ErrorEvent 流中错误事件
type ErrorEvent struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// =============================================================================
// API Key
// =============================================================================

// KeyRequest 选择 API Key
type KeyRequest struct {
	APIKey string `json:"api_key"`
}

// KeyStatus Key 选择状态
type KeyStatus struct {
	Selected bool `json:"selected"`
}
