package project

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// =============================================================================
// 🧭 阶段
// =============================================================================

// Stage 品牌工作流中的一个阶段
type Stage string

const (
	StageMarketAnalysis  Stage = "market-analysis"
	StageBrandStory      Stage = "brand-story"
	StageFormulaDesign   Stage = "formula-design"
	StageVisualIdentity  Stage = "visual-identity"
	StagePackagingDesign Stage = "packaging-design"
	StageMarketingVideo  Stage = "marketing-video"

	// StageProductionFile 包装设计的生产文件子步骤（刀版图）
	StageProductionFile Stage = "production-file"
)

// Stages 按工作流顺序排列的全部阶段（生产文件紧随包装设计）
var Stages = []Stage{
	StageMarketAnalysis,
	StageBrandStory,
	StageFormulaDesign,
	StageVisualIdentity,
	StagePackagingDesign,
	StageProductionFile,
	StageMarketingVideo,
}

// Valid 是否为已知阶段
func (s Stage) Valid() bool {
	return slices.Contains(Stages, s)
}

// AcceptsReference 该阶段是否接受参考图
func (s Stage) AcceptsReference() bool {
	return s == StagePackagingDesign || s == StageMarketingVideo
}

// ParseStage 解析阶段标识
func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, raw)
	}
	return s, nil
}

// =============================================================================
// 💬 阶段数据
// =============================================================================

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage 阶段对话中的一条消息
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StageData 某个阶段的实时数据
type StageData struct {
	Messages []ChatMessage `json:"messages"`
	ImageURL string        `json:"image_url,omitempty"`
	VideoURL string        `json:"video_url,omitempty"`
}

// IsEmpty 没有消息也没有媒体
func (d StageData) IsEmpty() bool {
	return len(d.Messages) == 0 && d.ImageURL == "" && d.VideoURL == ""
}

// LastMessage 返回最后一条消息的内容，没有消息时返回空串
func (d StageData) LastMessage() string {
	if len(d.Messages) == 0 {
		return ""
	}
	return d.Messages[len(d.Messages)-1].Content
}

// Clone 深拷贝
func (d StageData) Clone() StageData {
	d.Messages = slices.Clone(d.Messages)
	return d
}

// Snapshot 历史会话快照
type Snapshot struct {
	Data      StageData `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// 📋 品牌简报
// =============================================================================

// Brief 品牌与市场基础信息
type Brief struct {
	Name           string `json:"name"`
	TargetAudience string `json:"target_audience"`
	SalesChannels  string `json:"sales_channels"`
	SalesRegions   string `json:"sales_regions"`
	PainPoints     string `json:"pain_points"`
	CoreValues     string `json:"core_values"`
}

// Missing 返回市场分析所需但为空的字段名
func (b Brief) Missing() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("name", b.Name)
	check("target_audience", b.TargetAudience)
	check("sales_channels", b.SalesChannels)
	check("sales_regions", b.SalesRegions)
	check("pain_points", b.PainPoints)
	return missing
}

// =============================================================================
// 🗂️ 项目
// =============================================================================

// Project 品牌项目（聚合根）
type Project struct {
	ID    string `json:"id"`
	Brief Brief  `json:"brief"`

	// 各阶段实时数据，未出现的阶段视为空
	Stages map[Stage]StageData `json:"stages"`
	// 参考图媒体 URL（包装设计、营销视频），图片字节在媒体存储中
	References map[Stage]string `json:"references,omitempty"`
	// 每个阶段只追加的历史快照
	History map[Stage][]Snapshot `json:"history,omitempty"`
	// 当前查看的历史版本，缺省表示实时数据
	CurrentVersion map[Stage]int `json:"current_version,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New 创建空项目
func New(id string, now time.Time) Project {
	return Project{
		ID:             id,
		Stages:         map[Stage]StageData{},
		References:     map[Stage]string{},
		History:        map[Stage][]Snapshot{},
		CurrentVersion: map[Stage]int{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Stage 返回阶段实时数据
func (p Project) Stage(s Stage) StageData {
	return p.Stages[s]
}

// Reference 返回阶段参考图
func (p Project) Reference(s Stage) string {
	return p.References[s]
}

// Version 返回阶段当前版本指针
func (p Project) Version(s Stage) (int, bool) {
	i, ok := p.CurrentVersion[s]
	return i, ok
}

// Clone 深拷贝，调用方可以随意修改返回值
func (p Project) Clone() Project {
	out := p
	out.Stages = make(map[Stage]StageData, len(p.Stages))
	for k, v := range p.Stages {
		out.Stages[k] = v.Clone()
	}
	out.References = maps.Clone(p.References)
	if out.References == nil {
		out.References = map[Stage]string{}
	}
	out.History = make(map[Stage][]Snapshot, len(p.History))
	for k, snaps := range p.History {
		cp := make([]Snapshot, len(snaps))
		for i, s := range snaps {
			cp[i] = Snapshot{Data: s.Data.Clone(), Timestamp: s.Timestamp}
		}
		out.History[k] = cp
	}
	out.CurrentVersion = maps.Clone(p.CurrentVersion)
	if out.CurrentVersion == nil {
		out.CurrentVersion = map[Stage]int{}
	}
	return out
}
