package project

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Event 项目状态变更事件。所有变更都经由 Apply 完成。
type Event interface {
	// Kind 事件名称（日志与追踪使用）
	Kind() string
	apply(p *Project) error
}

// Apply 将事件应用到项目上并返回新项目。
// Apply 不修改 p：被触及的 map 与 slice 都会先复制再写入。
func Apply(p Project, ev Event) (Project, error) {
	next := p
	if err := ev.apply(&next); err != nil {
		return p, fmt.Errorf("%s: %w", ev.Kind(), err)
	}
	return next, nil
}

// --- copy-on-write 辅助 ---

func (p *Project) putStage(s Stage, d StageData) {
	m := maps.Clone(p.Stages)
	if m == nil {
		m = map[Stage]StageData{}
	}
	m[s] = d
	p.Stages = m
}

func (p *Project) putReference(s Stage, url string) {
	m := maps.Clone(p.References)
	if m == nil {
		m = map[Stage]string{}
	}
	if url == "" {
		delete(m, s)
	} else {
		m[s] = url
	}
	p.References = m
}

func (p *Project) appendSnapshot(s Stage, snap Snapshot) {
	m := maps.Clone(p.History)
	if m == nil {
		m = map[Stage][]Snapshot{}
	}
	// 新 slice，避免与旧项目共享底层数组
	m[s] = append(slices.Clip(m[s]), snap)
	p.History = m
}

func (p *Project) setVersion(s Stage, i int, live bool) {
	_, had := p.CurrentVersion[s]
	if live && !had {
		return
	}
	m := maps.Clone(p.CurrentVersion)
	if m == nil {
		m = map[Stage]int{}
	}
	if live {
		delete(m, s)
	} else {
		m[s] = i
	}
	p.CurrentVersion = m
}

func checkStage(s Stage) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStage, s)
	}
	return nil
}

// =============================================================================
// 📨 事件定义
// =============================================================================

// BriefUpdated 替换品牌简报
type BriefUpdated struct {
	Brief Brief
}

func (BriefUpdated) Kind() string { return "brief_updated" }

func (e BriefUpdated) apply(p *Project) error {
	p.Brief = e.Brief
	return nil
}

// ReferenceImageSet 设置或清除（URL 为空）阶段参考图，URL 指向媒体存储
type ReferenceImageSet struct {
	Stage Stage
	URL   string
}

func (ReferenceImageSet) Kind() string { return "reference_image_set" }

func (e ReferenceImageSet) apply(p *Project) error {
	if err := checkStage(e.Stage); err != nil {
		return err
	}
	if !e.Stage.AcceptsReference() {
		return fmt.Errorf("%w: %s", ErrReferenceNotAllowed, e.Stage)
	}
	p.putReference(e.Stage, e.URL)
	return nil
}

// StageSeeded 用一条助手占位消息替换阶段的实时消息，媒体保留，回到实时版本
type StageSeeded struct {
	Stage       Stage
	Placeholder string
}

func (StageSeeded) Kind() string { return "stage_seeded" }

func (e StageSeeded) apply(p *Project) error {
	if err := checkStage(e.Stage); err != nil {
		return err
	}
	d := p.Stages[e.Stage]
	d.Messages = []ChatMessage{{Role: RoleAssistant, Content: e.Placeholder}}
	p.putStage(e.Stage, d)
	p.setVersion(e.Stage, 0, true)
	return nil
}

// TurnAppended 追加一轮用户消息与助手占位消息
type TurnAppended struct {
	Stage       Stage
	UserText    string
	Placeholder string
}

func (TurnAppended) Kind() string { return "turn_appended" }

func (e TurnAppended) apply(p *Project) error {
	if err := checkStage(e.Stage); err != nil {
		return err
	}
	d := p.Stages[e.Stage]
	msgs := make([]ChatMessage, 0, len(d.Messages)+2)
	msgs = append(msgs, d.Messages...)
	msgs = append(msgs,
		ChatMessage{Role: RoleUser, Content: e.UserText},
		ChatMessage{Role: RoleAssistant, Content: e.Placeholder},
	)
	d.Messages = msgs
	p.putStage(e.Stage, d)
	return nil
}

// LastMessageReplaced 替换阶段最后一条消息的内容
type LastMessageReplaced struct {
	Stage   Stage
	Content string
}

func (LastMessageReplaced) Kind() string { return "last_message_replaced" }

func (e LastMessageReplaced) apply(p *Project) error {
	if err := checkStage(e.Stage); err != nil {
		return err
	}
	d := p.Stages[e.Stage]
	if len(d.Messages) == 0 {
		return fmt.Errorf("%w: %s", ErrNoMessages, e.Stage)
	}
	msgs := slices.Clone(d.Messages)
	msgs[len(msgs)-1].Content = e.Content
	d.Messages = msgs
	p.putStage(e.Stage, d)
	return nil
}

// ImageAttached 设置阶段图片，URL 为空表示清除
type ImageAttached struct {
	Stage Stage
	URL   string
}

func (ImageAttached) Kind() string { return "image_attached" }

func (e ImageAttached) apply(p *Project) error {
	if err := checkStage(e.Stage); err != nil {
		return err
	}
	d := p.Stages[e.Stage]
	d.ImageURL = e.URL
	p.putStage(e.Stage, d)
	return nil
}

// VideoAttached 设置阶段视频
type VideoAttached struct {
	Stage Stage
	URL   string
}

func (VideoAttached) Kind() string { return "video_attached" }

func (e VideoAttached) apply(p *Project) error {
	if err := checkStage(e.Stage); err != nil {
		return err
	}
	d := p.Stages[e.Stage]
	d.VideoURL = e.URL
	p.putStage(e.Stage, d)
	return nil
}

// SessionStarted 开启新会话：非空的实时数据带时间戳归档到历史，
// 然后清空实时数据与版本指针。实时数据为空时不追加快照。
type SessionStarted struct {
	Stage Stage
	At    time.Time
}

func (SessionStarted) Kind() string { return "session_started" }

func (e SessionStarted) apply(p *Project) error {
	if err := checkStage(e.Stage); err != nil {
		return err
	}
	live := p.Stages[e.Stage]
	if !live.IsEmpty() {
		p.appendSnapshot(e.Stage, Snapshot{Data: live.Clone(), Timestamp: e.At})
	}
	if _, ok := p.Stages[e.Stage]; ok {
		p.putStage(e.Stage, StageData{})
	}
	p.setVersion(e.Stage, 0, true)
	return nil
}

// VersionSwitched 恢复第 Index 个历史快照，并记录版本指针
type VersionSwitched struct {
	Stage Stage
	Index int
}

func (VersionSwitched) Kind() string { return "version_switched" }

func (e VersionSwitched) apply(p *Project) error {
	if err := checkStage(e.Stage); err != nil {
		return err
	}
	history := p.History[e.Stage]
	if e.Index < 0 || e.Index >= len(history) {
		return fmt.Errorf("%w: %d of %d", ErrVersionOutOfRange, e.Index, len(history))
	}
	p.putStage(e.Stage, history[e.Index].Data.Clone())
	p.setVersion(e.Stage, e.Index, false)
	return nil
}
