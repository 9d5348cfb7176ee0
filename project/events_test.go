package project

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func mustApply(t require.TestingT, p Project, events ...Event) Project {
	for _, ev := range events {
		var err error
		p, err = Apply(p, ev)
		require.NoError(t, err)
	}
	return p
}

func TestParseStage(t *testing.T) {
	for _, s := range Stages {
		got, err := ParseStage(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStage("launch-party")
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestBrief_Missing(t *testing.T) {
	full := Brief{Name: "Aura", TargetAudience: "25-35 urban women", SalesChannels: "Douyin", SalesRegions: "China", PainPoints: "dryness"}
	// 核心价值不是必填
	assert.Empty(t, full.Missing())

	noPain := full
	noPain.PainPoints = "  "
	assert.Equal(t, []string{"pain_points"}, noPain.Missing())

	assert.Len(t, Brief{}.Missing(), 5)
}

func TestApply_SeedAndStream(t *testing.T) {
	p := New("p1", t0)
	p = mustApply(t, p,
		ImageAttached{Stage: StageVisualIdentity, URL: "/media/old"},
		StageSeeded{Stage: StageVisualIdentity, Placeholder: "正在设计..."},
	)
	d := p.Stage(StageVisualIdentity)
	require.Len(t, d.Messages, 1)
	assert.Equal(t, RoleAssistant, d.Messages[0].Role)
	assert.Equal(t, "/media/old", d.ImageURL, "seeding keeps media")

	for _, partial := range []string{"品", "品牌", "品牌视觉"} {
		p = mustApply(t, p, LastMessageReplaced{Stage: StageVisualIdentity, Content: partial})
	}
	assert.Equal(t, "品牌视觉", p.Stage(StageVisualIdentity).LastMessage())
	assert.Len(t, p.Stage(StageVisualIdentity).Messages, 1)
}

func TestApply_TurnAppended(t *testing.T) {
	p := mustApply(t, New("p1", t0),
		StageSeeded{Stage: StageBrandStory, Placeholder: "..."},
		LastMessageReplaced{Stage: StageBrandStory, Content: "story v1"},
		TurnAppended{Stage: StageBrandStory, UserText: "更温暖一些", Placeholder: "正在思考..."},
	)
	assert.Equal(t, []ChatMessage{
		{Role: RoleAssistant, Content: "story v1"},
		{Role: RoleUser, Content: "更温暖一些"},
		{Role: RoleAssistant, Content: "正在思考..."},
	}, p.Stage(StageBrandStory).Messages)
}

func TestApply_Errors(t *testing.T) {
	p := New("p1", t0)

	tests := []struct {
		name string
		ev   Event
		want error
	}{
		{name: "unknown stage", ev: StageSeeded{Stage: "nope"}, want: ErrUnknownStage},
		{name: "replace on empty", ev: LastMessageReplaced{Stage: StageBrandStory, Content: "x"}, want: ErrNoMessages},
		{name: "version without history", ev: VersionSwitched{Stage: StageBrandStory, Index: 0}, want: ErrVersionOutOfRange},
		{name: "negative version", ev: VersionSwitched{Stage: StageBrandStory, Index: -1}, want: ErrVersionOutOfRange},
		{name: "reference on text stage", ev: ReferenceImageSet{Stage: StageBrandStory, URL: "/media/ref"}, want: ErrReferenceNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(p, tt.ev)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, p, got)
		})
	}
}

func TestApply_ReferenceSetAndClear(t *testing.T) {
	p := mustApply(t, New("p1", t0), ReferenceImageSet{Stage: StagePackagingDesign, URL: "/media/ref"})
	assert.Equal(t, "/media/ref", p.Reference(StagePackagingDesign))

	p = mustApply(t, p, ReferenceImageSet{Stage: StagePackagingDesign})
	_, ok := p.References[StagePackagingDesign]
	assert.False(t, ok)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	base := mustApply(t, New("p1", t0),
		StageSeeded{Stage: StageMarketAnalysis, Placeholder: "a"},
		SessionStarted{Stage: StageMarketAnalysis, At: t0},
		StageSeeded{Stage: StageMarketAnalysis, Placeholder: "b"},
	)
	before := base.Clone()

	_ = mustApply(t, base,
		LastMessageReplaced{Stage: StageMarketAnalysis, Content: "changed"},
		TurnAppended{Stage: StageMarketAnalysis, UserText: "q", Placeholder: "..."},
		SessionStarted{Stage: StageMarketAnalysis, At: t0.Add(time.Hour)},
		VersionSwitched{Stage: StageMarketAnalysis, Index: 1},
		ImageAttached{Stage: StageVisualIdentity, URL: "/media/x"},
		ReferenceImageSet{Stage: StageMarketingVideo, URL: "/media/ref"},
	)
	assert.Equal(t, before, base)
}

// =============================================================================
// 属性测试
// =============================================================================

// 新会话：非空阶段恰好追加一个带时间戳的快照并清空实时数据；空阶段不追加
func TestProperty_NewSessionSnapshots(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("new session archives live data exactly once", prop.ForAll(
		func(msgCount int, withImage bool, withVideo bool, priorSessions int, offset int) bool {
			stage := StagePackagingDesign
			p := New("p", t0)
			for i := 0; i < priorSessions; i++ {
				p, _ = Apply(p, StageSeeded{Stage: stage, Placeholder: fmt.Sprintf("old-%d", i)})
				p, _ = Apply(p, SessionStarted{Stage: stage, At: t0})
			}
			for i := 0; i < msgCount; i++ {
				p, _ = Apply(p, TurnAppended{Stage: stage, UserText: "u", Placeholder: fmt.Sprintf("a-%d", i)})
			}
			if withImage {
				p, _ = Apply(p, ImageAttached{Stage: stage, URL: "/media/img"})
			}
			if withVideo {
				p, _ = Apply(p, VideoAttached{Stage: stage, URL: "/media/vid"})
			}
			if priorSessions > 0 {
				p, _ = Apply(p, VersionSwitched{Stage: stage, Index: 0})
				if msgCount > 0 {
					p, _ = Apply(p, TurnAppended{Stage: stage, UserText: "u", Placeholder: "after-switch"})
				}
			}

			live := p.Stage(stage)
			historyBefore := len(p.History[stage])
			at := t0.Add(time.Duration(offset) * time.Minute)

			next, err := Apply(p, SessionStarted{Stage: stage, At: at})
			if err != nil {
				t.Logf("apply failed: %v", err)
				return false
			}

			history := next.History[stage]
			if live.IsEmpty() {
				if len(history) != historyBefore {
					t.Logf("empty stage grew history: %d -> %d", historyBefore, len(history))
					return false
				}
			} else {
				if len(history) != historyBefore+1 {
					t.Logf("expected one snapshot, history %d -> %d", historyBefore, len(history))
					return false
				}
				last := history[len(history)-1]
				if !last.Timestamp.Equal(at) {
					return false
				}
				if !assert.ObjectsAreEqual(live, last.Data) {
					t.Logf("snapshot mismatch: %+v vs %+v", live, last.Data)
					return false
				}
			}

			if !next.Stage(stage).IsEmpty() {
				t.Logf("live data not cleared: %+v", next.Stage(stage))
				return false
			}
			if _, ok := next.Version(stage); ok {
				t.Logf("version pointer not cleared")
				return false
			}
			return true
		},
		gen.IntRange(0, 4),
		gen.Bool(),
		gen.Bool(),
		gen.IntRange(0, 3),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}

// genProject 生成带随机历史的项目
func genProject(rt *rapid.T) Project {
	p := New("p", t0)
	for _, stage := range Stages {
		sessions := rapid.IntRange(0, 4).Draw(rt, string(stage)+"/sessions")
		for i := 0; i < sessions; i++ {
			msgs := rapid.IntRange(1, 3).Draw(rt, fmt.Sprintf("%s/%d/msgs", stage, i))
			p = mustApply(rt, p, StageSeeded{Stage: stage, Placeholder: fmt.Sprintf("%s-%d-0", stage, i)})
			for j := 1; j < msgs; j++ {
				p = mustApply(rt, p, TurnAppended{Stage: stage, UserText: "q", Placeholder: fmt.Sprintf("%s-%d-%d", stage, i, j)})
			}
			if rapid.Bool().Draw(rt, fmt.Sprintf("%s/%d/img", stage, i)) {
				p = mustApply(rt, p, ImageAttached{Stage: stage, URL: fmt.Sprintf("/media/%s-%d", stage, i)})
			}
			p = mustApply(rt, p, SessionStarted{Stage: stage, At: t0.Add(time.Duration(i) * time.Hour)})
		}
		if rapid.Bool().Draw(rt, string(stage)+"/live") {
			p = mustApply(rt, p, StageSeeded{Stage: stage, Placeholder: "live"})
		}
	}
	return p
}

// 切换到版本 i 恰好恢复快照 i，且不触碰其它阶段
func TestProperty_SwitchVersionRestoresSnapshot(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := genProject(rt)

		var withHistory []Stage
		for _, s := range Stages {
			if len(p.History[s]) > 0 {
				withHistory = append(withHistory, s)
			}
		}
		if len(withHistory) == 0 {
			rt.Skip("no history generated")
		}
		stage := rapid.SampledFrom(withHistory).Draw(rt, "stage")
		idx := rapid.IntRange(0, len(p.History[stage])-1).Draw(rt, "index")
		before := p.Clone()

		next, err := Apply(p, VersionSwitched{Stage: stage, Index: idx})
		require.NoError(rt, err)

		assert.Equal(rt, p.History[stage][idx].Data, next.Stage(stage))
		v, ok := next.Version(stage)
		require.True(rt, ok)
		assert.Equal(rt, idx, v)

		for _, other := range Stages {
			if other == stage {
				continue
			}
			assert.Equal(rt, p.Stage(other), next.Stage(other), "stage %s touched", other)
			assert.Equal(rt, p.History[other], next.History[other])
			_, hadVersion := p.Version(other)
			_, hasVersion := next.Version(other)
			assert.Equal(rt, hadVersion, hasVersion)
		}
		assert.Equal(rt, p.History[stage], next.History[stage], "history is append-only")
		assert.Equal(rt, before, p, "input must not change")
	})
}

func TestProperty_SwitchVersionOutOfRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := genProject(rt)
		stage := rapid.SampledFrom(Stages).Draw(rt, "stage")
		n := len(p.History[stage])
		idx := rapid.OneOf(rapid.IntRange(n, n+5), rapid.IntRange(-5, -1)).Draw(rt, "index")

		got, err := Apply(p, VersionSwitched{Stage: stage, Index: idx})
		assert.ErrorIs(rt, err, ErrVersionOutOfRange)
		assert.Equal(rt, p, got)
	})
}
