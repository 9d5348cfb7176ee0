package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/brandforge/internal/ctxkeys"
	"github.com/BaSui01/brandforge/internal/mediastore"
	"github.com/BaSui01/brandforge/llm"
	"github.com/BaSui01/brandforge/project"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/BaSui01/brandforge/studio"

const (
	statusSuccess  = "success"
	statusError    = "error"
	statusRejected = "rejected"
)

// Recorder 接收阶段运行指标，*metrics.Collector 满足该接口。
type Recorder interface {
	RecordStageRun(stage, operation, status string, duration time.Duration)
	RecordMediaStored(kind string, size int)
}

// Config 编排配置
type Config struct {
	// 视频阶段是否要求已选择 Key
	RequireSelectedKey bool
	// 文本/图片阶段超时，0 表示只受 ctx 约束
	StageTimeout time.Duration
	// 视频阶段超时
	VideoTimeout time.Duration
}

// MediaStore 保存生成结果与参考图，*mediastore.MemoryStore 与 *mediastore.RedisStore 满足该接口。
type MediaStore interface {
	llm.BlobStore
	Open(ctx context.Context, url string) (*mediastore.Blob, error)
	Remove(ctx context.Context, url string) error
}

// Deps 编排依赖
type Deps struct {
	Store    *project.Store
	Text     llm.TextStreamAdapter
	Media    llm.MediaAdapter
	Blobs    MediaStore
	Keys     *KeyRing
	Recorder Recorder
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Observer 接收操作过程中的状态与进度，回调都可以为 nil。
// 同一操作内的回调是串行的，状态按提交顺序送达。
type Observer struct {
	OnState func(project.Project)
	// OnDelta 接收流式片段后的累计文本。设置后片段不再触发 OnState，
	// 占位、图片等结构变化仍走 OnState。
	OnDelta    func(stage project.Stage, content string)
	OnProgress func(status string)
}

// RunOptions 阶段运行参数
type RunOptions struct {
	// Custom 用户补充要求，可为空
	Custom string
}

// Studio 六阶段品牌工作流编排器
type Studio struct {
	cfg      Config
	store    *project.Store
	text     llm.TextStreamAdapter
	media    llm.MediaAdapter
	blobs    MediaStore
	keys     *KeyRing
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
	tracer   trace.Tracer
}

// New 创建编排器
func New(cfg Config, deps Deps) (*Studio, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("studio: project store is required")
	case deps.Text == nil:
		return nil, errors.New("studio: text adapter is required")
	case deps.Media == nil:
		return nil, errors.New("studio: media adapter is required")
	case deps.Blobs == nil:
		return nil, errors.New("studio: blob store is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	keys := deps.Keys
	if keys == nil {
		keys = NewKeyRing()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	return &Studio{
		cfg:      cfg,
		store:    deps.Store,
		text:     deps.Text,
		media:    deps.Media,
		blobs:    deps.Blobs,
		keys:     keys,
		recorder: deps.Recorder,
		logger:   logger.With(zap.String("component", "studio")),
		now:      now,
		tracer:   otel.Tracer(instrumentationName),
	}, nil
}

// Keys 返回 Key 选择表
func (s *Studio) Keys() *KeyRing { return s.keys }

// =============================================================================
// ▶️ 阶段运行
// =============================================================================

// Run 运行阶段：写入占位消息、流式生成文本，并按阶段并发生成图片或视频。
func (s *Studio) Run(ctx context.Context, projectID string, stage project.Stage, opts RunOptions, obs Observer) (p project.Project, err error) {
	ctx, done := s.begin(ctx, projectID, stage, OpRun)
	defer func() { done(err) }()

	release, err := s.store.Acquire(projectID, stage)
	if err != nil {
		return project.Project{}, err
	}
	defer release()

	cur, err := s.store.Get(projectID)
	if err != nil {
		return project.Project{}, err
	}

	em := newEmitter(s.store, projectID, obs)

	if stage == project.StageMarketingVideo {
		key, ok := s.keys.lookup(projectID)
		if !ok && s.cfg.RequireSelectedKey {
			return project.Project{}, keyRequiredError()
		}
		ref, err := s.openReference(ctx, cur.Reference(stage))
		if err != nil {
			return project.Project{}, err
		}
		return s.runVideo(ctx, em, cur, opts.Custom, key, ref)
	}

	if stage == project.StageMarketAnalysis {
		if missing := cur.Brief.Missing(); len(missing) > 0 {
			s.logger.Debug("brief incomplete",
				zap.String("project_id", projectID),
				zap.Strings("missing", missing))
			return project.Project{}, validationError(msgBriefIncomplete)
		}
	}

	pl := plans[stage](cur, opts.Custom)
	var img *imageJob
	if pl.withImage {
		ref, err := s.openReference(ctx, pl.imageRef)
		if err != nil {
			return project.Project{}, err
		}
		img = &imageJob{prompt: pl.imagePrompt, ref: ref, keepOnEmpty: pl.keepImageOnEmpty}
	}
	return s.execute(ctx, em, stage, OpRun,
		project.StageSeeded{Stage: stage, Placeholder: pl.placeholder},
		pl.prompt, pl.system, img)
}

func (s *Studio) runVideo(ctx context.Context, em *emitter, cur project.Project, custom, apiKey, ref string) (project.Project, error) {
	stage := project.StageMarketingVideo
	ctx, cancel := withTimeout(ctx, s.cfg.VideoTimeout)
	defer cancel()
	ctx = llm.WithCredentialOverride(ctx, llm.CredentialOverride{APIKey: apiKey})

	em.progress(progressVideoPrepare)
	video, err := s.media.GenerateVideo(ctx, videoPrompt(cur, custom), em.progress, ref)
	if err != nil {
		return project.Project{}, stageFailure(stage, OpRun, err)
	}
	s.recordMedia("video", video.Size)

	p, err := em.dispatch(project.VideoAttached{Stage: stage, URL: video.URL})
	if err != nil {
		return project.Project{}, stageFailure(stage, OpRun, err)
	}
	return p, nil
}

// =============================================================================
// 🔁 追问优化
// =============================================================================

// Refine 基于当前对话追问或补充要求。视觉与包装阶段同时更新图片。
func (s *Studio) Refine(ctx context.Context, projectID string, stage project.Stage, text string, obs Observer) (p project.Project, err error) {
	ctx, done := s.begin(ctx, projectID, stage, OpRefine)
	defer func() { done(err) }()

	text = strings.TrimSpace(text)
	if stage == project.StageMarketingVideo {
		return project.Project{}, validationError(msgRefineVideo)
	}
	if text == "" {
		return project.Project{}, validationError(msgRefineEmpty)
	}

	release, err := s.store.Acquire(projectID, stage)
	if err != nil {
		return project.Project{}, err
	}
	defer release()

	cur, err := s.store.Get(projectID)
	if err != nil {
		return project.Project{}, err
	}

	live := cur.Stage(stage)
	request := text
	var (
		current string
		seed    project.Event
	)
	switch stage {
	case project.StageProductionFile:
		// 生产规范整体重写，不保留对话轮次
		current = live.LastMessage()
		seed = project.StageSeeded{Stage: stage, Placeholder: placeholderRefineSpec}
	default:
		current = transcript(live.Messages)
		seed = project.TurnAppended{Stage: stage, UserText: text, Placeholder: placeholderRefine}
	}
	if stage == project.StagePackagingDesign {
		request += concisePackagingTip
	}

	var img *imageJob
	if imagePrompt := refineImagePrompt(stage, cur.Brief.Name, text); imagePrompt != "" {
		img = &imageJob{prompt: imagePrompt, keepOnEmpty: true}
		if stage == project.StagePackagingDesign {
			if img.ref, err = s.openReference(ctx, cur.Reference(stage)); err != nil {
				return project.Project{}, err
			}
		}
	}

	em := newEmitter(s.store, projectID, obs)
	return s.execute(ctx, em, stage, OpRefine, seed,
		refinePrompt(current, request, brandContext(cur.Brief)), systemRefine, img)
}

// =============================================================================
// 🕘 会话与版本
// =============================================================================

// NewSession 归档当前阶段数据并开启新会话
func (s *Studio) NewSession(ctx context.Context, projectID string, stage project.Stage) (p project.Project, err error) {
	_, done := s.begin(ctx, projectID, stage, OpNewSession)
	defer func() { done(err) }()

	release, err := s.store.Acquire(projectID, stage)
	if err != nil {
		return project.Project{}, err
	}
	defer release()

	return s.store.Dispatch(projectID, project.SessionStarted{Stage: stage, At: s.now()})
}

// SwitchVersion 切换到第 index 个历史快照
func (s *Studio) SwitchVersion(ctx context.Context, projectID string, stage project.Stage, index int) (p project.Project, err error) {
	_, done := s.begin(ctx, projectID, stage, OpSwitchVersion)
	defer func() { done(err) }()

	release, err := s.store.Acquire(projectID, stage)
	if err != nil {
		return project.Project{}, err
	}
	defer release()

	return s.store.Dispatch(projectID, project.VersionSwitched{Stage: stage, Index: index})
}

// =============================================================================
// ⚙️ 执行
// =============================================================================

type imageJob struct {
	prompt      string
	ref         string
	keepOnEmpty bool
}

// execute 写入 seed 后并发执行文本流与图片生成，两者都完成才算成功。
func (s *Studio) execute(ctx context.Context, em *emitter, stage project.Stage, op Operation, seed project.Event, prompt, system string, img *imageJob) (project.Project, error) {
	if _, err := em.dispatch(seed); err != nil {
		return project.Project{}, err
	}

	ctx, cancel := withTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()

	var imageURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.streamText(gctx, em, stage, prompt, system)
	})
	if img != nil {
		g.Go(func() error {
			url, err := s.storeImage(gctx, img.prompt, img.ref)
			imageURL = url
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return project.Project{}, stageFailure(stage, op, err)
	}

	if img != nil && (imageURL != "" || !img.keepOnEmpty) {
		p, err := em.dispatch(project.ImageAttached{Stage: stage, URL: imageURL})
		if err != nil {
			return project.Project{}, stageFailure(stage, op, err)
		}
		return p, nil
	}
	return s.store.Get(em.projectID)
}

// streamText 每收到一个片段就用累计文本替换最后一条消息
func (s *Studio) streamText(ctx context.Context, em *emitter, stage project.Stage, prompt, system string) error {
	stream, err := s.text.GenerateContentStream(ctx, prompt, system)
	if err != nil {
		return err
	}

	var dispatchErr error
	_, err = llm.Accumulate(ctx, stream, func(full string) {
		if dispatchErr != nil {
			return
		}
		dispatchErr = em.replace(stage, full)
	})
	if err != nil {
		return err
	}
	return dispatchErr
}

// storeImage 生成图片并落地到媒体存储，没有图片时返回空 URL
func (s *Studio) storeImage(ctx context.Context, prompt, ref string) (string, error) {
	img, err := s.media.GenerateImage(ctx, prompt, ref)
	if err != nil || img == nil {
		return "", err
	}
	url, err := s.blobs.Put(ctx, img.MIMEType, img.Data)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	s.recordMedia("image", len(img.Data))
	return url, nil
}

func (s *Studio) recordMedia(kind string, size int) {
	if s.recorder != nil {
		s.recorder.RecordMediaStored(kind, size)
	}
}

// begin 开启 span，返回的 done 负责记录指标、日志并结束 span
func (s *Studio) begin(ctx context.Context, projectID string, stage project.Stage, op Operation) (context.Context, func(error)) {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, "studio."+string(op), trace.WithAttributes(
		attribute.String("project.id", projectID),
		attribute.String("studio.stage", string(stage)),
	))

	return ctx, func(err error) {
		status := statusSuccess
		fields := []zap.Field{
			zap.String("project_id", projectID),
			zap.String("stage", string(stage)),
			zap.String("operation", string(op)),
			zap.Duration("duration", s.now().Sub(started)),
		}
		if rid, ok := ctxkeys.RequestID(ctx); ok {
			fields = append(fields, zap.String("request_id", rid))
		}
		switch _, failed := AsStageError(err); {
		case err == nil:
			s.logger.Info("stage operation completed", fields...)
		case failed:
			status = statusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Warn("stage operation failed", append(fields, zap.Error(err))...)
		default:
			status = statusRejected
			s.logger.Debug("stage operation rejected", append(fields, zap.Error(err))...)
		}
		span.SetAttributes(attribute.String("studio.status", status))
		span.End()

		if s.recorder != nil {
			s.recorder.RecordStageRun(string(stage), string(op), status, s.now().Sub(started))
		}
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// =============================================================================
// 📣 事件发射
// =============================================================================

// emitter 串行化同一操作内的状态提交与回调，保证观察者看到的顺序与提交顺序一致
type emitter struct {
	mu        sync.Mutex
	store     *project.Store
	projectID string
	obs       Observer
}

func newEmitter(store *project.Store, projectID string, obs Observer) *emitter {
	return &emitter{store: store, projectID: projectID, obs: obs}
}

func (e *emitter) dispatch(events ...project.Event) (project.Project, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.Dispatch(e.projectID, events...)
	if err != nil {
		return project.Project{}, err
	}
	if e.obs.OnState != nil {
		e.obs.OnState(p)
	}
	return p, nil
}

// replace 用累计文本替换最后一条消息
func (e *emitter) replace(stage project.Stage, content string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.Dispatch(e.projectID, project.LastMessageReplaced{Stage: stage, Content: content})
	if err != nil {
		return err
	}
	switch {
	case e.obs.OnDelta != nil:
		e.obs.OnDelta(stage, content)
	case e.obs.OnState != nil:
		e.obs.OnState(p)
	}
	return nil
}

func (e *emitter) progress(status string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.obs.OnProgress != nil {
		e.obs.OnProgress(status)
	}
}
