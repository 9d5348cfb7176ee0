package project

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// 🗄️ 内存项目存储
// =============================================================================

// Store 进程内项目存储。
// 所有变更通过 Dispatch 串行化；Watch 订阅者总能拿到最新状态。
type Store struct {
	mu       sync.Mutex
	projects map[string]*entry

	ttl     time.Duration
	now     func() time.Time
	onCount  func(int)
	onRemove func(Project)
	logger   *zap.Logger

	nextWatcher int
}

type entry struct {
	project    Project
	lastAccess time.Time
	busy       map[Stage]bool
	watchers   map[int]chan Project
}

// StoreOption 存储选项
type StoreOption func(*Store)

// WithSessionTTL 空闲超过 ttl 的项目会被 Sweep 回收，0 表示不回收
func WithSessionTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock 替换时钟（测试使用）
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithCountObserver 项目数量变化时回调（用于 active_projects 指标）
func WithCountObserver(fn func(int)) StoreOption {
	return func(s *Store) { s.onCount = fn }
}

// WithRemoveObserver 项目被删除或回收后回调，参数为移除前的最后状态。
// 回调在锁外执行，可用于释放项目关联的 Key 与媒体。
func WithRemoveObserver(fn func(Project)) StoreOption {
	return func(s *Store) { s.onRemove = fn }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore 创建项目存储
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		projects: make(map[string]*entry),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "project_store"))
	return s
}

// Create 新建空项目
func (s *Store) Create(brief Brief) Project {
	now := s.now()
	p := New(uuid.NewString(), now)
	p.Brief = brief

	s.mu.Lock()
	s.projects[p.ID] = &entry{
		project:    p,
		lastAccess: now,
		busy:       map[Stage]bool{},
		watchers:   map[int]chan Project{},
	}
	n := len(s.projects)
	s.mu.Unlock()

	s.reportCount(n)
	s.logger.Debug("project created", zap.String("project_id", p.ID))
	return p.Clone()
}

// Get 读取项目
func (s *Store) Get(id string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	e.lastAccess = s.now()
	return e.project.Clone(), nil
}

// List 按创建时间返回全部项目
func (s *Store) List() []Project {
	s.mu.Lock()
	out := make([]Project, 0, len(s.projects))
	for _, e := range s.projects {
		out = append(out, e.project.Clone())
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Project) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// Len 项目数量
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects)
}

// Delete 删除项目并关闭其订阅
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	removed := s.removeLocked(id, e)
	n := len(s.projects)
	s.mu.Unlock()

	s.reportCount(n)
	s.notifyRemoved(removed)
	s.logger.Debug("project deleted", zap.String("project_id", id))
	return nil
}

// Dispatch 依次应用事件。任一事件失败时整批都不生效。
func (s *Store) Dispatch(id string, events ...Event) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}

	next := e.project
	for _, ev := range events {
		var err error
		next, err = Apply(next, ev)
		if err != nil {
			return e.project.Clone(), err
		}
	}

	now := s.now()
	next.UpdatedAt = now
	e.project = next
	e.lastAccess = now

	snapshot := next.Clone()
	for _, ch := range e.watchers {
		offerLatest(ch, snapshot)
	}
	return snapshot, nil
}

// Acquire 获取阶段级互斥，同一阶段同一时间只允许一个操作。
// 返回的 release 可重复调用。
func (s *Store) Acquire(id string, stage Stage) (release func(), err error) {
	if err := checkStage(stage); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.busy[stage] {
		return nil, ErrStageBusy
	}
	e.busy[stage] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(e.busy, stage)
			e.lastAccess = s.now()
			s.mu.Unlock()
		})
	}, nil
}

// Watch 订阅项目状态。通道立即收到当前状态，之后每次 Dispatch 收到最新状态；
// 消费慢时中间状态会被丢弃，但最新状态总会送达。
// ctx 结束或项目被删除时通道关闭。
func (s *Store) Watch(ctx context.Context, id string) (<-chan Project, error) {
	s.mu.Lock()
	e, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	ch := make(chan Project, 1)
	ch <- e.project.Clone()
	wid := s.nextWatcher
	s.nextWatcher++
	e.watchers[wid] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := e.watchers[wid]; ok {
			delete(e.watchers, wid)
			close(c)
		}
	}()
	return ch, nil
}

// offerLatest 非阻塞投递：缓冲满时先丢弃旧状态。调用方必须持有锁。
func offerLatest(ch chan Project, p Project) {
	select {
	case ch <- p:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- p
}

// =============================================================================
// 🧹 空闲回收
// =============================================================================

// Sweep 回收空闲超过 TTL 且没有进行中操作的项目，返回回收数量
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var removed []Project
	for id, e := range s.projects {
		if len(e.busy) > 0 || e.lastAccess.After(cutoff) {
			continue
		}
		removed = append(removed, s.removeLocked(id, e))
	}
	n := len(s.projects)
	s.mu.Unlock()

	if len(removed) > 0 {
		s.reportCount(n)
		s.notifyRemoved(removed...)
		s.logger.Info("idle projects swept", zap.Int("removed", len(removed)), zap.Int("remaining", n))
	}
	return len(removed)
}

// Run 按 interval 周期执行 Sweep，直到 ctx 结束
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) removeLocked(id string, e *entry) Project {
	for wid, ch := range e.watchers {
		delete(e.watchers, wid)
		close(ch)
	}
	delete(s.projects, id)
	return e.project.Clone()
}

func (s *Store) notifyRemoved(projects ...Project) {
	if s.onRemove == nil {
		return
	}
	for _, p := range projects {
		s.onRemove(p)
	}
}

func (s *Store) reportCount(n int) {
	if s.onCount != nil {
		s.onCount(n)
	}
}
