package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/brandforge/api/handlers"
	"github.com/BaSui01/brandforge/config"
	"github.com/BaSui01/brandforge/internal/mediastore"
	"github.com/BaSui01/brandforge/internal/metrics"
	"github.com/BaSui01/brandforge/internal/server"
	"github.com/BaSui01/brandforge/internal/telemetry"
	"github.com/BaSui01/brandforge/llm/factory"
	"github.com/BaSui01/brandforge/project"
	"github.com/BaSui01/brandforge/studio"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 🖥️ 服务器
// =============================================================================

// Server 组装全部组件，管理 API 与 Metrics 两个端口及优雅关闭
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers
	collector *metrics.Collector

	media    mediastore.Store
	store    *project.Store
	selector *factory.Selector
	studio   *studio.Studio
	handlers *handlers.Set

	httpManager    *server.Manager
	metricsManager *server.Manager

	// 后台任务（会话清理、限流 visitor 清理）
	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// NewServer 按配置构造全部依赖，不监听端口
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers, collector *metrics.Collector) (*Server, error) {
	media, err := mediastore.New(mediaStoreConfig(cfg.MediaStore), logger)
	if err != nil {
		return nil, fmt.Errorf("media store: %w", err)
	}

	selector, err := factory.NewSelector(cfg.Text, cfg.Media, factory.Deps{
		Blobs:    media,
		Recorder: collector,
		Logger:   logger,
	})
	if err != nil {
		_ = media.Close()
		return nil, err
	}

	// 项目删除或回收时释放 Key 与参考图；st 在下方创建，回调只会在之后触发
	var st *studio.Studio
	store := project.NewStore(
		project.WithSessionTTL(cfg.Studio.SessionTTL),
		project.WithCountObserver(collector.SetActiveProjects),
		project.WithRemoveObserver(func(p project.Project) { st.ReleaseProject(p) }),
		project.WithLogger(logger),
	)

	st, err = studio.New(studio.Config{
		RequireSelectedKey: cfg.Studio.RequireSelectedKey,
		StageTimeout:       cfg.Studio.StageTimeout,
		VideoTimeout:       cfg.Studio.VideoTimeout,
	}, studio.Deps{
		Store:    store,
		Text:     selector.Text(),
		Media:    selector.Media(),
		Blobs:    media,
		Recorder: collector,
		Logger:   logger,
	})
	if err != nil {
		_ = media.Close()
		return nil, err
	}

	health := handlers.NewHealthHandler(logger)
	if pinger, ok := media.(interface{ Ping(context.Context) error }); ok {
		health.RegisterCheck(handlers.NewRedisHealthCheck(pinger.Ping))
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		logger:    logger,
		telemetry: otelProviders,
		collector: collector,
		media:     media,
		store:     store,
		selector:  selector,
		studio:    st,
		handlers: &handlers.Set{
			Health:  health,
			Project: handlers.NewProjectHandler(store, st, logger),
			Stage:   handlers.NewStageHandler(st, logger),
			Key:     handlers.NewKeyHandler(store, st.Keys(), logger),
			Media:   handlers.NewMediaHandler(media, logger),
			Events:  handlers.NewEventsHandler(store, st.Keys(), wsOriginPatterns(cfg.Server.CORSAllowedOrigins), logger),
			Version: handlers.VersionInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		},
		bgCtx:    bgCtx,
		bgCancel: bgCancel,
	}, nil
}

func mediaStoreConfig(c config.MediaStoreConfig) mediastore.Config {
	return mediastore.Config{
		Backend:      c.Backend,
		TTL:          c.TTL,
		KeyPrefix:    c.KeyPrefix,
		PublicPrefix: c.PublicPrefix,
		Redis: mediastore.RedisConfig{
			Addr:                c.Redis.Addr,
			Password:            c.Redis.Password,
			DB:                  c.Redis.DB,
			PoolSize:            c.Redis.PoolSize,
			MinIdleConns:        c.Redis.MinIdleConns,
			TLS:                 c.Redis.TLS,
			HealthCheckInterval: 30 * time.Second,
		},
	}
}

// wsOriginPatterns 把 CORS 来源（含 scheme）转换为 WebSocket 的 host 模式
func wsOriginPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		out = append(out, o)
	}
	return out
}

// Handler 构建带完整中间件链的 API handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handlers.Register(mux)

	sc := s.cfg.Server
	return Chain(mux,
		RequestID(),
		Recovery(s.logger),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		OTelTracing(),
		CORS(sc.CORSAllowedOrigins),
		RateLimiter(s.bgCtx, float64(sc.RateLimitRPS), sc.RateLimitBurst, s.logger),
		BodyLimit(sc.MaxBodyBytes),
	)
}

// =============================================================================
// 🎯 生命周期
// =============================================================================

// Start 启动会话清理、API 服务与 Metrics 服务
func (s *Server) Start() error {
	go s.store.Run(s.bgCtx, s.cfg.Studio.SweepInterval)

	sc := s.cfg.Server
	s.httpManager = server.NewManager(s.Handler(), server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", sc.HTTPPort),
		ReadTimeout:     sc.ReadTimeout,
		WriteTimeout:    sc.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: sc.ShutdownTimeout,
	}, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("start api server: %w", err)
	}

	if sc.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		s.metricsManager = server.NewManager(mux, server.Config{
			Name:            "metrics",
			Addr:            fmt.Sprintf(":%d", sc.MetricsPort),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		}, s.logger)
		if err := s.metricsManager.Start(); err != nil {
			_ = s.httpManager.Shutdown(context.Background())
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	s.logger.Info("BrandForge started",
		zap.Int("http_port", sc.HTTPPort),
		zap.Int("metrics_port", sc.MetricsPort),
		zap.String("text_provider", s.selector.TextProvider()),
		zap.String("media_provider", s.selector.MediaProvider()),
		zap.String("media_store", s.cfg.MediaStore.Backend),
	)
	return nil
}

// WaitForShutdown 阻塞到收到信号或 API 服务异常退出，随后关闭全部组件
func (s *Server) WaitForShutdown() error {
	cause := s.httpManager.WaitForShutdown(context.Background())
	return errors.Join(cause, s.Shutdown(context.Background()))
}

// Shutdown 依次关闭 Metrics 服务、后台任务、媒体存储与遥测
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpManager != nil {
		errs = append(errs, s.httpManager.Shutdown(ctx))
	}
	if s.metricsManager != nil {
		errs = append(errs, s.metricsManager.Shutdown(ctx))
	}
	s.bgCancel()
	if err := s.media.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close media store: %w", err))
	}

	tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.telemetry.Shutdown(tctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
