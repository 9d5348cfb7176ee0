package mediastore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/brandforge/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldMIME = "mime"
	fieldData = "data"
)

// RedisStore 每份媒体一个 hash：mime / data，带 TTL。
type RedisStore struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewRedisStore 连接 Redis 并校验可达。
func NewRedisStore(config Config, logger *zap.Logger) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:         config.Redis.Addr,
		Password:     config.Redis.Password,
		DB:           config.Redis.DB,
		PoolSize:     config.Redis.PoolSize,
		MinIdleConns: config.Redis.MinIdleConns,
	}
	if config.Redis.TLS {
		opts.TLSConfig = tlsutil.RedisTLSConfig(config.Redis.Addr)
	}
	client := redis.NewClient(opts)

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s := &RedisStore{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "mediastore")),
		done:   make(chan struct{}),
	}

	if config.Redis.HealthCheckInterval > 0 {
		go s.healthCheckLoop()
	}

	s.logger.Info("redis media store initialized",
		zap.String("addr", config.Redis.Addr),
		zap.Bool("tls", config.Redis.TLS),
		zap.Int("pool_size", config.Redis.PoolSize),
		zap.Duration("ttl", config.TTL),
	)
	return s, nil
}

func (s *RedisStore) key(id string) string {
	return s.config.KeyPrefix + id
}

// Put 在一个事务里写入 hash 并设置过期时间。
func (s *RedisStore) Put(ctx context.Context, mimeType string, data []byte) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", errClosed
	}

	id := newID()
	key := s.key(id)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldMIME, mimeType, fieldData, data)
		if s.config.TTL > 0 {
			pipe.Expire(ctx, key, s.config.TTL)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("media put failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("media put failed: %w", err)
	}
	return s.config.PublicPrefix + id, nil
}

// Get 读取媒体。
func (s *RedisStore) Get(ctx context.Context, id string) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}

	vals, err := s.redis.HMGet(ctx, s.key(id), fieldMIME, fieldData).Result()
	if err != nil {
		return nil, fmt.Errorf("media get failed: %w", err)
	}
	mime, _ := vals[0].(string)
	data, _ := vals[1].(string)
	if mime == "" && data == "" {
		return nil, ErrNotFound
	}
	return &Blob{MIMEType: mime, Data: []byte(data)}, nil
}

// Delete 删除媒体。
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("media delete failed: %w", err)
	}
	return nil
}

// Open 按 URL 读取媒体。
func (s *RedisStore) Open(ctx context.Context, url string) (*Blob, error) {
	id, ok := IDFromURL(s.config.PublicPrefix, url)
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Remove 按 URL 删除媒体，外部 URL 直接忽略。
func (s *RedisStore) Remove(ctx context.Context, url string) error {
	id, ok := IDFromURL(s.config.PublicPrefix, url)
	if !ok {
		return nil
	}
	return s.Delete(ctx, id)
}

// Ping 检查连接。
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Close 关闭连接，重复调用无副作用。
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return s.redis.Close()
}

// healthCheckLoop 健康检查循环
func (s *RedisStore) healthCheckLoop() {
	ticker := time.NewTicker(s.config.Redis.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Ping(ctx); err != nil {
			s.logger.Error("media store health check failed", zap.Error(err))
		} else {
			s.logger.Debug("media store health check passed")
		}
		cancel()
	}
}
