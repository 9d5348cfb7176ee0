// Package mediastore 保存生成的图片与视频字节，并以 /api/v1/media/{id} 形式对外寻址。
// This package is internal and should not be imported by external projects.
package mediastore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound 媒体不存在或已过期
var ErrNotFound = errors.New("media not found")

var errClosed = errors.New("media store is closed")

// Blob 一份已保存的媒体
type Blob struct {
	MIMEType string
	Data     []byte
}

// Store 媒体存储。Put 返回可直接返回给客户端的 URL。
// Open/Remove 按该 URL 寻址，Get/Delete 按 id 寻址。
type Store interface {
	Put(ctx context.Context, mimeType string, data []byte) (string, error)
	Get(ctx context.Context, id string) (*Blob, error)
	Delete(ctx context.Context, id string) error
	Open(ctx context.Context, url string) (*Blob, error)
	Remove(ctx context.Context, url string) error
	Close() error
}

// Config 媒体存储配置
type Config struct {
	// memory | redis
	Backend string

	TTL          time.Duration
	KeyPrefix    string
	PublicPrefix string

	Redis RedisConfig
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	// 启用 TLS（托管 Redis 通常要求）
	TLS bool

	// 健康检查间隔，为零时不检查
	HealthCheckInterval time.Duration
}

// New 按 Backend 创建存储。
func New(cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PublicPrefix == "" {
		cfg.PublicPrefix = "/api/v1/media/"
	}
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.TTL, cfg.PublicPrefix), nil
	case "redis":
		return NewRedisStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported media store backend %q", cfg.Backend)
	}
}

func newID() string {
	return uuid.NewString()
}

// IDFromURL 从 Put 返回的 URL 中取出 id；前缀不符时 ok 为 false。
func IDFromURL(publicPrefix, url string) (string, bool) {
	id, ok := strings.CutPrefix(url, publicPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
