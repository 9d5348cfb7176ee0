package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 服务器
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxBodyBytes)

	// Provider
	assert.Equal(t, ProviderGemini, cfg.Text.Provider)
	assert.Equal(t, "gemini-3-flash-preview", cfg.Text.Model)
	assert.Equal(t, ProviderGemini, cfg.Media.Provider)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.Media.ImageModel)
	assert.Equal(t, "veo-3.1-fast-generate-preview", cfg.Media.VideoModel)
	assert.Equal(t, "1:1", cfg.Media.AspectRatio)
	assert.Zero(t, cfg.Media.PollInterval)

	// 编排
	assert.True(t, cfg.Studio.RequireSelectedKey)
	assert.Equal(t, 24*time.Hour, cfg.Studio.SessionTTL)

	// 媒体存储
	assert.Equal(t, "memory", cfg.MediaStore.Backend)
	assert.Equal(t, "localhost:6379", cfg.MediaStore.Redis.Addr)

	// 日志 / 遥测
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "brandforge", cfg.Telemetry.ServiceName)
}

func TestDefaultConfig_Independent(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	a.Log.OutputPaths[0] = "stderr"
	assert.Equal(t, "stdout", b.Log.OutputPaths[0])
}
