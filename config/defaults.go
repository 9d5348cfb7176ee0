// =============================================================================
// 📦 BrandForge 默认配置
// =============================================================================
package config

import "time"

// Provider 标识
const (
	ProviderGemini           = "gemini"
	ProviderOpenAICompatible = "openai-compatible"
	ProviderDoubao           = "doubao"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Text:       DefaultTextProviderConfig(),
		Media:      DefaultMediaProviderConfig(),
		Studio:     DefaultStudioConfig(),
		MediaStore: DefaultMediaStoreConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    15 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
		MaxBodyBytes:    16 << 20,
	}
}

// DefaultTextProviderConfig 返回默认文本 Provider 配置
func DefaultTextProviderConfig() TextProviderConfig {
	return TextProviderConfig{
		Provider: ProviderGemini,
		Model:    "gemini-3-flash-preview",
	}
}

// DefaultMediaProviderConfig 返回默认媒体 Provider 配置
func DefaultMediaProviderConfig() MediaProviderConfig {
	return MediaProviderConfig{
		Provider:    ProviderGemini,
		ImageModel:  "gemini-2.5-flash-image",
		VideoModel:  "veo-3.1-fast-generate-preview",
		AspectRatio: "1:1",
		ImageSize:   "2K",
		Timeout:     2 * time.Minute,
	}
}

// DefaultStudioConfig 返回默认编排配置
func DefaultStudioConfig() StudioConfig {
	return StudioConfig{
		RequireSelectedKey: true,
		StageTimeout:       5 * time.Minute,
		VideoTimeout:       15 * time.Minute,
		SessionTTL:         24 * time.Hour,
		SweepInterval:      10 * time.Minute,
	}
}

// DefaultMediaStoreConfig 返回默认媒体存储配置
func DefaultMediaStoreConfig() MediaStoreConfig {
	return MediaStoreConfig{
		Backend:      "memory",
		TTL:          24 * time.Hour,
		KeyPrefix:    "brandforge:media:",
		PublicPrefix: "/api/v1/media/",
		Redis:        DefaultRedisConfig(),
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "brandforge",
		SampleRate:   0.1,
	}
}
