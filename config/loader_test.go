// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, ProviderGemini, cfg.Text.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s
  cors_allowed_origins: ["http://localhost:5173"]

text:
  provider: openai-compatible
  api_key: sk-test
  model: ep-20250101
  base_url: https://ark.cn-beijing.volces.com/api/v3

media:
  provider: doubao
  image_model: seedream-5-0-lite
  video_model: seedance-1-0-pro-fast
  poll_interval: 5s

media_store:
  backend: redis
  redis:
    addr: redis:6379
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, ProviderOpenAICompatible, cfg.Text.Provider)
	assert.Equal(t, "ep-20250101", cfg.Text.Model)
	assert.Equal(t, ProviderDoubao, cfg.Media.Provider)
	assert.Equal(t, 5*time.Second, cfg.Media.PollInterval)
	assert.Equal(t, "redis", cfg.MediaStore.Backend)
	assert.Equal(t, "redis:6379", cfg.MediaStore.Redis.Addr)

	// 未出现在 YAML 中的字段保持默认值
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, "1:1", cfg.Media.AspectRatio)
	assert.Equal(t, "/api/v1/media/", cfg.MediaStore.PublicPrefix)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("text:\n  api_key: from-file\n"), 0o644))

	t.Setenv("BRANDFORGE_TEXT_API_KEY", "from-env")
	t.Setenv("BRANDFORGE_MEDIA_POLL_INTERVAL", "250ms")
	t.Setenv("BRANDFORGE_STUDIO_REQUIRE_SELECTED_KEY", "false")
	t.Setenv("BRANDFORGE_SERVER_CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("BRANDFORGE_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("BRANDFORGE_TELEMETRY_TLS", "true")
	t.Setenv("BRANDFORGE_MEDIA_STORE_REDIS_TLS", "true")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Text.APIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.Media.PollInterval)
	assert.False(t, cfg.Studio.RequireSelectedKey)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
	assert.True(t, cfg.Telemetry.TLS)
	assert.True(t, cfg.MediaStore.Redis.TLS)
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("BF_SERVER_HTTP_PORT", "9999")

	cfg, err := NewLoader().WithEnvPrefix("BF").Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.HTTPPort)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *Loader
	}{
		{
			name: "malformed yaml",
			setup: func(t *testing.T) *Loader {
				p := filepath.Join(t.TempDir(), "bad.yaml")
				require.NoError(t, os.WriteFile(p, []byte("server: [\n"), 0o644))
				return NewLoader().WithConfigPath(p)
			},
		},
		{
			name: "bad env duration",
			setup: func(t *testing.T) *Loader {
				t.Setenv("BRANDFORGE_MEDIA_POLL_INTERVAL", "soon")
				return NewLoader()
			},
		},
		{
			name: "bad env int",
			setup: func(t *testing.T) *Loader {
				t.Setenv("BRANDFORGE_SERVER_HTTP_PORT", "eighty")
				return NewLoader()
			},
		},
		{
			name: "validator rejects",
			setup: func(t *testing.T) *Loader {
				return NewLoader().WithValidator(func(c *Config) error { return c.Validate() }).
					WithValidator(func(c *Config) error {
						if c.Text.APIKey == "" {
							return assert.AnError
						}
						return nil
					})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.setup(t).Load()
			assert.Error(t, err)
		})
	}
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.HTTPPort = 70000 }, wantErr: "invalid HTTP port"},
		{name: "port clash", mutate: func(c *Config) { c.Server.MetricsPort = c.Server.HTTPPort }, wantErr: "metrics port"},
		{name: "no text provider", mutate: func(c *Config) { c.Text.Provider = " " }, wantErr: "text.provider"},
		{name: "no media provider", mutate: func(c *Config) { c.Media.Provider = "" }, wantErr: "media.provider"},
		{name: "negative poll", mutate: func(c *Config) { c.Media.PollInterval = -time.Second }, wantErr: "poll_interval"},
		{name: "unknown backend", mutate: func(c *Config) { c.MediaStore.Backend = "s3" }, wantErr: "media_store.backend"},
		{name: "bad prefix", mutate: func(c *Config) { c.MediaStore.PublicPrefix = "media" }, wantErr: "public_prefix"},
		{name: "bad sample rate", mutate: func(c *Config) { c.Telemetry.SampleRate = 2 }, wantErr: "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.HTTPPort = 0
	cfg.Text.Provider = ""
	cfg.MediaStore.Backend = "disk"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
	assert.Contains(t, err.Error(), "text.provider")
	assert.Contains(t, err.Error(), "media_store.backend")
}

func TestMustLoad_Panics(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("text: [\n"), 0o644))
	assert.Panics(t, func() { MustLoad(p) })
}
