package llm

import (
	"context"
	"encoding/json"
	"strings"
)

type credentialOverrideKey struct{}

// CredentialOverride 用于在单次调用内覆盖 Provider 凭据（例如用户为视频阶段选择的 Key）。
// 该结构仅通过 context 传递，不会从 API JSON 反序列化。
type CredentialOverride struct {
	APIKey string
}

func (c CredentialOverride) String() string {
	if c.APIKey == "" {
		return "CredentialOverride{}"
	}
	return "CredentialOverride{APIKey:***}"
}

func (c CredentialOverride) MarshalJSON() ([]byte, error) {
	type masked struct {
		APIKey string `json:"api_key,omitempty"`
	}
	out := masked{}
	if c.APIKey != "" {
		out.APIKey = "***"
	}
	return json.Marshal(out)
}

// WithCredentialOverride 在 ctx 中写入凭据覆盖信息。
// 传入空的 APIKey 不会改变 ctx。
func WithCredentialOverride(ctx context.Context, c CredentialOverride) context.Context {
	if strings.TrimSpace(c.APIKey) == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialOverrideKey{}, c)
}

// CredentialOverrideFromContext 从 ctx 读取凭据覆盖信息。
func CredentialOverrideFromContext(ctx context.Context) (CredentialOverride, bool) {
	c, ok := ctx.Value(credentialOverrideKey{}).(CredentialOverride)
	return c, ok
}

// ResolveAPIKey 优先使用 ctx 中的覆盖凭据，否则返回 fallback。
func ResolveAPIKey(ctx context.Context, fallback string) string {
	if c, ok := CredentialOverrideFromContext(ctx); ok {
		if k := strings.TrimSpace(c.APIKey); k != "" {
			return k
		}
	}
	return fallback
}
