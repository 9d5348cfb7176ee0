package llm

import (
	"encoding/base64"
	"fmt"
	"regexp"
)

var dataURLPattern = regexp.MustCompile(`^data:(image/[\w.+-]+);base64,(.+)$`)

// DataURL 是拆分后的 data URL。
type DataURL struct {
	MIMEType string
	Base64   string
}

// ParseDataURL 从 data:image/...;base64,... 中提取 MIME 类型与 base64 负载。
// 非图片或格式不符时 ok 为 false。
func ParseDataURL(s string) (DataURL, bool) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return DataURL{}, false
	}
	return DataURL{MIMEType: m[1], Base64: m[2]}, true
}

// Bytes 解码 base64 负载。
func (d DataURL) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(d.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return b, nil
}

// FormatDataURL 组装 data URL。
func FormatDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
