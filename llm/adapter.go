package llm

import (
	"context"

	"github.com/BaSui01/brandforge/types"
)

// Error 与 types.Error 为同一类型，Provider 与上层共用一套错误契约。
type Error = types.Error

// AIStreamChunk 是文本流中的一个增量片段。
// 流中出错时以携带 Err 的最后一个 chunk 结束。
type AIStreamChunk struct {
	Text string `json:"text"`
	Err  *Error `json:"error,omitempty"`
}

// TextStreamAdapter 把 (prompt, systemInstruction) 转换为有序、有限、只读一次的文本片段流。
// 返回的通道在任何退出路径上都会被关闭；取消 ctx 会释放上游连接。
type TextStreamAdapter interface {
	GenerateContentStream(ctx context.Context, prompt, systemInstruction string) (<-chan AIStreamChunk, error)
}

// Image 生成的单张图片。
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL 返回 data:{mime};base64,... 形式。
func (i *Image) DataURL() string {
	return FormatDataURL(i.MIMEType, i.Data)
}

// VideoHandle 指向已落地到本地存储的视频。
type VideoHandle struct {
	URL      string `json:"url"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// ProgressFunc 接收人类可读的进度描述，仅用于观察。
type ProgressFunc func(status string)

// MediaAdapter 统一的图片/视频生成能力。
type MediaAdapter interface {
	// GenerateImage 生成单张图片。referenceImage 为可选 data URL。
	// Provider 成功返回但没有图片时返回 (nil, nil)。
	GenerateImage(ctx context.Context, prompt, referenceImage string) (*Image, error)

	// GenerateVideo 通过 创建任务 → 轮询 → 下载 生成视频，返回本地句柄。
	GenerateVideo(ctx context.Context, prompt string, onProgress ProgressFunc, referenceImage string) (*VideoHandle, error)
}

// BlobStore 保存媒体字节并返回可寻址的 URL。
type BlobStore interface {
	Put(ctx context.Context, mimeType string, data []byte) (string, error)
}

// Progress 安全调用可能为 nil 的回调。
func (f ProgressFunc) Progress(status string) {
	if f != nil {
		f(status)
	}
}
