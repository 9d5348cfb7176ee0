package llm

import "context"

// Accumulate 按到达顺序拼接流中的片段，每收到一个片段就以累计文本回调 onText。
// 流以错误 chunk 结束时返回已累计的文本与该错误。
func Accumulate(ctx context.Context, stream <-chan AIStreamChunk, onText func(full string)) (string, error) {
	var full []byte
	for {
		select {
		case <-ctx.Done():
			return string(full), ctx.Err()
		case chunk, ok := <-stream:
			if !ok {
				return string(full), nil
			}
			if chunk.Err != nil {
				return string(full), chunk.Err
			}
			if chunk.Text == "" {
				continue
			}
			full = append(full, chunk.Text...)
			if onText != nil {
				onText(string(full))
			}
		}
	}
}
