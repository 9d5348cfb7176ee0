package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/BaSui01/brandforge/llm"
	"github.com/BaSui01/brandforge/llm/providers"
)

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
)

type streamPayload struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// parseDataLine 返回一行 SSE 中的文本增量。
// done 为 true 表示遇到 [DONE]。
func parseDataLine(line string) (text string, done bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if data == doneMarker {
		return "", true
	}
	var p streamPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		// 半截或非 JSON 负载直接跳过
		return "", false
	}
	if len(p.Choices) == 0 {
		return "", false
	}
	return p.Choices[0].Delta.Content, false
}

// StreamSSE parses an SSE stream from an OpenAI-compatible API and returns a channel of text chunks.
// bufio.Reader 负责跨读边界拼接半行；EOF 前未以换行结尾的最后一行同样会被处理。
// The caller is responsible for ensuring the response status is OK before calling this.
func StreamSSE(ctx context.Context, body io.ReadCloser, providerName string) <-chan llm.AIStreamChunk {
	ch := make(chan llm.AIStreamChunk)
	go func() {
		defer body.Close()
		defer close(ch)

		emit := func(c llm.AIStreamChunk) bool {
			select {
			case <-ctx.Done():
				return false
			case ch <- c:
				return true
			}
		}

		reader := bufio.NewReader(body)
		for {
			line, readErr := reader.ReadString('\n')
			if line != "" {
				text, done := parseDataLine(line)
				if done {
					return
				}
				if text != "" && !emit(llm.AIStreamChunk{Text: text}) {
					return
				}
			}
			if readErr == nil {
				continue
			}
			if !errors.Is(readErr, io.EOF) && ctx.Err() == nil {
				emit(llm.AIStreamChunk{Err: providers.TransportError(readErr, providerName)})
			}
			return
		}
	}()
	return ch
}
