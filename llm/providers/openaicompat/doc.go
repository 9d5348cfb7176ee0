// Package openaicompat 实现基于 OpenAI Chat Completions 流式协议的文本适配器。
//
// 只要服务端兼容 POST {baseUrl}/chat/completions + SSE，即可通过配置
// BaseURL 与 Model 接入：
//
//	a := openaicompat.New(openaicompat.Config{
//	    APIKey:  cfg.APIKey,
//	    BaseURL: "https://api.deepseek.com/v1",
//	    Model:   "deepseek-chat",
//	}, logger)
//	stream, err := a.GenerateContentStream(ctx, prompt, system)
package openaicompat
