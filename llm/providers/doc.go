// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 providers 是各服务商子包共用的 HTTP 辅助层。

# 子包

  - gemini：基于 google.golang.org/genai 的文本流、图片与视频生成
  - openaicompat：OpenAI 兼容的 /chat/completions SSE 文本流
  - doubao：豆包（火山方舟）文本流，以及 Seedream 图片与 Seedance 视频任务

# 核心函数

  - MapHTTPError：状态码映射为 types.Error（401/403/429/5xx/529 等，含 Retryable 标记）
  - ErrorFromResponse / ReadErrorMessage：读取并解析上游错误响应体
  - TransportError / DecodeError：网络与解码错误的统一包装
  - BearerTokenHeaders：标准 Bearer 认证头
*/
package providers
