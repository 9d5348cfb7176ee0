// Package factory 提供文本与媒体适配器的集中式选择器。
//
// Provider 名称通过 builder 注册表映射到构造函数，调用方只拿到
// llm.TextStreamAdapter / llm.MediaAdapter，不再按名称分支。
// 每个适配器都包了一层观测：OpenTelemetry span、OTel 计数器与 Prometheus 指标。
package factory
