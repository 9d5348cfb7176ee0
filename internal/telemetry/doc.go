// Package telemetry 初始化 OpenTelemetry，为 HTTP 中间件、模型适配器与阶段编排
// 提供全局 TracerProvider 和 MeterProvider。
//
// Traces 与 metrics 经 OTLP gRPC 导出，TLS 为真时使用 tlsutil 的出站 TLS 配置。
// 禁用时只安装 W3C 传播器，不连接任何外部服务。
package telemetry
