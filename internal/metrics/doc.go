// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、Provider、
阶段编排与媒体存储四个维度。

# 概述

Collector 使用 promauto 自动注册到默认 Registry，所有指标按 namespace
隔离，由 cmd/brandforge 的 metrics 端口通过 promhttp 暴露。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - Provider 指标：按 provider/capability（text、image、video）统计调用次数与耗时，
    以及视频任务轮询次数。
  - 阶段指标：按 stage/operation（run、refine）统计执行次数与耗时，
    以及内存中的项目数。
  - 媒体指标：写入媒体存储的字节数。
*/
package metrics
