// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package main 提供 BrandForge 服务端程序入口。

# 概述

cmd/brandforge 加载 YAML + 环境变量配置，组装项目存储、模型适配器、
媒体存储与工作流编排，并通过 HTTP API 对外提供服务。

# 核心类型

  - Server：组装全部组件，管理 API、Metrics 双端口及优雅关闭
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、version、health
  - 中间件链：RequestID、Recovery、SecurityHeaders、RequestLogger、Metrics、
    OTelTracing、CORS、RateLimiter（基于客户端 IP）、BodyLimit
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 API → 关闭 Metrics → 停止后台清理 → 关闭媒体存储 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
