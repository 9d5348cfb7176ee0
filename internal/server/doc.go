// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 BrandForge 的 HTTP 服务器生命周期。

API 服务与 Prometheus 指标服务各由一个 [Manager] 托管：Start 非阻塞
启动，WaitForShutdown 监听 SIGINT/SIGTERM 或异步错误，Shutdown 在
配置的超时内排空正在进行的请求（包括仍在推送的 SSE 阶段流）。
*/
package server
