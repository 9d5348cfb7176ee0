// Package tlsutil 集中管理 BrandForge 出站连接的 TLS 与 HTTP 客户端参数。
//
// 三类出站连接各有一个入口：
//   - SecureHTTPClient：有整体超时的一次性请求（图片、视频任务、媒体下载）
//   - StreamingHTTPClient：只限制响应头等待的 SSE 文本流
//   - RedisTLSConfig：启用 TLS 的 Redis 媒体存储
//
// 全部连接要求 TLS 1.2 及以上，并只允许 AEAD 密码套件。
package tlsutil
