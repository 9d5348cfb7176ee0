// Package api 定义 BrandForge HTTP API 的请求与响应结构。
//
// # API 概览
//
// 所有 JSON 响应使用统一信封：
//
//	{"success": true, "data": {...}, "timestamp": "...", "request_id": "..."}
//	{"success": false, "error": {"code": "STAGE_BUSY", "message": "...", "retryable": false}, ...}
//
// 阶段运行与追问以 text/event-stream 返回，事件依次为
// progress（视频阶段进度）、state（占位、图片等结构变化后的完整项目）、
// delta（流式文本，只含阶段与累计内容）、done（最终项目）或 error（失败信息）。
// 参考图在项目中只保存媒体 URL。
//
// 项目状态变化也可以通过 WebSocket 订阅：
//
//	GET /api/v1/projects/{id}/events
//
// # Base URL
//
//	http://localhost:8080
package api
