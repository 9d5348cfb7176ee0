// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package handlers 提供 BrandForge HTTP API 的请求处理器。

# 核心类型

  - ProjectHandler：项目增删查、简报与参考图
  - StageHandler：阶段运行与追问（SSE）、新会话、版本切换
  - KeyHandler：视频阶段的 API Key 选择
  - EventsHandler：WebSocket 项目状态推送
  - MediaHandler：生成图片与视频的下载（支持 Range）
  - HealthHandler：/health、/ready、/version
  - Set：汇总全部处理器并注册路由

# 约定

JSON 响应统一使用 [Response] 信封；领域错误经 [ToAPIError] 映射为错误码与
HTTP 状态码（阶段繁忙 409、项目不存在 404、未选择 Key 428、阶段失败 502）。

阶段流在第一个事件之前失败时返回普通 JSON 错误；开始推送后失败以
error 事件结束。
*/
package handlers
