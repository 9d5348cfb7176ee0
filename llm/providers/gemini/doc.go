// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
# 概述

包 gemini 基于 Google Gen AI SDK（google.golang.org/genai）实现文本流与
媒体生成两类适配器。SDK 调用收敛在 [Backend] 接口之后，生产环境由
[SDKBackendFactory] 构造，测试中可替换为内存实现。

# 核心结构体

  - TextAdapter：Models.GenerateContentStream，逐条透传响应文本
  - MediaAdapter：图片走 Models.GenerateContent + ImageConfig；
    视频走 Veo（Models.GenerateVideos + Operations.GetVideosOperation），
    完成后使用 x-goog-api-key 下载并写入 llm.BlobStore

# 凭据

每个 API Key 对应一个缓存的 Backend；ctx 中的 llm.CredentialOverride
会得到独立的客户端。
*/
package gemini
