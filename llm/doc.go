// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供与具体服务商无关的生成能力契约。

# 概述

品牌工作室的所有推理都交给远端 Provider 完成。本包只定义两类能力，
具体实现位于 llm/providers 下的各子包，由 llm/factory 按配置选择：

  - [TextStreamAdapter]：把 (prompt, systemInstruction) 转换为
    有序的 [AIStreamChunk] 通道，支持 Gemini 与 OpenAI 兼容接口。
  - [MediaAdapter]：单张图片生成，以及 创建任务 → 轮询 → 下载 的
    异步视频生成，支持 Gemini 与豆包。

# 辅助能力

  - [ParseDataURL] / [FormatDataURL]：参考图 data URL 的拆分与组装
  - [WithCredentialOverride] / [ResolveAPIKey]：单次调用的凭据覆盖
  - [Accumulate]：按到达顺序拼接流片段并回调累计文本
  - [BlobStore]：视频下载后的本地落地接口
*/
package llm
