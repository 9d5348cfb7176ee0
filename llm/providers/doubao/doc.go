// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
# 概述

包 doubao 对接字节跳动火山方舟（Ark v3）平台。

# 核心结构体

  - MediaAdapter：/images/generations 生成图片（b64_json，JPEG）；
    /contents/generations/tasks 创建视频任务，每 5s 轮询一次，
    成功后下载视频并写入 llm.BlobStore
  - NewTextAdapter：方舟 chat/completions 与 OpenAI 兼容，复用 openaicompat

# 进度

视频生成依次上报 正在创建视频生成任务... / 视频生成中，请稍候... ，
之后每次未完成的轮询上报 视频正在渲染中，可能需要几分钟...
*/
package doubao
