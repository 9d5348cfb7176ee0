// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 studio 编排品牌工作流的六个阶段。

# 阶段

市场分析 → 品牌故事 → 配方设计 → 视觉识别 → 包装设计（含生产文件）→ 营销视频。
后一阶段的提示词引用前一阶段最后一条消息。

# 操作

  - [Studio.Run]：写入占位消息，流式生成文本并逐片段替换；视觉、包装与
    生产文件阶段同时生成图片，两者都成功才算完成
  - [Studio.Refine]：追加一轮追问，基于完整对话生成回答
  - [Studio.NewSession] / [Studio.SwitchVersion]：历史归档与版本切换

同一阶段同一时间只允许一个操作，重叠的操作返回 project.ErrStageBusy。
失败统一包装为 [StageError]，已经写入的部分内容不会回滚。
*/
package studio
