// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package types 提供 BrandForge 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、project、studio、
api 等上层模块提供统一的错误契约，避免循环依赖。

# 核心类型

  - Error / ErrorCode：结构化错误，含 HTTP 状态码、Retryable、Provider 标记

# 主要能力

  - 错误构造链：NewError().WithCause().WithHTTPStatus().WithProvider()
  - 错误工具：AsError / GetErrorCode / IsRetryable / HTTPStatusOf
*/
package types
