// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 SeriesFlow 的全局共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。buffer、demux、param、
session 与各传输层通过统一的 Error / ErrorCode 表达失败原因，
api/handlers 再将错误码映射为 HTTP 状态码，会话层映射为告警文本。

# 核心类型

  - ErrorCode: 错误码枚举（参数缺失、越界、未知生成器、协议违例等）
  - Error: 结构化错误，含 Code、Message、Field、Retryable 与 Cause

# 主要能力

  - 构造：NewError / Errorf / NewProtocolError，链式 WithCause / WithField / WithRetryable
  - 判定：AsError / GetErrorCode / IsErrorCode / IsRetryable / IsProtocolViolation
*/
package types
