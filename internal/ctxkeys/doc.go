// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

// Package ctxkeys 定义在 context 中传递请求 ID 与已认证主体的键，
// 由 HTTP 中间件写入，WebSocket 会话日志读取。
package ctxkeys
