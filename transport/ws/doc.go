// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

// Package ws 基于 WebSocket 承载时间序列会话。
//
// 一个连接对应一个服务端会话：config 消息得到 info 应答，
// 操作 get 触发样本流，以 end 消息结束。客户端 Client 实现
// session.Transport，可直接交给 session.NewClient 使用。
package ws
