// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

// Package session 实现时间序列服务端与客户端会话。
//
// 会话分两个阶段：
//   - 协调阶段：客户端发送 Config{Operation, Parameters}，服务端以
//     Info{Response, Alert} 应答（发现生成器、选择生成器、协商参数）；
//   - 流阶段：服务端把生成器输出经 BatchBuffer 切成固定长度的消息发送，
//     客户端用 BatchBuffer + Demultiplexer 还原各序列并交给接收器。
//
// 传输层（transport/ws、transport/redisq）只负责消息搬运，
// 通过 Coordinator 与 StreamOpener 接口接入客户端会话。
package session
