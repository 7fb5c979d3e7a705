// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

// Package transport 定义各传输层共用的线上消息封装。
//
// 一条 Message 携带协调请求（config）、协调应答（info）、
// 一段样本（sample）、流结束标记（end）或错误（error）。
// 子包 ws 与 redisq 分别基于 WebSocket 与 Redis 列表实现传输。
package transport
