// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

// Package redisq 通过 Redis 列表分发时间序列。
//
// 发布端把协商载荷写入 "<key>:meta"，把每一帧样本追加到列表 "<key>"，
// 最后追加 end 标记；订阅端用 BLPOP 逐帧读取。该传输没有协调阶段，
// 订阅端先用 ReadPayload 取得载荷，再交给 session.Client.Consume。
package redisq
