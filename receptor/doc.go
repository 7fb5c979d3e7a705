// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

// Package receptor 提供客户端的数据接收器。
//
// 接收器实现 demux.Receptor：每个周期收到一组按形状重组后的数组，
// 流结束时收到一次空列表。Registry 按句柄构造实数或复数接收器。
package receptor
