// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

// Package generator 提供服务端时间序列生成器。
//
// 每个生成器公开一份参数模式（param.Spec），在参数协商完成后通过
// Configure 解码为类型化参数并返回协商载荷（demux.Payload），
// 随后作为 buffer.Producer 每次返回一帧数据，结束后持续返回空批次。
//
// Registry 是封闭的句柄 → 构造函数映射，不使用反射。
package generator
