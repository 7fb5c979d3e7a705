// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

// Package config 提供 SeriesFlow 的配置管理功能。
//
// 配置优先级：默认值 → YAML 文件 → 环境变量（前缀 SERIESFLOW）。
// 环境变量名由 env 标签逐级拼接，例如 SERIESFLOW_STREAM_GROWTH_FACTOR。
package config
