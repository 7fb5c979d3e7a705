// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

// Package tlsutil 提供集中式 TLS 配置，供 WebSocket 客户端、health 探针与
// Redis 连接使用（TLS 1.2+，仅 AEAD 密码套件）。按 URL scheme 判断是否启用 TLS。
package tlsutil
