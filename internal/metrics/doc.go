// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、
协调会话、样本流与批缓冲区四个维度。

# 概述

Collector 通过 promauto 注册到默认 Registry，所有指标按 namespace
隔离。Collector 同时实现 session.Metrics，并可为批缓冲区生成
buffer.Observer，使会话层无需依赖 Prometheus。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为
    2xx/3xx/4xx/5xx。
  - 会话指标：按 operation/alerted 统计协调操作。
  - 流指标：按 role/data_type 统计消息数、标量数与整段耗时。
  - 缓冲区指标：批次拉取、环形缓冲扩容、生产者耗尽与交付数量。
  - 活跃会话：TrackActiveSessions 注册采集时求值的 GaugeFunc。
*/
package metrics
