// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
基于 context 的阻塞运行与优雅关闭。

# 核心类型

  - Manager：封装 net/http.Server，统一管理监听、服务、关闭与
    错误传播。seriesflow serve 为 API（/v1/stream 与健康检查）和
    Prometheus 指标各启动一个 Manager，并由 errgroup 协同运行。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小与
    优雅关闭超时；FromServerConfig 由应用配置派生。

# 主要能力

  - Run(ctx)：ctx 取消时在 ShutdownTimeout 内排空连接后返回 nil，
    服务异常退出时返回错误。
  - Addr：启动后返回实际监听地址，便于使用 :0 随机端口测试。
*/
package server
