// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 SeriesFlow HTTP API 中除 WebSocket 流以外的
请求处理器。

# 核心类型

  - HealthHandler: 存活、就绪与版本端点（/health, /healthz, /ready, /version）
  - GeneratorHandler: 生成器目录（/v1/generators, /v1/generators/{handle}）
  - RunHandler: 运行历史查询（/v1/runs, /v1/runs/summary, /v1/runs/{run_id}）
  - HealthCheck: 可插拔就绪检查接口，内置 Redis PING 实现
  - Response: 统一 JSON 响应结构（success + data + error + timestamp）
  - ResponseWriter: 捕获状态码与字节数，支持 Hijack 以便 WebSocket 升级

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON
  - types.ErrorCode → HTTP 状态码映射（HTTPStatus）
*/
package handlers
