// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
seriesflow 是 SeriesFlow 的命令行入口。

# 子命令

  - serve：启动 WebSocket 会话端点 /v1/stream、生成器目录、健康检查
    与独立端口上的 Prometheus /metrics，二者由 errgroup 协同运行。
  - fetch：作为客户端完成一次会话（ws、redis 或进程内 local 传输），
    输出 JSON 摘要。
  - publish：在进程内协商参数后将一次生成运行推送到 Redis 列表。
  - generators、token、version、health：目录查询、令牌签发与运维辅助。
  - runs：查询运行历史，可按生成器、角色与状态过滤或按生成器汇总。
  - migrate：运行历史表结构迁移（up、down、reset、status、version、goto、force）。

# 运行历史

database.enabled 为 true 时，serve 为每次 WebSocket 流记录一条 server 运行，
fetch 与 publish 分别记录 client 与 publisher 运行。auto_migrate 开启时
打开存储前先执行迁移。写入失败只记录警告，不影响命令结果。

# 中间件

API 端点依次经过 Recovery、RequestID、SecurityHeaders、RequestLogger、
MetricsMiddleware、OTelTracing、CORS、RateLimiter 与 JWTAuth。
*/
package main
