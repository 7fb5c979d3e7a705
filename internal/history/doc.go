// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
包 history 记录每次会话运行的结果，供 /v1/runs 查询。

客户端（fetch）、服务端（/v1/stream）与发布端（publish）在运行结束后
各写入一行 Run，包含会话 ID、生成器、传输方式、周期数、交付值数量与
失败时的错误码。Store 基于 internal/database 的 PoolManager 与 GORM，
写入时对锁冲突按指数退避重试；表结构由 internal/migration 管理。
*/
package history
