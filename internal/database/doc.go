// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
包 database 负责运行记录存储的数据库连接。

Open 按 config.DatabaseConfig 的驱动名选择 GORM 方言（postgres、
mysql，或基于纯 Go 实现的 sqlite），并返回 PoolManager。

# 核心类型

  - PoolManager：持有 GORM 实例与底层 sql.DB，提供 Ping、Stats、
    Close 与事务辅助方法；配置了探活间隔时在后台定时 PingContext。
  - PoolConfig：连接数与生命周期配置，由 PoolConfigFrom 从应用配置派生。

WithTransactionRetry 对死锁、序列化失败与 sqlite 忙等可重试错误
按指数退避重新执行。
*/
package database
