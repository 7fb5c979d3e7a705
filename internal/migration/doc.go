// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
包 migration 管理运行记录表 runs 的版本化 Schema，基于 golang-migrate。

各方言（postgres、mysql、sqlite）的 SQL 文件通过 embed.FS 内嵌，
命名形如 000001_create_runs.up.sql。DefaultMigrator 在调用方提供的
*sql.DB 上工作，Close 时一并关闭该连接；NewMigratorFromConfig 与 Up
会为迁移单独打开连接。

CLI 将 Up、Down、Goto、Force、Version 与 Status 的结果格式化为终端文本，
供 seriesflow migrate 子命令使用。
*/
package migration
