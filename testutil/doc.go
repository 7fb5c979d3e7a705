// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 SeriesFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现相似的
测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步等待: WaitFor / WaitForChannel
  - 数据工具: MustJSON / MustParseJSON / Drain

# 子包

  - testutil/mocks: 泛型 Producer 与 Receptor 模拟实现，支持
    Builder 模式、延迟与错误注入，并记录每次调用
  - testutil/fixtures: 测试数据工厂，提供递增序列、批次切分与
    常用 Payload 样例

# 使用示例

	ctx := testutil.TestContext(t)
	p := mocks.NewProducer(fixtures.Batches(fixtures.Ramp(10), 3)...).FailAfter(2, boom)
	buf, err := buffer.NewBatchBuffer[float64](p)
*/
package testutil
