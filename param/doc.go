// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

// Package param 管理生成器的参数模式：描述、默认值、上下界，
// 合并客户端覆盖值，并检查完整性与边界。
//
// 状态流转：Unset → SpecLoaded(Set) → Overridden(Update) →
// Validated(Complete 与 Bounds 均无违规)。检查失败时返回 Violation，
// 由调用方决定是否中止。
package param
