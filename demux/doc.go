// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
包 demux 从一条扁平、按轮询方式时分复用的值流中，逐周期还原出
若干个形状各异的数组。

# 概述

生产者为减少传输开销，会把若干等节拍的序列串行化为一条扁平流。
每个周期内，序列 i 依次贡献 prod(shape_i) 个值；周期长度完全由协商
得到的形状推导，不依赖任何带外长度字段。

# 核心类型

  - Shape / Array: 行优先（row-major）的形状与数组视图。
  - Demultiplexer: 每次 NextCycle 拉取一个完整周期并按形状切分重塑；
    流末尾出现不完整周期时，按 ShrinkPolicy 处理。
  - Receptor / Pump: 接收方契约：每个周期调用一次 Receive，
    最后再以空列表调用一次作为结束信号。
  - Payload: 协商结果 {"data_type", "array_shapes"}。

# 不完整周期

默认策略 ShrinkLeading 把所有序列的第 0 维按 available/total 等比例
缩小（向下取整），其余维度不变，保证所有序列一致地降级；
ShrinkDiscard 则直接丢弃不完整周期并结束流。

# 协议错误

流进行中序列数量发生变化属于协议错误，直接返回给上游，不做任何猜测
或修补。
*/
package demux
