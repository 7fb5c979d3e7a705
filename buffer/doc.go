// Copyright (c) SeriesFlow Authors.
// Licensed under the MIT License.

/*
包 buffer 提供把"生产者按自身节奏推送的不规则批次"转换为
"消费者按需拉取的定长帧"的缓冲原语。

# 概述

生产者（长时间运行的信号发生器，或分块传输的网络流）只能以整批的形式
交付数据，批次大小由生产者决定；消费者则需要严格有序、长度固定的帧。
本包负责在两种访问模式之间做对齐，且不丢失、不重复、不乱序任何值。

# 核心类型

  - Ring: 可增长的环形 FIFO 队列，元素为不可变批次；满时按增长因子
    扩容，新槽位插入在最旧元素之前，已缓冲批次的相对顺序保持不变，
    容量只增不减。
  - Producer: 拉取式批次来源，空批次表示耗尽，耗尽后必须持续返回空批次。
  - BatchBuffer: 持有一个 Ring，统计已缓冲值的总数，仅在不足时向生产者
    拉取，并且每个耗尽事件只检测一次。

# 并发模型

BatchBuffer 与 Ring 均不是并发安全的：每个实例只服务一个消费者。
Get 可能间接调用生产者的 NextBatch（可能阻塞等待网络消息），这是唯一的
挂起点。多路并发流需要为每个会话各自创建一个 BatchBuffer。
*/
package buffer
