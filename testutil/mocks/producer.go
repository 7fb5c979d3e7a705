// Package mocks 提供流水线各环节的测试模拟实现。
//
// 支持固定批次、延迟与错误注入场景。
package mocks

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Producer 是按批拉取数据源的模拟实现，满足 buffer.Producer[T]
type Producer[T any] struct {
	mu sync.Mutex

	batches [][]T
	next    int

	// 行为控制
	err       error
	failAfter int // 成功返回 N 个批次后失败，-1 表示不失败
	delay     time.Duration

	calls int
}

// NewProducer 创建按顺序返回给定批次的 Producer
func NewProducer[T any](batches ...[]T) *Producer[T] {
	return &Producer[T]{batches: batches, failAfter: -1}
}

// FailAfter 在成功返回 n 个批次后的每次调用都返回 err
func (p *Producer[T]) FailAfter(n int, err error) *Producer[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAfter = n
	p.err = err
	return p
}

// WithDelay 设置每次调用前的延迟，可被 ctx 打断
func (p *Producer[T]) WithDelay(d time.Duration) *Producer[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
	return p
}

// NextBatch 返回下一批次；批次耗尽后返回空批次
func (p *Producer[T]) NextBatch(ctx context.Context) ([]T, error) {
	p.mu.Lock()
	p.calls++
	delay := p.delay
	p.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAfter >= 0 && p.next >= p.failAfter {
		return nil, p.err
	}
	if p.next >= len(p.batches) {
		return nil, nil
	}
	b := p.batches[p.next]
	p.next++
	return slices.Clone(b), nil
}

// Calls 返回 NextBatch 的调用次数
func (p *Producer[T]) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Served 返回已成功交付的批次数
func (p *Producer[T]) Served() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}
