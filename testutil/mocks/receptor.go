package mocks

import (
	"slices"
	"sync"
)

// Receptor 记录每次 Receive 调用。A 为单个数组的类型，
// Receptor[demux.Array[T]] 满足 demux.Receptor[T]。
type Receptor[A any] struct {
	mu sync.Mutex

	calls [][]A

	err       error
	failAfter int // 成功 N 次调用后失败，-1 表示不失败
}

// NewReceptor 创建总是成功的 Receptor
func NewReceptor[A any]() *Receptor[A] {
	return &Receptor[A]{failAfter: -1}
}

// WithError 使每次调用都返回 err
func (r *Receptor[A]) WithError(err error) *Receptor[A] {
	return r.FailAfter(0, err)
}

// FailAfter 在成功 n 次调用后返回 err
func (r *Receptor[A]) FailAfter(n int, err error) *Receptor[A] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAfter = n
	r.err = err
	return r
}

// Receive 记录 arrays 的副本
func (r *Receptor[A]) Receive(arrays []A) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAfter >= 0 && len(r.calls) >= r.failAfter {
		r.calls = append(r.calls, slices.Clone(arrays))
		return r.err
	}
	r.calls = append(r.calls, slices.Clone(arrays))
	return nil
}

// Calls 返回全部调用记录，包括空的终止调用
func (r *Receptor[A]) Calls() [][]A {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Cycles 返回非空调用的次数
func (r *Receptor[A]) Cycles() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if len(c) > 0 {
			n++
		}
	}
	return n
}

// Terminals 返回空调用的次数
func (r *Receptor[A]) Terminals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if len(c) == 0 {
			n++
		}
	}
	return n
}
