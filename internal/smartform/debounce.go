package smartform

import (
	"sync"
	"time"
)

// Debouncer 尾沿防抖：静默 wait 之后，用最后一次的参数调用 fn
// 调用在计时器 goroutine 中执行，fn 可以阻塞
type Debouncer[T any] struct {
	wait time.Duration
	fn   func(T)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	pending T
	armed   bool
	closed  bool
	running sync.WaitGroup
}

// NewDebouncer 创建防抖器
func NewDebouncer[T any](wait time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{wait: wait, fn: fn}
}

// Call 记录最新参数并重新计时
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.seq++
	d.pending = arg
	d.armed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	seq := d.seq
	d.timer = time.AfterFunc(d.wait, func() { d.fire(seq) })
}

// Pending 是否有待执行的调用
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Flush 立即执行待执行的调用（若有），在当前 goroutine 中运行
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.mu.Unlock()
	d.fire(seq)
}

// Cancel 丢弃待执行的调用
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Close 取消待执行的调用并等待正在执行的 fn 返回
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	d.closed = true
	d.seq++
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.running.Wait()
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if d.closed || !d.armed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	arg := d.pending
	var zero T
	d.pending = zero
	d.armed = false
	d.timer = nil
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	d.fn(arg)
}
