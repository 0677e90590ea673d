package core

import "sync"

// statusChange 是一次已记录的网络状态迁移，seq 按记录顺序递增
type statusChange struct {
	from NetworkStatus
	to   NetworkStatus
	seq  uint64
}

// statusBoard 持有当前网络状态。
// 迁移在队列锁内记录，回调在锁外按 seq 串行投递，被后续迁移覆盖的旧迁移不再投递。
type statusBoard struct {
	mu     sync.Mutex
	status NetworkStatus
	seq    uint64

	pmu       sync.Mutex
	pending   []statusChange
	delivered uint64
	draining  bool
	publish   func(statusChange)
}

func newStatusBoard(initial NetworkStatus, publish func(statusChange)) *statusBoard {
	if publish == nil {
		publish = func(statusChange) {}
	}
	return &statusBoard{status: initial, publish: publish}
}

// set 记录迁移；与当前状态相同时不产生迁移
func (b *statusBoard) set(s NetworkStatus) (statusChange, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status == s {
		return statusChange{}, false
	}
	b.seq++
	ch := statusChange{from: b.status, to: s, seq: b.seq}
	b.status = s
	return ch, true
}

func (b *statusBoard) get() NetworkStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// deliver 投递迁移。已有 goroutine 在投递时只追加到 pending 后返回，
// 因此回调里再次触发迁移不会死锁。
func (b *statusBoard) deliver(changes []statusChange) {
	if len(changes) == 0 {
		return
	}

	b.pmu.Lock()
	b.pending = append(b.pending, changes...)
	if b.draining {
		b.pmu.Unlock()
		return
	}
	b.draining = true
	for len(b.pending) > 0 {
		ch := b.pending[0]
		b.pending = b.pending[1:]
		if ch.seq <= b.delivered {
			continue
		}
		b.delivered = ch.seq
		b.pmu.Unlock()
		b.publish(ch)
		b.pmu.Lock()
	}
	b.pending = nil
	b.draining = false
	b.pmu.Unlock()
}
