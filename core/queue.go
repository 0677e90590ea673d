package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// SendResult 表示 TrySend 的去向
type SendResult int

const (
	ResultQueued SendResult = iota
	ResultSent
)

func (r SendResult) String() string {
	if r == ResultSent {
		return "sent"
	}
	return "queued"
}

// Sender 是队列写出的目标
type Sender interface {
	Send(data []byte) error
}

type queueEntry struct {
	command CommandTag
	data    []byte
}

// OutboundQueue 在连接未就绪时按 FIFO 缓存已序列化的请求。
// 状态迁移与所有写出都在 mu 下完成，flush 期间不会插入其他发送。
type OutboundQueue struct {
	mu            sync.Mutex
	state         *connState
	sender        Sender
	entries       []queueEntry
	weakThreshold int
	weakSignalled bool
	shutdown      bool

	status  *statusBoard
	metrics *Metrics
	logger  *slog.Logger
}

func newOutboundQueue(state *connState, sender Sender, weakThreshold int, status *statusBoard, metrics *Metrics, log *slog.Logger) *OutboundQueue {
	return &OutboundQueue{
		state:         state,
		sender:        sender,
		weakThreshold: weakThreshold,
		status:        status,
		metrics:       metrics,
		logger:        log,
	}
}

// TrySend 在连接未打开时入队，否则先按序清空队列再发送 req。
// 只有 req 自身直接写出失败时才返回发送错误；清空队列失败时 req 排队，由队列负责后续投递。
func (q *OutboundQueue) TrySend(req Request) (SendResult, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return ResultQueued, fmt.Errorf("failed to marshal %s request: %w", req.Command(), err)
	}
	entry := queueEntry{command: req.Command(), data: data}

	q.mu.Lock()
	result, changes, err := q.trySendLocked(entry)
	q.mu.Unlock()

	q.status.deliver(changes)
	return result, err
}

func (q *OutboundQueue) trySendLocked(entry queueEntry) (SendResult, []statusChange, error) {
	if q.shutdown {
		return ResultQueued, nil, ErrClientClosed
	}

	if !q.state.isOpen() {
		return ResultQueued, q.enqueueLocked(entry), nil
	}

	changes, err := q.flushLocked()
	if err != nil {
		// 队列中仍有未发送的条目，新请求排在它们之后
		changes = append(changes, q.enqueueLocked(entry)...)
		return ResultQueued, changes, nil
	}

	if err := q.writeLocked(entry); err != nil {
		return ResultSent, changes, err
	}
	return ResultSent, changes, nil
}

func (q *OutboundQueue) enqueueLocked(entry queueEntry) []statusChange {
	q.entries = append(q.entries, entry)
	q.metrics.queued.WithLabelValues(string(entry.command)).Inc()
	q.metrics.queueDepth.Set(float64(len(q.entries)))
	q.logger.Debug("Request queued",
		"command", entry.command,
		"depth", len(q.entries),
		"state", q.state.get())

	if len(q.entries) > q.weakThreshold && !q.weakSignalled {
		q.weakSignalled = true
		q.logger.Warn("Outbound queue above soft threshold",
			"depth", len(q.entries),
			"threshold", q.weakThreshold)
		return q.recordLocked(NetworkWeak)
	}
	return nil
}

// recordLocked 在 mu 内记录状态迁移，保证迁移顺序与队列操作顺序一致
func (q *OutboundQueue) recordLocked(s NetworkStatus) []statusChange {
	if ch, ok := q.status.set(s); ok {
		return []statusChange{ch}
	}
	return nil
}

// flushLocked 逐条出队后写出，每个条目最多发送一次
func (q *OutboundQueue) flushLocked() ([]statusChange, error) {
	if len(q.entries) == 0 {
		return nil, nil
	}

	flushed := 0
	for len(q.entries) > 0 {
		entry := q.entries[0]
		q.entries[0] = queueEntry{}
		q.entries = q.entries[1:]
		q.metrics.queueDepth.Set(float64(len(q.entries)))

		if err := q.writeLocked(entry); err != nil {
			q.logger.Error("Flush interrupted",
				"flushed", flushed,
				"remaining", len(q.entries),
				"error", err)
			return nil, err
		}
		flushed++
	}
	q.entries = nil
	q.logger.Info("Sent queued messages", "count", flushed)

	if q.weakSignalled {
		q.weakSignalled = false
		return q.recordLocked(NetworkOK), nil
	}
	return nil, nil
}

func (q *OutboundQueue) writeLocked(entry queueEntry) error {
	if err := q.sender.Send(entry.data); err != nil {
		q.metrics.sendErrors.Inc()
		return fmt.Errorf("%w: %s: %v", ErrSendFailed, entry.command, err)
	}
	q.metrics.sent.WithLabelValues(string(entry.command)).Inc()
	return nil
}

// Open 将连接置为 open，立即清空队列并上报 OK
func (q *OutboundQueue) Open() error {
	q.mu.Lock()
	if q.shutdown || !q.state.open() {
		q.mu.Unlock()
		return nil
	}
	changes, err := q.flushLocked()
	changes = append(changes, q.recordLocked(NetworkOK)...)
	q.mu.Unlock()

	q.status.deliver(changes)
	return err
}

// MarkClosed 记录 socket 的关闭或错误并上报 status；之后的请求继续缓存
func (q *OutboundQueue) MarkClosed(status NetworkStatus) {
	q.mu.Lock()
	q.state.close()
	changes := q.recordLocked(status)
	q.mu.Unlock()

	q.status.deliver(changes)
}

// Shutdown 由应用主动关闭时调用，之后 TrySend 一律拒绝
func (q *OutboundQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shutdown = true
	q.state.close()
}

func (q *OutboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
