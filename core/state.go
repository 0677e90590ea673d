package core

import "sync"

// ConnectionState 表示底层连接的生命周期
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateOpen
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// connState 只接受合法的状态迁移，closed 为终态
type connState struct {
	mu    sync.Mutex
	state ConnectionState
}

func newConnState() *connState {
	return &connState{state: StateConnecting}
}

func (c *connState) open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnecting {
		return false
	}
	c.state = StateOpen
	return true
}

func (c *connState) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return false
	}
	c.state = StateClosed
	return true
}

func (c *connState) get() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *connState) isOpen() bool {
	return c.get() == StateOpen
}
