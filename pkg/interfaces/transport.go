// pkg/interfaces/transport.go
package interfaces

import (
	"context"
	"errors"
)

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrNotConnected     = errors.New("not connected")
	ErrTransportClosed  = errors.New("transport closed")
)

// TransportProtocol 是单条持久连接的抽象，生命周期事件通过 Events 通道上报
type TransportProtocol interface {
	Connect(ctx context.Context) error
	Send(data []byte) error
	Ping() error
	Events() <-chan Event
	Close(code int, reason string) error
	ProtocolType() string
}

type EventType int

const (
	EventOpen    EventType = iota // 连接已建立
	EventMessage                  // 收到文本帧
	EventClose                    // 对端关闭
	EventError                    // 读写失败
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event 是 socket 生命周期事件，只有与 Type 对应的字段有意义
type Event struct {
	Type    EventType
	Payload []byte
	Code    int
	Reason  string
	Err     error
}
