// protocols/websocket/transport.go
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lisuiheng/posebridge/pkg/interfaces"
)

var _ interfaces.TransportProtocol = (*WSProtocol)(nil)

type WSProtocol struct {
	conn      *websocket.Conn
	config    Config
	events    chan interfaces.Event
	closeChan chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
}

// Config 定义websocket特有的配置
type Config struct {
	URL              string
	ClientID         string
	UserAgent        string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

func NewWebSocketProtocol(config Config) (*WSProtocol, error) {
	if config.URL == "" {
		return nil, errors.New("websocket url is empty")
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	return &WSProtocol{
		config:    config,
		events:    make(chan interfaces.Event, 100),
		closeChan: make(chan struct{}),
	}, nil
}

// Connect 建立连接，成功后上报 EventOpen 并启动读循环
func (p *WSProtocol) Connect(ctx context.Context) error {
	headers := http.Header{}
	if p.config.ClientID != "" {
		headers.Set("Client-Id", p.config.ClientID)
	}
	if p.config.UserAgent != "" {
		headers.Set("User-Agent", p.config.UserAgent)
	}

	dialer := *websocket.DefaultDialer
	if p.config.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = p.config.HandshakeTimeout
	}
	conn, _, err := dialer.DialContext(ctx, p.config.URL, headers)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrConnectionFailed, err)
	}

	p.mu.Lock()
	select {
	case <-p.closeChan:
		p.mu.Unlock()
		_ = conn.Close()
		return interfaces.ErrTransportClosed
	default:
	}
	p.conn = conn
	p.mu.Unlock()

	p.emit(interfaces.Event{Type: interfaces.EventOpen})
	go p.readPump(conn)
	return nil
}

func (p *WSProtocol) readPump(conn *websocket.Conn) {
	defer close(p.events)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			p.emit(readFailureEvent(err))
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if !p.emit(interfaces.Event{Type: interfaces.EventMessage, Payload: data}) {
			return
		}
	}
}

// emit 在本端关闭后不再阻塞
func (p *WSProtocol) emit(ev interfaces.Event) bool {
	select {
	case p.events <- ev:
		return true
	case <-p.closeChan:
		return false
	}
}

func (p *WSProtocol) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return interfaces.ErrNotConnected
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *WSProtocol) Ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return interfaces.ErrNotConnected
	}
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(p.config.WriteTimeout))
}

func (p *WSProtocol) Events() <-chan interfaces.Event {
	return p.events
}

func (p *WSProtocol) ProtocolType() string { return "websocket" }

// Close 发送关闭帧后断开底层连接，可重复调用
func (p *WSProtocol) Close(code int, reason string) error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		close(p.closeChan)
		if p.conn == nil {
			return
		}
		_ = p.conn.WriteControl(websocket.CloseMessage, closeMessage(code, reason), time.Now().Add(time.Second))
		err = p.conn.Close()
	})
	return err
}
