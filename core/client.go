package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lisuiheng/posebridge/pkg/interfaces"
	"github.com/lisuiheng/posebridge/protocols/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// Client 持有唯一的一条连接，把 socket 生命周期事件接到队列与分发器上
type Client struct {
	config     Config
	transport  interfaces.TransportProtocol
	state      *connState
	queue      *OutboundQueue
	dispatcher *Dispatcher
	status     *statusBoard
	statusObs  NetworkStatusHandler
	metrics    *Metrics
	logger     *slog.Logger

	heartbeat *time.Ticker
	cancel    context.CancelFunc
	closeChan chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option 调整 NewClient 的可选依赖
type Option func(*clientOptions)

type clientOptions struct {
	transport  interfaces.TransportProtocol
	registerer prometheus.Registerer
}

// WithTransport 替换默认的 websocket 实现
func WithTransport(t interfaces.TransportProtocol) Option {
	return func(o *clientOptions) { o.transport = t }
}

// WithRegisterer 指定指标注册位置
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *clientOptions) { o.registerer = reg }
}

// NewClient 创建客户端并立即开始连接；连接就绪前的请求进入队列
func NewClient(cfg Config, handlers HandlerSet, log *slog.Logger, opts ...Option) (*Client, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if handlers == nil {
		return nil, ErrNilHandlers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	transport := o.transport
	if transport == nil {
		var err error
		transport, err = NewProtocol(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create transport: %w", err)
		}
	}

	c := &Client{
		config:    cfg,
		transport: transport,
		state:     newConnState(),
		metrics:   NewMetrics(cfg.Metrics.Namespace, o.registerer),
		logger:    log,
		closeChan: make(chan struct{}),
	}
	if obs, ok := handlers.(NetworkStatusHandler); ok {
		c.statusObs = obs
	}
	c.status = newStatusBoard(NetworkReconnecting, c.publishStatus)
	c.queue = newOutboundQueue(c.state, transport, cfg.Queue.WeakThreshold, c.status, c.metrics, log)
	c.dispatcher = newDispatcher(handlers, cfg.Verbose, c.metrics, log)
	c.dispatcher.closed = c.isClosed
	if cfg.Heartbeat.Interval > 0 {
		c.heartbeat = time.NewTicker(cfg.Heartbeat.Interval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(2)
	go c.eventLoop()
	go c.connect(ctx)
	return c, nil
}

func (c *Client) connect(ctx context.Context) {
	defer c.wg.Done()

	c.logger.Info("Connecting to server",
		"url", c.config.Server.EndpointURL,
		"transport", c.transport.ProtocolType())

	if err := c.transport.Connect(ctx); err != nil {
		if c.isClosed() {
			return
		}
		c.handleEvent(interfaces.Event{Type: interfaces.EventError, Err: err})
	}
}

// eventLoop 串行处理 socket 事件与心跳
func (c *Client) eventLoop() {
	defer c.wg.Done()

	var tick <-chan time.Time
	if c.heartbeat != nil {
		tick = c.heartbeat.C
	}
	events := c.transport.Events()

	for {
		select {
		case <-c.closeChan:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(ev)
		case <-tick:
			if c.state.isOpen() {
				if err := c.transport.Ping(); err != nil {
					c.logger.Warn("Heartbeat ping failed", "error", err)
				}
			}
		}
	}
}

func (c *Client) handleEvent(ev interfaces.Event) {
	if c.isClosed() {
		return
	}

	switch ev.Type {
	case interfaces.EventOpen:
		c.logger.Info("Connection opened", "queued", c.queue.Len())
		if err := c.queue.Open(); err != nil {
			c.logger.Error("Failed to flush queued messages", "error", err)
		}
	case interfaces.EventMessage:
		c.dispatcher.Dispatch(ev.Payload)
	case interfaces.EventClose:
		c.logger.Info("Connection closed by server", "code", ev.Code, "reason", ev.Reason)
		c.queue.MarkClosed(NetworkClose)
	case interfaces.EventError:
		c.logger.Error("Connection error", "error", ev.Err)
		c.queue.MarkClosed(NetworkError)
	}
}

// publishStatus 在锁外通知应用层，只收到状态确实变化的迁移
func (c *Client) publishStatus(ch statusChange) {
	c.metrics.statusChanges.WithLabelValues(ch.to.String()).Inc()
	c.logger.Info("Network status changed", "from", ch.from, "to", ch.to)
	if c.statusObs != nil {
		c.statusObs.OnNetworkStatus(ch.to)
	}
}

// Status 返回当前记录的网络状态
func (c *Client) Status() NetworkStatus {
	return c.status.get()
}

// State 返回连接当前所处的生命周期阶段
func (c *Client) State() ConnectionState {
	return c.state.get()
}

// Close 停止心跳并以给定 code/reason 关闭连接，之后客户端不可再用
func (c *Client) Close(code int, reason string) error {
	err := ErrClientClosed
	c.closeOnce.Do(func() {
		c.logger.Info("Closing client connection", "code", code, "reason", reason)
		if c.heartbeat != nil {
			c.heartbeat.Stop()
		}
		c.queue.Shutdown()
		close(c.closeChan)
		c.cancel()

		err = c.transport.Close(code, reason)
		if err != nil {
			c.logger.Error("Failed to close connection", "error", err)
			err = fmt.Errorf("failed to close connection: %w", err)
		}
	})
	return err
}

// Wait 阻塞到内部 goroutine 全部退出
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closeChan:
		return true
	default:
		return false
	}
}

// NewProtocol 根据配置创建对应的协议实例
func NewProtocol(cfg Config) (interfaces.TransportProtocol, error) {
	clientID := cfg.Server.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	return websocket.NewWebSocketProtocol(websocket.Config{
		URL:              cfg.Server.EndpointURL,
		ClientID:         clientID,
		UserAgent:        "posebridge/1",
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
	})
}
