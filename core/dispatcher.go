package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// HandlerSet 是应用层提供的回调集合，每个入站命令对应一个方法
type HandlerSet interface {
	OnDetectPose(DetectPoseResponse)
	OnLogin(LoginResponse)
	OnRegister(RegisterResponse)
	OnGetAllResults(GetAllResultsResponse)
	OnGetLevels(GetLevelsResponse)
}

// NetworkStatusHandler 是可选能力，HandlerSet 实现它即可收到网络状态变化
type NetworkStatusHandler interface {
	OnNetworkStatus(NetworkStatus)
}

// HandlerFuncs 以函数字段实现 HandlerSet，未设置的回调被忽略
type HandlerFuncs struct {
	DetectPose    func(DetectPoseResponse)
	Login         func(LoginResponse)
	Register      func(RegisterResponse)
	GetAllResults func(GetAllResultsResponse)
	GetLevels     func(GetLevelsResponse)
	NetworkStatus func(NetworkStatus)
}

var (
	_ HandlerSet           = HandlerFuncs{}
	_ NetworkStatusHandler = HandlerFuncs{}
)

func (h HandlerFuncs) OnDetectPose(r DetectPoseResponse) {
	if h.DetectPose != nil {
		h.DetectPose(r)
	}
}

func (h HandlerFuncs) OnLogin(r LoginResponse) {
	if h.Login != nil {
		h.Login(r)
	}
}

func (h HandlerFuncs) OnRegister(r RegisterResponse) {
	if h.Register != nil {
		h.Register(r)
	}
}

func (h HandlerFuncs) OnGetAllResults(r GetAllResultsResponse) {
	if h.GetAllResults != nil {
		h.GetAllResults(r)
	}
}

func (h HandlerFuncs) OnGetLevels(r GetLevelsResponse) {
	if h.GetLevels != nil {
		h.GetLevels(r)
	}
}

func (h HandlerFuncs) OnNetworkStatus(s NetworkStatus) {
	if h.NetworkStatus != nil {
		h.NetworkStatus(s)
	}
}

var errUnknownCommand = errors.New("unknown command")

// Dispatcher 解析入站文本帧并按 command 路由到 HandlerSet
type Dispatcher struct {
	handlers HandlerSet
	verbose  bool
	metrics  *Metrics
	logger   *slog.Logger

	// closed 为 true 后不再调用 handler
	closed func() bool
}

func newDispatcher(handlers HandlerSet, verbose bool, metrics *Metrics, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: handlers,
		verbose:  verbose,
		metrics:  metrics,
		logger:   log,
	}
}

// Dispatch 不向调用方返回错误：解析失败记录日志后丢弃，
// 缺失或未知的 command 直接丢弃。
// 客户端关闭后到达的消息不再投递；Close 调用时已在执行的 handler 会正常返回。
func (d *Dispatcher) Dispatch(raw []byte) {
	if d.verbose {
		d.logger.Info("Received text message", "raw", string(raw))
	} else {
		d.logger.Debug("Received text message", "size", len(raw))
	}

	resp, err := decodeResponse(raw)
	switch {
	case errors.Is(err, errUnknownCommand):
		d.metrics.unknown.Inc()
		d.logger.Debug("Dropping message", "reason", err)
		return
	case err != nil:
		d.metrics.parseFailures.Inc()
		d.logger.Warn("Failed to parse inbound message",
			"error", err,
			"raw_data", truncate(raw, 256))
		return
	}

	d.metrics.inbound.WithLabelValues(string(resp.Command())).Inc()
	if d.closed != nil && d.closed() {
		d.logger.Debug("Dropping message, client closed", "command", resp.Command())
		return
	}
	switch r := resp.(type) {
	case DetectPoseResponse:
		d.handlers.OnDetectPose(r)
	case LoginResponse:
		d.handlers.OnLogin(r)
	case RegisterResponse:
		d.handlers.OnRegister(r)
	case GetAllResultsResponse:
		d.handlers.OnGetAllResults(r)
	case GetLevelsResponse:
		d.handlers.OnGetLevels(r)
	}
}

// decodeResponse 只认小写的 command 与 response 键，重复键以最后一个为准
func decodeResponse(raw []byte) (Response, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	var tag string
	if cmd, ok := env["command"]; !ok || json.Unmarshal(cmd, &tag) != nil || tag == "" {
		return nil, fmt.Errorf("%w: missing command field", errUnknownCommand)
	}
	body := env["response"]

	switch CommandTag(tag) {
	case CommandDetectPose:
		// detect_pose 的应答没有 response 包装层
		r := DetectPoseResponse{Raw: json.RawMessage(raw)}
		decodeBody(r.Raw, &r)
		return r, nil
	case CommandLogin:
		r := LoginResponse{Raw: body}
		decodeBody(body, &r)
		return r, nil
	case CommandRegister:
		r := RegisterResponse{Raw: body}
		decodeBody(body, &r)
		return r, nil
	case CommandGetAllResults:
		r := GetAllResultsResponse{Raw: body}
		decodeBody(body, &r)
		return r, nil
	case CommandGetLevels:
		r := GetLevelsResponse{Raw: body}
		decodeBody(body, &r)
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCommand, tag)
	}
}

// decodeBody 尽力解码；类型不符时保留 Raw，由 handler 自行处理
func decodeBody[T any](body json.RawMessage, dst *T) {
	if len(body) == 0 {
		return
	}
	raw := *dst
	if err := json.Unmarshal(body, dst); err != nil {
		*dst = raw
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
