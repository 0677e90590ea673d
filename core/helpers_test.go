package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lisuiheng/posebridge/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fakeSender 记录写出的帧，可在第 failOn 次写出时返回错误
type fakeSender struct {
	mu     sync.Mutex
	sent   []string
	calls  int
	failOn int
}

func (f *fakeSender) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn > 0 && f.calls == f.failOn {
		return errors.New("broken pipe")
	}
	f.sent = append(f.sent, string(data))
	return nil
}

func (f *fakeSender) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// fakeTransport 在 gate 关闭后才完成连接
type fakeTransport struct {
	fakeSender

	events     chan interfaces.Event
	gate       chan struct{}
	connectErr error

	cmu         sync.Mutex
	pings       int
	closed      bool
	closeCode   int
	closeReason string
}

var _ interfaces.TransportProtocol = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events: make(chan interfaces.Event, 16),
		gate:   make(chan struct{}),
	}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	select {
	case <-f.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	if f.connectErr != nil {
		return f.connectErr
	}
	f.events <- interfaces.Event{Type: interfaces.EventOpen}
	return nil
}

func (f *fakeTransport) Ping() error {
	f.cmu.Lock()
	defer f.cmu.Unlock()
	f.pings++
	return nil
}

func (f *fakeTransport) Events() <-chan interfaces.Event { return f.events }

func (f *fakeTransport) ProtocolType() string { return "fake" }

func (f *fakeTransport) Close(code int, reason string) error {
	f.cmu.Lock()
	defer f.cmu.Unlock()
	f.closed = true
	f.closeCode = code
	f.closeReason = reason
	return nil
}

func (f *fakeTransport) pingCount() int {
	f.cmu.Lock()
	defer f.cmu.Unlock()
	return f.pings
}

// recorder 记录 handler 调用与网络状态
type recorder struct {
	mu        sync.Mutex
	responses []Response
	statuses  []NetworkStatus
}

func (r *recorder) handlers() HandlerFuncs {
	add := func(resp Response) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.responses = append(r.responses, resp)
	}
	return HandlerFuncs{
		DetectPose:    func(v DetectPoseResponse) { add(v) },
		Login:         func(v LoginResponse) { add(v) },
		Register:      func(v RegisterResponse) { add(v) },
		GetAllResults: func(v GetAllResultsResponse) { add(v) },
		GetLevels:     func(v GetLevelsResponse) { add(v) },
		NetworkStatus: func(s NetworkStatus) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.statuses = append(r.statuses, s)
		},
	}
}

func (r *recorder) got() []Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Response(nil), r.responses...)
}

func (r *recorder) gotStatuses() []NetworkStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NetworkStatus(nil), r.statuses...)
}
