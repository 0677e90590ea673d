package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lisuiheng/posebridge/pkg/interfaces"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextEvent(t *testing.T, p *WSProtocol) interfaces.Event {
	t.Helper()
	select {
	case ev, ok := <-p.Events():
		if !ok {
			t.Fatal("event channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return interfaces.Event{}
}

func TestWSProtocol_EchoAndClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	closeErrs := make(chan *websocket.CloseError, 1)
	headers := make(chan http.Header, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					closeErrs <- ce
				}
				return
			}
			_ = conn.WriteMessage(mt, msg)
		}
	}))
	defer srv.Close()

	p, err := NewWebSocketProtocol(Config{URL: wsURL(srv), ClientID: "client-1", UserAgent: "test/1"})
	if err != nil {
		t.Fatalf("NewWebSocketProtocol: %v", err)
	}
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	h := <-headers
	if h.Get("Client-Id") != "client-1" || h.Get("User-Agent") != "test/1" {
		t.Fatalf("handshake headers=%v", h)
	}
	if ev := nextEvent(t, p); ev.Type != interfaces.EventOpen {
		t.Fatalf("first event=%s, want open", ev.Type)
	}

	if err := p.Send([]byte(`{"command":"get_levels"}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ev := nextEvent(t, p)
	if ev.Type != interfaces.EventMessage || string(ev.Payload) != `{"command":"get_levels"}` {
		t.Fatalf("event=%+v", ev)
	}
	if err := p.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	if err := p.Close(CloseNormal, "Finished"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case ce := <-closeErrs:
		if ce.Code != CloseNormal || ce.Text != "Finished" {
			t.Fatalf("server saw close %d %q", ce.Code, ce.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the close frame")
	}
	if err := p.Close(CloseNormal, "again"); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestWSProtocol_ServerCloseBecomesCloseEvent(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(4001, "bye"), time.Now().Add(time.Second))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	p, _ := NewWebSocketProtocol(Config{URL: wsURL(srv)})
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer p.Close(CloseNormal, "")

	_ = nextEvent(t, p)
	ev := nextEvent(t, p)
	if ev.Type != interfaces.EventClose || ev.Code != 4001 || ev.Reason != "bye" {
		t.Fatalf("event=%+v, want close 4001 bye", ev)
	}
	if _, ok := <-p.Events(); ok {
		t.Fatalf("event channel should close after the read pump exits")
	}
}

func TestWSProtocol_DroppedConnectionBecomesErrorEvent(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.UnderlyingConn().Close()
	}))
	defer srv.Close()

	p, _ := NewWebSocketProtocol(Config{URL: wsURL(srv)})
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer p.Close(CloseNormal, "")

	_ = nextEvent(t, p)
	ev := nextEvent(t, p)
	if ev.Type != interfaces.EventError || ev.Err == nil {
		t.Fatalf("event=%+v, want error", ev)
	}
}

func TestWSProtocol_Errors(t *testing.T) {
	if _, err := NewWebSocketProtocol(Config{}); err == nil {
		t.Fatalf("empty URL should be rejected")
	}

	p, _ := NewWebSocketProtocol(Config{URL: "ws://127.0.0.1:1/ws", HandshakeTimeout: time.Second})
	if err := p.Send([]byte("x")); !errors.Is(err, interfaces.ErrNotConnected) {
		t.Fatalf("Send before connect err=%v, want ErrNotConnected", err)
	}
	if err := p.Connect(context.Background()); !errors.Is(err, interfaces.ErrConnectionFailed) {
		t.Fatalf("Connect err=%v, want ErrConnectionFailed", err)
	}
	if err := p.Close(CloseNormal, ""); err != nil {
		t.Fatalf("Close without connection: %v", err)
	}
}

func TestCloseMessage(t *testing.T) {
	msg := closeMessage(0, strings.Repeat("x", 200))
	if len(msg) != 125 {
		t.Fatalf("close payload=%d bytes, want 125", len(msg))
	}
	if code := int(msg[0])<<8 | int(msg[1]); code != CloseNormal {
		t.Fatalf("code=%d, want %d", code, CloseNormal)
	}
}
