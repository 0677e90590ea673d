package websocket

import (
	"errors"

	"github.com/gorilla/websocket"
	"github.com/lisuiheng/posebridge/pkg/interfaces"
)

const (
	CloseNormal = websocket.CloseNormalClosure
	CloseAway   = websocket.CloseGoingAway
)

// readFailureEvent 区分对端关闭帧与其他读错误。
// 1006 不会出现在线路上，gorilla 用它表示连接意外断开，按错误处理。
func readFailureEvent(err error) interfaces.Event {
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
		return interfaces.Event{Type: interfaces.EventClose, Code: ce.Code, Reason: ce.Text}
	}
	return interfaces.Event{Type: interfaces.EventError, Err: err}
}

func closeMessage(code int, reason string) []byte {
	if code == 0 {
		code = websocket.CloseNormalClosure
	}
	// 关闭帧的控制负载上限为 125 字节
	if len(reason) > 123 {
		reason = reason[:123]
	}
	return websocket.FormatCloseMessage(code, reason)
}
