package main

import (
	"context"
	"fmt"

	"github.com/lisuiheng/posebridge/core"
)

// replyWaiter 把回调转成通道，供一次性命令等待应答
type replyWaiter struct {
	replies chan core.Response
	status  chan core.NetworkStatus
}

var (
	_ core.HandlerSet           = (*replyWaiter)(nil)
	_ core.NetworkStatusHandler = (*replyWaiter)(nil)
)

func newReplyWaiter() *replyWaiter {
	return &replyWaiter{
		replies: make(chan core.Response, 64),
		status:  make(chan core.NetworkStatus, 16),
	}
}

func (w *replyWaiter) push(r core.Response) {
	select {
	case w.replies <- r:
	default:
	}
}

func (w *replyWaiter) OnDetectPose(r core.DetectPoseResponse)       { w.push(r) }
func (w *replyWaiter) OnLogin(r core.LoginResponse)                 { w.push(r) }
func (w *replyWaiter) OnRegister(r core.RegisterResponse)           { w.push(r) }
func (w *replyWaiter) OnGetAllResults(r core.GetAllResultsResponse) { w.push(r) }
func (w *replyWaiter) OnGetLevels(r core.GetLevelsResponse)         { w.push(r) }

func (w *replyWaiter) OnNetworkStatus(s core.NetworkStatus) {
	select {
	case w.status <- s:
	default:
	}
}

// wait 返回第一条匹配 want 的应答；连接出错或关闭时提前返回
func (w *replyWaiter) wait(ctx context.Context, want core.CommandTag) (core.Response, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s reply: %w", want, ctx.Err())
		case r := <-w.replies:
			if r.Command() == want {
				return r, nil
			}
		case s := <-w.status:
			if s == core.NetworkError || s == core.NetworkClose {
				return nil, fmt.Errorf("waiting for %s reply: connection %s", want, s)
			}
		}
	}
}
