package core

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/lisuiheng/posebridge/utils"
)

// 以下命令只返回发送错误，请求是被缓存还是已写出对调用方透明。
// Close 之后调用一律返回 ErrClientClosed。

// SubmitPoseFrame 先将帧编码为 base64，再发送 detect_pose 请求
func (c *Client) SubmitPoseFrame(ctx context.Context, frame []byte, resetBaseline bool) error {
	return c.SubmitPoseFrameReader(ctx, bytes.NewReader(frame), resetBaseline)
}

func (c *Client) SubmitPoseFrameReader(ctx context.Context, frame io.Reader, resetBaseline bool) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	encoded, err := utils.EncodeFrame(ctx, frame)
	if err != nil {
		return err
	}
	return c.send(DetectPoseRequest{Frame: encoded, UpdateStart: resetBaseline})
}

func (c *Client) Register(username, password string) error {
	return c.send(RegisterRequest{Username: username, Password: password})
}

func (c *Client) Login(username, password string) error {
	return c.send(LoginRequest{Username: username, Password: password})
}

func (c *Client) UpdateResult(userID, levelID string, score, percent float64) error {
	return c.send(UpdateResultRequest{
		UserID:  userID,
		LevelID: levelID,
		Score:   score,
		Percent: percent,
	})
}

func (c *Client) ListResults(userID string) error {
	return c.send(GetAllResultsRequest{UserID: userID})
}

func (c *Client) ListLevels() error {
	return c.send(GetLevelsRequest{})
}

func (c *Client) send(req Request) error {
	result, err := c.queue.TrySend(req)
	if errors.Is(err, ErrClientClosed) {
		c.logger.Warn("Request rejected, client closed", "command", req.Command())
		return err
	}
	if err != nil {
		c.logger.Error("Failed to send request", "command", req.Command(), "error", err)
		return err
	}
	c.logger.Debug("Request accepted", "command", req.Command(), "result", result)
	return nil
}
