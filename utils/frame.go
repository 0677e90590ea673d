package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// EncodeFrame 将二进制帧流式编码为标准 base64 文本，ctx 取消时中止
func EncodeFrame(ctx context.Context, r io.Reader) (string, error) {
	var sb strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &sb)

	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(enc, &ctxReader{ctx: ctx, r: r}, buf); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}
	return sb.String(), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
