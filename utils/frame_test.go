package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestEncodeFrame(t *testing.T) {
	got, err := EncodeFrame(context.Background(), strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if got != "aGVsbG8=" {
		t.Fatalf("got %q, want aGVsbG8=", got)
	}
}

func TestEncodeFrame_LargeFrame(t *testing.T) {
	frame := bytes.Repeat([]byte{0xff, 0xd8, 0x00, 0x42}, 50_000)
	got, err := EncodeFrame(context.Background(), bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if got != base64.StdEncoding.EncodeToString(frame) {
		t.Fatalf("streamed encoding differs from one-shot encoding")
	}
}

func TestEncodeFrame_Empty(t *testing.T) {
	got, err := EncodeFrame(context.Background(), bytes.NewReader(nil))
	if err != nil || got != "" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestEncodeFrame_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := EncodeFrame(ctx, strings.NewReader("hello")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}
