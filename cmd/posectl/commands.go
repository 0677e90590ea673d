package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/lisuiheng/posebridge/core"
	"github.com/lisuiheng/posebridge/protocols/websocket"
	"github.com/spf13/cobra"
)

// runOnce 建立连接、发送一个请求并打印匹配的应答
func (a *app) runOnce(cmd *cobra.Command, want core.CommandTag, send func(*core.Client) error) error {
	w := newReplyWaiter()
	client, err := a.newClient(w)
	if err != nil {
		return err
	}
	defer client.Close(websocket.CloseNormal, "Finished")

	if err := send(client); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()
	resp, err := w.wait(ctx, want)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func printJSON(out io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func (a *app) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login USERNAME PASSWORD",
		Short: "Log in and print the account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd, core.CommandLogin, func(c *core.Client) error {
				return c.Login(args[0], args[1])
			})
		},
	}
}

func (a *app) registerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register USERNAME PASSWORD",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd, core.CommandRegister, func(c *core.Client) error {
				return c.Register(args[0], args[1])
			})
		},
	}
}

func (a *app) levelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List available levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd, core.CommandGetLevels, func(c *core.Client) error {
				return c.ListLevels()
			})
		},
	}
}

func (a *app) resultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "results USER_ID",
		Short: "List a user's level results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd, core.CommandGetAllResults, func(c *core.Client) error {
				return c.ListResults(args[0])
			})
		},
	}
}

// update_result 没有应答，发送后等待队列写出即可
func (a *app) updateResultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update-result USER_ID LEVEL_ID SCORE PERCENT",
		Short: "Record a score for a level",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", args[2], err)
			}
			percent, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid percent %q: %w", args[3], err)
			}

			w := newReplyWaiter()
			client, err := a.newClient(w)
			if err != nil {
				return err
			}
			defer client.Close(websocket.CloseNormal, "Finished")

			if err := client.UpdateResult(args[0], args[1], score, percent); err != nil {
				return err
			}
			return waitOpen(cmd.Context(), client, a.timeout)
		},
	}
}

func (a *app) detectCommand() *cobra.Command {
	var (
		reset    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "detect FRAME...",
		Short: "Submit image frames for pose detection and print the guidance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := newReplyWaiter()
			client, err := a.newClient(w)
			if err != nil {
				return err
			}
			defer client.Close(websocket.CloseNormal, "Finished")

			for i, path := range args {
				frame, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read frame: %w", err)
				}
				if err := client.SubmitPoseFrame(cmd.Context(), frame, reset && i == 0); err != nil {
					return err
				}
				if interval > 0 && i < len(args)-1 {
					time.Sleep(interval)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()
			for range args {
				resp, err := w.wait(ctx, core.CommandDetectPose)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Reset the pose baseline with the first frame")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Delay between frames")
	return cmd
}

// waitOpen 等待连接打开，此时队列中的请求已全部写出
func waitOpen(ctx context.Context, client *core.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		switch client.State() {
		case core.StateOpen:
			return nil
		case core.StateClosed:
			return fmt.Errorf("connection closed before the request was sent")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
