package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/lisuiheng/posebridge/core"
	"github.com/lisuiheng/posebridge/protocols/websocket"
	"github.com/spf13/cobra"
)

func (a *app) shellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Keep one connection open and issue requests interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &syncWriter{w: cmd.OutOrStdout()}
			client, err := a.newClient(printingHandlers(out))
			if err != nil {
				return err
			}
			defer client.Close(websocket.CloseNormal, "Finished")

			runShell(cmd, client, cmd.InOrStdin(), out)
			return nil
		},
	}
}

// syncWriter 串行化提示符输出与异步应答输出
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func printingHandlers(out io.Writer) core.HandlerFuncs {
	show := func(r core.Response) {
		fmt.Fprintf(out, "\n< %s\n", r.Command())
		_ = printJSON(out, r)
	}
	return core.HandlerFuncs{
		DetectPose:    func(r core.DetectPoseResponse) { show(r) },
		Login:         func(r core.LoginResponse) { show(r) },
		Register:      func(r core.RegisterResponse) { show(r) },
		GetAllResults: func(r core.GetAllResultsResponse) { show(r) },
		GetLevels:     func(r core.GetLevelsResponse) { show(r) },
		NetworkStatus: func(s core.NetworkStatus) {
			fmt.Fprintf(out, "\n* network %s\n", s)
		},
	}
}

func runShell(cmd *cobra.Command, client *core.Client, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nposectl> ")
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		name, args := parts[0], parts[1:]
		if name == "exit" || name == "quit" {
			fmt.Fprintln(out, "Exiting...")
			return
		}
		if err := shellExec(cmd, client, name, args, out); err != nil {
			fmt.Fprintf(out, "✗ %v\n", err)
		}
	}
}

func shellExec(cmd *cobra.Command, client *core.Client, name string, args []string, out io.Writer) error {
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s expects %d argument(s), got %d", name, n, len(args))
		}
		return nil
	}

	switch name {
	case "login", "register":
		if err := need(2); err != nil {
			return err
		}
		if name == "login" {
			return client.Login(args[0], args[1])
		}
		return client.Register(args[0], args[1])
	case "levels":
		return client.ListLevels()
	case "results":
		if err := need(1); err != nil {
			return err
		}
		return client.ListResults(args[0])
	case "update":
		if err := need(4); err != nil {
			return err
		}
		score, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid score: %w", err)
		}
		percent, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid percent: %w", err)
		}
		return client.UpdateResult(args[0], args[1], score, percent)
	case "detect":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("detect expects FRAME [reset]")
		}
		frame, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return client.SubmitPoseFrame(cmd.Context(), frame, len(args) == 2 && args[1] == "reset")
	case "status":
		fmt.Fprintf(out, "  State:   %s\n  Network: %s\n", client.State(), client.Status())
		return nil
	case "help":
		printHelp(out)
		return nil
	default:
		printHelp(out)
		return fmt.Errorf("unknown command: %s", name)
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintln(out, "  login USER PASS                 - Log in")
	fmt.Fprintln(out, "  register USER PASS              - Create an account")
	fmt.Fprintln(out, "  levels                          - List levels")
	fmt.Fprintln(out, "  results USER_ID                 - List results for a user")
	fmt.Fprintln(out, "  update USER LEVEL SCORE PERCENT - Record a result")
	fmt.Fprintln(out, "  detect FRAME [reset]            - Submit a frame for pose detection")
	fmt.Fprintln(out, "  status                          - Show connection state")
	fmt.Fprintln(out, "  exit/quit                       - Exit the program")
	fmt.Fprintln(out, "  help                            - Show this help message")
}
