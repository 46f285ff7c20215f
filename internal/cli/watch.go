package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// Frame is one websocket message
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TimedFrame is a Frame as printed in JSON lines mode
type TimedFrame struct {
	Time    time.Time       `json:"time"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newWatchCmd() *cobra.Command {
	var jsonOutput bool
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream the open games feed",
		Long: `Connect to the lobby websocket and print every open games snapshot.

A snapshot arrives on connect and again whenever a game is created, filled,
reopened or removed. Watching as a guest removes the guest account when
the command exits.

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchLobby(jsonOutput, count)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output frames as JSON lines")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many snapshots (0 streams until interrupted)")

	return cmd
}

// dialSocket opens an authenticated websocket and closes it on SIGINT/SIGTERM
func dialSocket(path string) (*websocket.Conn, context.Context, context.CancelFunc, error) {
	target, err := client.SocketURL(path)
	if err != nil {
		return nil, nil, nil, err
	}

	conn, resp, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, nil, nil, fmt.Errorf("not logged in: run 'omokctl player guest' or 'player login' first")
		}
		return nil, nil, nil, fmt.Errorf("connection failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
		cancel()
	}()

	return conn, ctx, cancel, nil
}

func watchLobby(jsonOutput bool, count int) error {
	conn, ctx, cancel, err := dialSocket("/ws/lobby")
	if err != nil {
		return err
	}
	defer cancel()

	if !jsonOutput {
		fmt.Println("Connected to lobby")
	}

	seen := 0
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				if !jsonOutput {
					fmt.Println("Disconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		printFrame(frame, jsonOutput)
		seen++
		if count > 0 && seen >= count {
			return nil
		}
	}
}

func printFrame(frame Frame, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		data, _ := json.Marshal(TimedFrame{Time: now, Type: frame.Type, Payload: frame.Payload})
		fmt.Println(string(data))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	if frame.Type == "openGames" {
		var snapshot OpenGames
		if err := json.Unmarshal(frame.Payload, &snapshot); err == nil {
			fmt.Printf("[%s] ", timestamp)
			NewOutput("text").printOpenGames(snapshot)
			return
		}
	}

	display := strings.ReplaceAll(string(frame.Payload), "\n", " ")
	if len(display) > 120 {
		display = display[:120] + "..."
	}
	fmt.Printf("[%s] %s: %s\n", timestamp, frame.Type, display)
}
