package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	var jsonOutput bool
	var autoTick bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game over the websocket event channel",
		Long: `Open a game connection and send commands read from stdin, one per line:

  create <minutes>      open a new game (5, 10 or 15 minutes per player)
  join <game-id>        take the second seat of an open game
  ready                 mark yourself ready for the next round
  move <x> <y>          place a stone (0-14 on both axes)
  offer redo|draw       propose taking back the last move or a draw
  accept redo|draw      accept the opponent's proposal
  tick                  report one elapsed second of your clock
  quit                  leave the game

Every frame the server sends is printed. With --auto-tick the clock is
reported once a second while it is your turn.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return playGame(jsonOutput, autoTick)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output frames as JSON lines")
	cmd.Flags().BoolVar(&autoTick, "auto-tick", false, "Send a tick every second while holding the turn")

	return cmd
}

// gameSession is the client side of one game connection
type gameSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	gameID  atomic.Value // string
	myTurn  atomic.Bool
}

func (s *gameSession) send(eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(Frame{Type: eventType, Payload: raw})
}

func (s *gameSession) currentGame() string {
	id, _ := s.gameID.Load().(string)
	return id
}

// observe tracks the game id and turn ownership from incoming frames
func (s *gameSession) observe(frame Frame) {
	switch frame.Type {
	case "updateGame", "playerLeft":
		var p struct {
			GameProps struct {
				GameID string `json:"gameId"`
			} `json:"gameProps"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err == nil && p.GameProps.GameID != "" {
			s.gameID.Store(p.GameProps.GameID)
		}
	case "turn":
		s.myTurn.Store(true)
	case "gameEnded":
		s.myTurn.Store(false)
	}
}

func playGame(jsonOutput, autoTick bool) error {
	conn, ctx, cancel, err := dialSocket("/ws/game")
	if err != nil {
		return err
	}
	defer cancel()

	session := &gameSession{conn: conn}
	session.gameID.Store("")

	if !jsonOutput {
		fmt.Println("Connected. Type 'create 10' to open a game or 'join <game-id>'.")
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			var frame Frame
			if err := conn.ReadJSON(&frame); err != nil {
				readErr <- err
				return
			}
			session.observe(frame)
			printFrame(frame, jsonOutput)
		}
	}()

	if autoTick {
		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if id := session.currentGame(); id != "" && session.myTurn.Load() {
						_ = session.send("tick", map[string]string{"gameId": id})
					}
				}
			}
		}()
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := session.command(line)
			if err != nil {
				NewOutput(cfg.Output).PrintError(err)
			}
			if quit {
				return nil
			}
		}
	}
}

// command parses one stdin line and sends the matching event
func (s *gameSession) command(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	gameID := s.currentGame()
	needGame := func() error {
		if gameID == "" {
			return fmt.Errorf("no game yet: create or join one first")
		}
		return nil
	}

	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "create":
		minutes := 10
		if len(fields) > 1 {
			if minutes, err = strconv.Atoi(fields[1]); err != nil {
				return false, fmt.Errorf("minutes must be a number")
			}
		}
		return false, s.send("createGame", map[string]int{"timeMode": minutes})
	case "join":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: join <game-id>")
		}
		return false, s.send("joinGame", map[string]string{"gameId": fields[1]})
	case "ready":
		if err := needGame(); err != nil {
			return false, err
		}
		return false, s.send("playerReady", map[string]string{"gameId": gameID})
	case "tick":
		if err := needGame(); err != nil {
			return false, err
		}
		return false, s.send("tick", map[string]string{"gameId": gameID})
	case "move":
		if err := needGame(); err != nil {
			return false, err
		}
		if len(fields) != 3 {
			return false, fmt.Errorf("usage: move <x> <y>")
		}
		x, errX := strconv.Atoi(fields[1])
		y, errY := strconv.Atoi(fields[2])
		if errX != nil || errY != nil {
			return false, fmt.Errorf("coordinates must be numbers")
		}
		s.myTurn.Store(false)
		return false, s.send("move", map[string]any{
			"gameId":   gameID,
			"position": map[string]int{"x": x, "y": y},
		})
	case "offer", "accept":
		if err := needGame(); err != nil {
			return false, err
		}
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: %s redo|draw", fields[0])
		}
		event := "offer"
		if fields[0] == "accept" {
			event = "offerAccepted"
			// A taken-back move hands the turn to the proposer
			if fields[1] == "redo" {
				s.myTurn.Store(false)
			}
		}
		return false, s.send(event, map[string]string{"gameId": gameID, "type": fields[1]})
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}
