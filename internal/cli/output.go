package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Profile:
		o.printProfile(v)
	case AuthResult:
		o.printAuthResult(v)
	case OpenGames:
		o.printOpenGames(v)
	case GameState:
		o.printGameState(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Profile response type (matches API)
type Profile struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	IsGuest  bool   `json:"isGuest"`
}

// AuthResult is returned by the guest, register and login endpoints
type AuthResult struct {
	UID          string `json:"uid"`
	Username     string `json:"username"`
	IsGuest      bool   `json:"isGuest"`
	SessionToken string `json:"sessionToken"`
}

// Game is the subset of a game record the CLI shows
type Game struct {
	GameID         string `json:"gameId"`
	Player1Name    string `json:"player1Name"`
	Player1Points  int    `json:"player1Points"`
	Player1Ready   bool   `json:"player1Ready"`
	Player1Time    int    `json:"player1Time"`
	Player2Name    string `json:"player2Name"`
	Player2Points  int    `json:"player2Points"`
	Player2Ready   bool   `json:"player2Ready"`
	Player2Time    int    `json:"player2Time"`
	TimeMode       int    `json:"timeMode"`
	Phase          string `json:"phase"`
	Playing        bool   `json:"playing"`
	Player1HasTurn bool   `json:"player1HasTurn"`
}

// OpenGames is the lobby snapshot
type OpenGames struct {
	Games []Game `json:"games"`
}

// Move is one placed stone
type Move struct {
	X         int  `json:"x"`
	Y         int  `json:"y"`
	IsPlayer1 bool `json:"isPlayer1"`
}

// Board cells hold 0 for empty, 1 for player1, 2 for player2
type Board struct {
	Size  int     `json:"size"`
	Cells [][]int `json:"cells"`
}

// GameState response type
type GameState struct {
	Game  Game   `json:"game"`
	Moves []Move `json:"moves"`
	Board Board  `json:"board"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printProfile(p Profile) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.Username, p.UID)
	fmt.Printf("Points: %d\n", p.Points)
	fmt.Printf("Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printProfile(Profile{UID: a.UID, Username: a.Username, IsGuest: a.IsGuest})
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printOpenGames(g OpenGames) {
	if len(g.Games) == 0 {
		fmt.Println("No open games")
		return
	}
	fmt.Printf("Open games (%d):\n", len(g.Games))
	for _, game := range g.Games {
		fmt.Printf("  - %s  %s (%d pts)  %d min\n", game.GameID, game.Player1Name, game.Player1Points, game.TimeMode)
	}
}

func (o *Output) printGameState(s GameState) {
	g := s.Game
	fmt.Printf("Game: %s\n", g.GameID)
	fmt.Printf("Phase: %s\n", g.Phase)
	fmt.Printf("X %s: %d pts, %s left%s\n", g.Player1Name, g.Player1Points, clock(g.Player1Time), readyMark(g.Player1Ready))
	if g.Player2Name != "" {
		fmt.Printf("O %s: %d pts, %s left%s\n", g.Player2Name, g.Player2Points, clock(g.Player2Time), readyMark(g.Player2Ready))
	}
	if g.Playing {
		turn := g.Player2Name
		if g.Player1HasTurn {
			turn = g.Player1Name
		}
		fmt.Printf("Turn: %s (move %d)\n", turn, len(s.Moves)+1)
	}

	fmt.Println()
	o.printBoard(s.Board)
}

func (o *Output) printBoard(b Board) {
	if len(b.Cells) == 0 {
		return
	}

	// Column headers as hex digits keep a 15 wide board aligned
	fmt.Print("   ")
	for col := 0; col < b.Size; col++ {
		fmt.Printf(" %x", col)
	}
	fmt.Println()

	for row, cells := range b.Cells {
		var line strings.Builder
		for _, cell := range cells {
			switch cell {
			case 1:
				line.WriteString(" X")
			case 2:
				line.WriteString(" O")
			default:
				line.WriteString(" .")
			}
		}
		fmt.Printf(" %x |%s\n", row, line.String())
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func readyMark(ready bool) string {
	if ready {
		return " [ready]"
	}
	return ""
}
