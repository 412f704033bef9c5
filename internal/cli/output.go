package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case RegionsResult:
		o.printRegions(v)
	case RoomsResult:
		o.printRooms(v)
	case Room:
		o.printRoom(v)
	case HistoryResult:
		o.printHistory(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type (matches API)
type HealthResult struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

// Region response type
type Region struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// RegionsResult response type
type RegionsResult struct {
	Regions []Region `json:"regions"`
}

// RoomSummary response type
type RoomSummary struct {
	Code        string    `json:"code"`
	Region      string    `json:"region"`
	Phase       string    `json:"phase"`
	Players     int       `json:"players"`
	MaxPlayers  int       `json:"max_players"`
	Round       int       `json:"round"`
	TotalRounds int       `json:"total_rounds"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomsResult response type
type RoomsResult struct {
	Rooms []RoomSummary `json:"rooms"`
}

// Score response type
type Score struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	IsHost      bool   `json:"is_host,omitempty"`
}

// Room response type
type Room struct {
	RoomSummary
	Host         string     `json:"host"`
	Scoreboard   []Score    `json:"scoreboard"`
	RematchVotes int        `json:"rematch_votes"`
	Winners      []string   `json:"winners,omitempty"`
	Draw         bool       `json:"draw,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
}

// GameSummary response type
type GameSummary struct {
	Generation  int       `json:"generation"`
	Region      string    `json:"region"`
	Rounds      int       `json:"rounds"`
	Scores      []Score   `json:"scores"`
	Winners     []string  `json:"winners"`
	Draw        bool      `json:"draw"`
	CompletedAt time.Time `json:"completed_at"`
}

// HistoryResult response type
type HistoryResult struct {
	Code  string        `json:"code"`
	Games []GameSummary `json:"games"`
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Rooms: %d\n", h.Rooms)
	fmt.Fprintf(o.w, "Connections: %d\n", h.Connections)
}

func (o *Output) printRegions(r RegionsResult) {
	for _, region := range r.Regions {
		fmt.Fprintf(o.w, "%-10s %d\n", region.Name, region.Size)
	}
}

func (o *Output) printRooms(r RoomsResult) {
	if len(r.Rooms) == 0 {
		fmt.Fprintln(o.w, "No active rooms")
		return
	}
	for _, room := range r.Rooms {
		fmt.Fprintf(o.w, "%s  %-8s %-14s %d/%d players  round %d/%d\n",
			room.Code, room.Region, room.Phase, room.Players, room.MaxPlayers, room.Round, room.TotalRounds)
	}
}

func (o *Output) printRoom(r Room) {
	fmt.Fprintf(o.w, "Room: %s\n", r.Code)
	fmt.Fprintf(o.w, "Region: %s\n", r.Region)
	fmt.Fprintf(o.w, "Phase: %s\n", r.Phase)
	fmt.Fprintf(o.w, "Round: %d/%d\n", r.Round, r.TotalRounds)
	if r.StartedAt != nil {
		fmt.Fprintf(o.w, "Started: %s\n", r.StartedAt.Format(time.DateTime))
	}
	fmt.Fprintf(o.w, "Players (%d/%d):\n", r.Players, r.MaxPlayers)
	o.printScores(r.Scoreboard)
	if r.RematchVotes > 0 {
		fmt.Fprintf(o.w, "Rematch votes: %d\n", r.RematchVotes)
	}
	if len(r.Winners) > 0 {
		o.printWinners(r.Scoreboard, r.Winners, r.Draw)
	}
}

func (o *Output) printHistory(h HistoryResult) {
	if len(h.Games) == 0 {
		fmt.Fprintf(o.w, "No finished games for %s\n", h.Code)
		return
	}
	for i, g := range h.Games {
		if i > 0 {
			fmt.Fprintln(o.w)
		}
		fmt.Fprintf(o.w, "Game %d (%s, %d rounds) finished %s\n",
			g.Generation, g.Region, g.Rounds, g.CompletedAt.Format(time.DateTime))
		o.printScores(g.Scores)
		o.printWinners(g.Scores, g.Winners, g.Draw)
	}
}

func (o *Output) printScores(scores []Score) {
	for _, s := range scores {
		hostStr := ""
		if s.IsHost {
			hostStr = " [host]"
		}
		fmt.Fprintf(o.w, "  - %s: %d%s\n", s.DisplayName, s.Score, hostStr)
	}
}

func (o *Output) printWinners(scores []Score, winners []string, draw bool) {
	names := make([]string, len(winners))
	for i, id := range winners {
		names[i] = id
		for _, s := range scores {
			if s.ID == id {
				names[i] = s.DisplayName
				break
			}
		}
	}
	label := "Winner"
	if draw {
		label = "Draw"
	}
	fmt.Fprintf(o.w, "%s: %s\n", label, strings.Join(names, ", "))
}
