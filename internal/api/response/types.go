package response

import (
	"time"

	"github.com/mcoot/geoduel/internal/engine"
	"github.com/mcoot/geoduel/internal/model"
)

// Health is the health check response
type Health struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

// Region describes a selectable region
type Region struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// RegionsResponse lists the catalog regions
type RegionsResponse struct {
	Regions []Region `json:"regions"`
}

// RegionsFromModel converts catalog region info
func RegionsFromModel(infos []model.RegionInfo) RegionsResponse {
	regions := make([]Region, len(infos))
	for i, info := range infos {
		regions[i] = Region{Name: string(info.Name), Size: info.Size}
	}
	return RegionsResponse{Regions: regions}
}

// RoomSummary represents a room in list responses
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

// RoomSummaryFromEngine converts an engine room summary
func RoomSummaryFromEngine(s engine.RoomSummary) RoomSummary {
	return RoomSummary{
		Code:        string(s.Code),
		Region:      string(s.Region),
		Phase:       string(s.Phase),
		Players:     s.Players,
		MaxPlayers:  s.MaxPlayers,
		Round:       s.Round,
		TotalRounds: s.TotalRounds,
		CreatedAt:   s.CreatedAt,
	}
}

// RoomsResponse lists the active rooms
type RoomsResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}

// Score is one scoreboard line
type Score struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Score       int       `json:"score"`
	IsHost      bool      `json:"is_host,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ScoresFromModel converts a scoreboard, keeping roster order
func ScoresFromModel(entries []model.ScoreEntry) []Score {
	scores := make([]Score, len(entries))
	for i, e := range entries {
		scores[i] = Score{
			ID:          string(e.ID),
			DisplayName: e.DisplayName,
			Score:       e.Score,
			IsHost:      e.IsHost,
			JoinedAt:    e.JoinedAt,
		}
	}
	return scores
}

// Room is the full view of one room
type Room struct {
	RoomSummary
	Host         string     `json:"host"`
	Scoreboard   []Score    `json:"scoreboard"`
	RematchVotes int        `json:"rematch_votes"`
	Winners      []string   `json:"winners,omitempty"`
	Draw         bool       `json:"draw,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
}

// RoomFromEngine converts an engine room snapshot
func RoomFromEngine(s engine.RoomSnapshot) Room {
	return Room{
		RoomSummary:  RoomSummaryFromEngine(s.RoomSummary),
		Host:         string(s.Host),
		Scoreboard:   ScoresFromModel(s.Scoreboard),
		RematchVotes: s.RematchVotes,
		Winners:      connIDs(s.Winners),
		Draw:         s.Draw,
		StartedAt:    startedAt(s.StartedAt),
	}
}

func startedAt(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// GameSummary is one finished game
type GameSummary struct {
	Generation  int       `json:"generation"`
	Region      string    `json:"region"`
	Rounds      int       `json:"rounds"`
	Scores      []Score   `json:"scores"`
	Winners     []string  `json:"winners"`
	Draw        bool      `json:"draw"`
	CompletedAt time.Time `json:"completed_at"`
}

// HistoryResponse lists a room's finished games, oldest first
type HistoryResponse struct {
	Code  string        `json:"code"`
	Games []GameSummary `json:"games"`
}

// HistoryFromModel converts stored game summaries
func HistoryFromModel(code string, summaries []model.GameSummary) HistoryResponse {
	games := make([]GameSummary, len(summaries))
	for i, s := range summaries {
		games[i] = GameSummary{
			Generation:  s.Generation,
			Region:      string(s.Region),
			Rounds:      s.Rounds,
			Scores:      ScoresFromModel(s.Scores),
			Winners:     connIDs(s.Winners),
			Draw:        s.Draw,
			CompletedAt: s.CompletedAt,
		}
	}
	return HistoryResponse{Code: code, Games: games}
}

func connIDs(ids []model.ConnID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
