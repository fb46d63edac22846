// Package types contains the JSON shapes exchanged over the HTTP API.
package types

import (
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
)

// LeaderboardEntry is one row of GET /api/leaderboard/{game_type}.
type LeaderboardEntry struct {
	PlayerName  string `json:"player_name"`
	GameType    string `json:"game_type"`
	HighScore   int64  `json:"high_score"`
	GamesPlayed int64  `json:"games_played"`
	Wins        int64  `json:"wins"`
}

// GameRecord is one row of GET /api/games/history/{player_id}.
type GameRecord struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	GameType   string    `json:"game_type"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Score      int64     `json:"score"`
	Duration   int64     `json:"duration"`
	Winner     bool      `json:"winner"`
}

// SubmitResponse is returned by POST /api/games/result.
type SubmitResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// BoardUpdate is pushed to websocket subscribers of a game type.
type BoardUpdate struct {
	Type     string             `json:"type"`
	GameType string             `json:"game_type"`
	Entries  []LeaderboardEntry `json:"entries"`
}

// FromEntries converts ranked domain entries; the result is never nil.
func FromEntries(in []model.LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(in))
	for i, e := range in {
		out[i] = LeaderboardEntry{
			PlayerName:  e.PlayerName,
			GameType:    e.GameType,
			HighScore:   e.HighScore,
			GamesPlayed: e.GamesPlayed,
			Wins:        e.Wins,
		}
	}
	return out
}

// FromRecords converts stored records; the result is never nil.
func FromRecords(in []model.Record) []GameRecord {
	out := make([]GameRecord, len(in))
	for i, r := range in {
		out[i] = GameRecord{
			ID:         r.ID,
			Timestamp:  r.Timestamp,
			GameType:   r.GameType,
			PlayerID:   r.PlayerID,
			PlayerName: r.PlayerName,
			Score:      r.Score,
			Duration:   r.Duration,
			Winner:     r.Winner,
		}
	}
	return out
}
