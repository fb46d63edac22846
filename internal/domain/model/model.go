// Package model contains domain models passed between layers.
package model

import "time"

// GameResult is one completed game session's outcome for one player, as submitted.
type GameResult struct {
	GameType   string
	PlayerID   string // opaque external identifier
	PlayerName string // display label; leaderboard key component
	Score      int64
	Duration   int64 // seconds
	Winner     bool
}

// Record is a stored GameResult. Records are never updated or deleted.
type Record struct {
	ID        string
	Timestamp time.Time
	// Seq is the store-assigned insertion sequence, strictly increasing from 1.
	Seq int64
	GameResult
}

// Key identifies a leaderboard entry.
//
// Entries are keyed by display name rather than player id, so distinct players
// sharing a name share one entry and a rename starts a fresh one.
type Key struct {
	PlayerName string
	GameType   string
}

// KeyOf returns the leaderboard key a result aggregates into.
func KeyOf(r GameResult) Key {
	return Key{PlayerName: r.PlayerName, GameType: r.GameType}
}

// LeaderboardEntry holds cumulative statistics for one Key.
type LeaderboardEntry struct {
	PlayerName  string
	GameType    string
	HighScore   int64
	GamesPlayed int64
	Wins        int64
}

// Key returns the entry's key.
func (e LeaderboardEntry) Key() Key {
	return Key{PlayerName: e.PlayerName, GameType: e.GameType}
}

// Change notes that the board for GameType was modified by PlayerName at At.
type Change struct {
	GameType   string
	PlayerName string
	At         time.Time
}
