package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumResults int           // Number of results to submit
	Players    int           // Number of distinct players
	Games      []string      // Game type names; a per-run suffix is appended
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for submitted results
	Verbose    bool          // Enable verbose logging
	Seed       uint64        // Generator seed; zero picks one from the clock
}

// Result is the body of POST /api/games/result.
type Result struct {
	GameType   string `json:"game_type"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Score      int64  `json:"score"`
	Duration   int64  `json:"duration"`
	Winner     bool   `json:"winner"`
}

// Stats holds run statistics.
type Stats struct {
	ResultsGenerated  int
	ResultsSubmitted  int
	ResultsSuccessful int
	ResultsFailed     int
	BoardsVerified    int
	HistoriesVerified int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
