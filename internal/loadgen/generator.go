package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scoreboard/pkg/logger"
)

// Score ranges per performer band.
const (
	maxDuration = 3600
	winnerOdds  = 4
)

var bands = []struct{ min, span int64 }{
	{0, 100},     // casual
	{100, 400},   // regular
	{500, 400},   // strong
	{900, 100},   // elite
	{-50, 50},    // penalty heavy
	{0, 1000},    // anything goes
	{250, 250},   // mid
	{750, 150},   // high
	{1000, 1},    // perfect
	{0, 1 << 20}, // outlier
}

type player struct {
	id   string
	name string
}

// rngReader feeds uuid generation from the run's seeded source.
type rngReader struct{ rng *rand.Rand }

func (r rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.Uint32())
	}
	return len(p), nil
}

// newPlayers creates n players with unique ids. Names repeat every 97 players
// so some leaderboard entries aggregate several ids.
func newPlayers(rng *rand.Rand, n int) ([]player, error) {
	src := rngReader{rng: rng}
	out := make([]player, n)
	for i := range out {
		id, err := uuid.NewRandomFromReader(src)
		if err != nil {
			return nil, fmt.Errorf("player id: %w", err)
		}
		out[i] = player{
			id:   id.String(),
			name: "player-" + strconv.Itoa(i%97) + "-" + strconv.Itoa(rng.IntN(3)),
		}
	}
	return out, nil
}

// runGames appends a short run suffix so each run starts from empty boards.
func runGames(games []string, rng *rand.Rand) []string {
	suffix := fmt.Sprintf("%06x", rng.Uint32()&0xffffff)
	out := make([]string, len(games))
	for i, g := range games {
		out[i] = g + "-" + suffix
	}
	return out
}

func generateResult(rng *rand.Rand, players []player, games []string) Result {
	p := players[rng.IntN(len(players))]
	b := bands[rng.IntN(len(bands))]
	return Result{
		GameType:   games[rng.IntN(len(games))],
		PlayerID:   p.id,
		PlayerName: p.name,
		Score:      b.min + rng.Int64N(b.span),
		Duration:   rng.Int64N(maxDuration) + 1,
		Winner:     rng.IntN(winnerOdds) == 0,
	}
}

// generateResults creates config.NumResults results over config.Players
// players and the run's game types.
func generateResults(ctx context.Context, config *Config, stats *Stats) ([]Result, []string, error) {
	if config.NumResults < 1 || config.Players < 1 || len(config.Games) == 0 {
		return nil, nil, fmt.Errorf("%w: need at least one result, player and game", ErrInvalidConfig)
	}

	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	logger.Get().Info(ctx, "generating results",
		logger.Int("results", config.NumResults),
		logger.Int("players", config.Players),
		logger.Any("seed", seed),
	)

	players, err := newPlayers(rng, config.Players)
	if err != nil {
		return nil, nil, err
	}
	games := runGames(config.Games, rng)

	results := make([]Result, config.NumResults)
	for i := range results {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		results[i] = generateResult(rng, players, games)
	}

	stats.ResultsGenerated = len(results)
	return results, games, nil
}
