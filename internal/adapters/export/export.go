// Package export renders ranked leaderboards as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/metrics"
)

// ContentType is the media type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	maxSheetName = 31
	percentFmt   = 10 // built-in "0.00%"
)

// Header is the first row of every export.
var Header = []string{"Rank", "Player", "High score", "Games played", "Wins", "Win rate"}

// SheetName makes gameType usable as a worksheet name: characters Excel
// rejects become '_', the result is cut to 31 runes and edge apostrophes
// are dropped.
func SheetName(gameType string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(gameType))
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	// Excel rejects a leading or trailing apostrophe; trim after the cut
	// so truncation cannot expose one.
	name = strings.Trim(name, "'")
	if name == "" {
		name = "leaderboard"
	}
	return name
}

// WriteXLSX writes entries, already in rank order, as a single-sheet workbook.
func WriteXLSX(w io.Writer, gameType string, entries []model.LeaderboardEntry) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := SheetName(gameType)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{i + 1, e.PlayerName, e.HighScore, e.GamesPlayed, e.Wins, winRate(e)}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if len(entries) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: percentFmt})
		if err != nil {
			return fmt.Errorf("create style: %w", err)
		}
		last := fmt.Sprintf("F%d", len(entries)+1)
		if err := f.SetCellStyle(sheet, "F2", last, style); err != nil {
			return fmt.Errorf("style win rate: %w", err)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	_ = f.SetColWidth(sheet, "C", "F", 14)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	metrics.RecordExportGenerated()
	return nil
}

func winRate(e model.LeaderboardEntry) float64 {
	if e.GamesPlayed == 0 {
		return 0
	}
	return float64(e.Wins) / float64(e.GamesPlayed)
}
