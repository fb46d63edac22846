package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/scoreboard/internal/adapters/export"
	"github.com/okian/scoreboard/internal/adapters/http/params"
)

// ExportHandler serves a leaderboard as a spreadsheet.
type ExportHandler struct {
	deps LeaderboardDependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps LeaderboardDependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleExport handles GET /api/leaderboard/{game_type}/export.xlsx.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_leaderboard"
	gameType, err := params.Path(r, paramGameType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), gameType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, gameType, entries); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}

	name := "leaderboard-" + export.SheetName(gameType) + ".xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
