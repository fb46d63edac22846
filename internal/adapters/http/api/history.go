package api

import (
	"context"
	"net/http"

	"github.com/okian/scoreboard/internal/adapters/http/params"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
)

// HistoryDependencies defines the interface for player history reads.
type HistoryDependencies interface {
	History(ctx context.Context, playerID string) ([]model.Record, error)
}

// HistoryHandler handles player history requests.
type HistoryHandler struct {
	deps HistoryDependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

// HandleGetHistory handles GET /api/games/history/{player_id}, newest first.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	playerID, err := params.Path(r, paramPlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	records, err := h.deps.History(r.Context(), playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromRecords(records))
}
