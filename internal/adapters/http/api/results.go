package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/scoreboard/internal/domain/leaderboard"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
)

// ResultDependencies defines the interface for recording game results.
type ResultDependencies interface {
	Submit(ctx context.Context, r model.GameResult) (string, error)
}

// ResultHandler handles game result submissions.
type ResultHandler struct {
	deps         ResultDependencies
	maxBodyBytes int64
}

// NewResultHandler creates a new result handler.
func NewResultHandler(deps ResultDependencies, maxBodyBytes int64) *ResultHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &ResultHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// resultRequest is the body of POST /api/games/result. Every field is
// required, so pointers tell a missing field from a zero value.
type resultRequest struct {
	GameType   *string `json:"game_type"`
	PlayerID   *string `json:"player_id"`
	PlayerName *string `json:"player_name"`
	Score      *int64  `json:"score"`
	Duration   *int64  `json:"duration"`
	Winner     *bool   `json:"winner"`
}

func (req resultRequest) toModel() (model.GameResult, error) {
	switch {
	case req.GameType == nil:
		return model.GameResult{}, errors.New("game_type is required")
	case req.PlayerID == nil:
		return model.GameResult{}, errors.New("player_id is required")
	case req.PlayerName == nil:
		return model.GameResult{}, errors.New("player_name is required")
	case req.Score == nil:
		return model.GameResult{}, errors.New("score is required")
	case req.Duration == nil:
		return model.GameResult{}, errors.New("duration is required")
	case req.Winner == nil:
		return model.GameResult{}, errors.New("winner is required")
	}
	return model.GameResult{
		GameType:   *req.GameType,
		PlayerID:   *req.PlayerID,
		PlayerName: *req.PlayerName,
		Score:      *req.Score,
		Duration:   *req.Duration,
		Winner:     *req.Winner,
	}, nil
}

// HandlePostResult handles POST /api/games/result.
func (h *ResultHandler) HandlePostResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_result"

	var req resultRequest
	if err := h.readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := h.deps.Submit(r.Context(), res)
	switch {
	case errors.Is(err, leaderboard.ErrInvalidResult):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}

	writeJSON(w, http.StatusOK, types.SubmitResponse{Message: "Game result saved", ID: id})
}

// readJSON decodes a single JSON object from the body into dst, rejecting
// oversized bodies and trailing data. Unknown fields are ignored.
func (h *ResultHandler) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}
