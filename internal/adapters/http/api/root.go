package api

import "net/http"

// RootHandler answers GET /.
type RootHandler struct{}

// NewRootHandler creates a root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleRoot identifies the server.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Game API Server"})
}
