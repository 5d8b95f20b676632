package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alcadeta/portfolio-goteam/pkg/httputil"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/middleware"
	"github.com/alcadeta/portfolio-goteam/pkg/state"
)

// ClientStateHandlers serves the snapshot endpoint.
type ClientStateHandlers struct {
	assembler *state.Assembler
	logger    *slog.Logger
}

// NewClientStateHandlers creates client-state handlers.
func NewClientStateHandlers(assembler *state.Assembler, logger *slog.Logger) *ClientStateHandlers {
	return &ClientStateHandlers{assembler: assembler, logger: logger}
}

// RegisterRoutes registers the client-state route.
func (h *ClientStateHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/client-state", h.getClientState).Methods("GET")
}

// getClientState builds the caller's full snapshot. board_id selects the
// active board; when absent the user's first board is used.
func (h *ClientStateHandlers) getClientState(w http.ResponseWriter, r *http.Request) {
	boardID, _, err := httputil.QueryInt64(r, "board_id")
	if err != nil {
		httputil.WriteFieldError(w, kanban.NewFieldError(
			"board_id", "Board ID must be a number.", kanban.CodeInvalid,
		))
		return
	}

	snapshot, err := h.assembler.ClientState(
		r.Context(),
		r.Header.Get(middleware.HeaderAuthUser),
		r.Header.Get(middleware.HeaderAuthToken),
		boardID,
	)
	if err != nil {
		h.logger.Debug("client state rejected", "error", err)
		httputil.WriteError(w, "board_id", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}
