package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/contextkeys"
	"github.com/alcadeta/portfolio-goteam/pkg/httputil"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/observability"
	"github.com/alcadeta/portfolio-goteam/pkg/provision"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// BoardHandlers serves the board endpoints.
type BoardHandlers struct {
	store       storage.Store
	authorizer  *auth.Authorizer
	provisioner *provision.Provisioner
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewBoardHandlers creates board handlers.
func NewBoardHandlers(
	store storage.Store,
	authorizer *auth.Authorizer,
	provisioner *provision.Provisioner,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *BoardHandlers {
	return &BoardHandlers{
		store:       store,
		authorizer:  authorizer,
		provisioner: provisioner,
		logger:      logger,
		metrics:     metrics,
	}
}

// RegisterRoutes registers board routes.
func (h *BoardHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/boards", h.listBoards).Methods("GET")
	router.HandleFunc("/boards", h.createBoard).Methods("POST")
}

type boardResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	TeamID int64  `json:"teamId"`
}

// listBoards returns the team's boards, lazily creating one for a
// boardless team when the caller is its admin. Responds 201 when this
// request created the board.
func (h *BoardHandlers) listBoards(w http.ResponseWriter, r *http.Request) {
	identity, _ := contextkeys.GetIdentity(r.Context())

	teamID, present, err := httputil.QueryInt64(r, "team_id")
	if err != nil || !present {
		httputil.WriteBlank(w, "team_id", "Team ID cannot be empty.")
		return
	}
	if _, err := h.store.TeamByID(r.Context(), teamID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteFieldError(w, kanban.NewFieldError(
				"team_id", "Team not found.", kanban.CodeNotFound,
			))
			return
		}
		h.logger.Error("load team failed", "team_id", teamID, "error", err)
		httputil.WriteInternalError(w)
		return
	}

	boards, created, err := h.provisioner.EnsureTeamBoards(r.Context(), identity, teamID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteFieldError(w, kanban.NewFieldError(
				"team_id", "Boards not found.", kanban.CodeNotFound,
			))
			return
		}
		h.logger.Error("list boards failed", "team_id", teamID, "error", err)
		httputil.WriteInternalError(w)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		if h.metrics != nil {
			h.metrics.BoardsProvisionedTotal.Inc()
		}
		h.logger.Info("board auto-created", "team_id", teamID, "by", identity.Username)
	}

	payload := make([]boardResponse, 0, len(boards))
	for _, board := range boards {
		payload = append(payload, boardResponse{
			ID:     board.ID,
			Name:   board.Name,
			TeamID: board.TeamID,
		})
	}
	httputil.WriteJSON(w, status, map[string]interface{}{"boards": payload})
}

type createBoardRequest struct {
	TeamID int64  `json:"team_id"`
	Name   string `json:"name"`
}

// createBoard creates a board, with its default columns, for the team.
// Admin only.
func (h *BoardHandlers) createBoard(w http.ResponseWriter, r *http.Request) {
	identity, _ := contextkeys.GetIdentity(r.Context())

	var req createBoardRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBlank(w, "team_id", "Team ID cannot be empty.")
		return
	}
	if req.TeamID == 0 {
		httputil.WriteBlank(w, "team_id", "Team ID cannot be empty.")
		return
	}
	if _, err := h.store.TeamByID(r.Context(), req.TeamID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteFieldError(w, kanban.NewFieldError(
				"team_id", "Team not found.", kanban.CodeNotFound,
			))
			return
		}
		h.logger.Error("load team failed", "team_id", req.TeamID, "error", err)
		httputil.WriteInternalError(w)
		return
	}

	if err := h.authorizer.Authorize(identity, auth.ActionCreateBoard, nil); err != nil {
		httputil.WriteFieldError(w, kanban.NewFieldError(
			"username",
			"Only the team admin can create a board.",
			kanban.CodeNotAuthorized,
		))
		return
	}
	if req.TeamID != identity.TeamID {
		httputil.WriteError(w, "team_id", auth.ErrNotAuthorized)
		return
	}

	name := req.Name
	if name == "" {
		name = provision.DefaultBoardName
	}
	board := &kanban.Board{Name: name, TeamID: req.TeamID}
	if err := h.store.CreateBoard(r.Context(), board, identity.Username); err != nil {
		h.logger.Error("create board failed", "team_id", req.TeamID, "error", err)
		httputil.WriteInternalError(w)
		return
	}
	h.logger.Info("board created", "board_id", board.ID, "by", identity.Username)

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"msg":      "Board creation successful.",
		"board_id": board.ID,
	})
}
