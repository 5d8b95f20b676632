package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/contextkeys"
	"github.com/alcadeta/portfolio-goteam/pkg/httputil"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// UserHandlers serves the team roster endpoints.
type UserHandlers struct {
	store      storage.Store
	authorizer *auth.Authorizer
	logger     *slog.Logger
}

// NewUserHandlers creates user handlers.
func NewUserHandlers(store storage.Store, authorizer *auth.Authorizer, logger *slog.Logger) *UserHandlers {
	return &UserHandlers{store: store, authorizer: authorizer, logger: logger}
}

// RegisterRoutes registers user routes.
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users", h.listUsers).Methods("GET")
	router.HandleFunc("/users", h.setMembership).Methods("POST")
}

type userResponse struct {
	Username string `json:"username"`
	IsActive bool   `json:"isActive"`
}

// listUsers returns the team's users, each flagged with membership of the
// given board.
func (h *UserHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	identity, _ := contextkeys.GetIdentity(r.Context())

	teamID, present, err := httputil.QueryInt64(r, "team_id")
	if err != nil || !present {
		httputil.WriteBlank(w, "team_id", "Team ID cannot be empty.")
		return
	}
	boardID, present, err := httputil.QueryInt64(r, "board_id")
	if err != nil || !present {
		httputil.WriteBlank(w, "board_id", "Board ID cannot be empty.")
		return
	}
	board, ok := h.loadBoard(w, r, boardID)
	if !ok {
		return
	}
	if err := h.authorizer.Authorize(identity, auth.ActionAccessBoard, board); err != nil {
		httputil.WriteError(w, "board_id", err)
		return
	}

	users, err := h.store.TeamMembers(r.Context(), teamID)
	if err != nil {
		h.logger.Error("list team members failed", "team_id", teamID, "error", err)
		httputil.WriteInternalError(w)
		return
	}
	memberUsernames, err := h.store.BoardMemberUsernames(r.Context(), boardID)
	if err != nil {
		h.logger.Error("list board members failed", "board_id", boardID, "error", err)
		httputil.WriteInternalError(w)
		return
	}
	active := make(map[string]bool, len(memberUsernames))
	for _, username := range memberUsernames {
		active[username] = true
	}

	payload := make([]userResponse, 0, len(users))
	for _, user := range users {
		payload = append(payload, userResponse{
			Username: user.Username,
			IsActive: active[user.Username],
		})
	}
	httputil.WriteJSON(w, http.StatusOK, payload)
}

type membershipRequest struct {
	Username string `json:"username"`
	BoardID  int64  `json:"board_id"`

	// Literal "True" or "False". The client sends these as strings.
	IsActive string `json:"is_active"`
}

// setMembership adds a user to a board or removes them from it.
func (h *UserHandlers) setMembership(w http.ResponseWriter, r *http.Request) {
	identity, _ := contextkeys.GetIdentity(r.Context())

	var req membershipRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBlank(w, "username", "Username cannot be empty.")
		return
	}
	if req.Username == "" {
		httputil.WriteBlank(w, "username", "Username cannot be empty.")
		return
	}

	user, err := h.store.UserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteFieldError(w, kanban.NewFieldError(
				"username", "User not found.", kanban.CodeNotFound,
			))
			return
		}
		h.logger.Error("load user failed", "username", req.Username, "error", err)
		httputil.WriteInternalError(w)
		return
	}

	board, ok := h.loadBoard(w, r, req.BoardID)
	if !ok {
		return
	}
	// The target must be on the caller's team, and so must the board.
	if err := h.authorizer.Authorize(identity, auth.ActionAccessBoard, board); err != nil {
		httputil.WriteError(w, "board_id", err)
		return
	}
	if user.TeamID != board.TeamID {
		httputil.WriteError(w, "username", auth.ErrNotAuthorized)
		return
	}

	activate := req.IsActive == "True"
	if err := h.store.SetBoardMembership(r.Context(), board.ID, user.Username, activate); err != nil {
		h.logger.Error("set board membership failed",
			"board_id", board.ID, "username", user.Username, "error", err)
		httputil.WriteInternalError(w)
		return
	}

	verb := "removed from"
	if activate {
		verb = "added to"
	}
	h.logger.Info("board membership changed",
		"board_id", board.ID, "username", user.Username, "active", activate,
		"by", identity.Username)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"msg": fmt.Sprintf("%s is %s %s.", user.Username, verb, board.Name),
	})
}

// loadBoard fetches the board, writing the failure response on error.
func (h *UserHandlers) loadBoard(w http.ResponseWriter, r *http.Request, boardID int64) (*kanban.Board, bool) {
	board, err := h.store.BoardByID(r.Context(), boardID)
	if err == nil {
		return board, true
	}
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteFieldError(w, kanban.NewFieldError(
			"board_id", "Board not found.", kanban.CodeNotFound,
		))
	} else {
		h.logger.Error("load board failed", "board_id", boardID, "error", err)
		httputil.WriteInternalError(w)
	}
	return nil, false
}
