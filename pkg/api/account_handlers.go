package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/httputil"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// AccountHandlers serves registration and login. These endpoints
// authenticate by password rather than token; both mint the token the
// client uses from then on.
type AccountHandlers struct {
	store  storage.Store
	logger *slog.Logger
}

// NewAccountHandlers creates account handlers.
func NewAccountHandlers(store storage.Store, logger *slog.Logger) *AccountHandlers {
	return &AccountHandlers{store: store, logger: logger}
}

// RegisterRoutes registers account routes.
func (h *AccountHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.register).Methods("POST")
	router.HandleFunc("/login", h.login).Methods("POST")
}

type registerRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	InviteCode string `json:"invite_code"`
}

type accountResponse struct {
	Msg      string `json:"msg"`
	Username string `json:"username"`
	Token    string `json:"token"`
	TeamID   int64  `json:"teamId"`
	IsAdmin  bool   `json:"isAdmin"`
}

// register creates an account. With an invite code the user joins that
// team as a regular member; without one a fresh team is created and the
// user becomes its admin.
func (h *AccountHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBlank(w, "username", "Username cannot be empty.")
		return
	}
	if req.Username == "" {
		httputil.WriteBlank(w, "username", "Username cannot be empty.")
		return
	}
	if req.Password == "" {
		httputil.WriteBlank(w, "password", "Password cannot be empty.")
		return
	}

	var (
		team    *kanban.Team
		isAdmin bool
		err     error
	)
	if req.InviteCode != "" {
		team, err = h.store.TeamByInviteCode(r.Context(), req.InviteCode)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httputil.WriteFieldError(w, kanban.NewFieldError(
					"invite_code", "Team not found.", kanban.CodeNotFound,
				))
				return
			}
			h.logger.Error("load team by invite code failed", "error", err)
			httputil.WriteInternalError(w)
			return
		}
	} else {
		team = &kanban.Team{InviteCode: uuid.NewString()}
		if err := h.store.CreateTeam(r.Context(), team); err != nil {
			h.logger.Error("create team failed", "error", err)
			httputil.WriteInternalError(w)
			return
		}
		isAdmin = true
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password failed", "error", err)
		httputil.WriteInternalError(w)
		return
	}
	user := &kanban.User{
		Username:     req.Username,
		PasswordHash: passwordHash,
		TeamID:       team.ID,
		IsAdmin:      isAdmin,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrExists) {
			httputil.WriteFieldError(w, kanban.NewFieldError(
				"username", "Username is already taken.", kanban.CodeInvalid,
			))
			return
		}
		h.logger.Error("create user failed", "username", req.Username, "error", err)
		httputil.WriteInternalError(w)
		return
	}

	token, err := auth.GenerateToken(user.Username, user.PasswordHash)
	if err != nil {
		h.logger.Error("generate token failed", "username", req.Username, "error", err)
		httputil.WriteInternalError(w)
		return
	}
	h.logger.Info("user registered",
		"username", user.Username, "team_id", user.TeamID, "is_admin", user.IsAdmin)

	httputil.WriteJSON(w, http.StatusCreated, accountResponse{
		Msg:      "Registration successful.",
		Username: user.Username,
		Token:    token,
		TeamID:   user.TeamID,
		IsAdmin:  user.IsAdmin,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// login checks the password and returns a fresh token. Unknown usernames
// and wrong passwords get the same response.
func (h *AccountHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBlank(w, "username", "Username cannot be empty.")
		return
	}
	if req.Username == "" {
		httputil.WriteBlank(w, "username", "Username cannot be empty.")
		return
	}
	if req.Password == "" {
		httputil.WriteBlank(w, "password", "Password cannot be empty.")
		return
	}

	user, err := h.store.UserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteAuthFailure(w)
			return
		}
		h.logger.Error("load user failed", "username", req.Username, "error", err)
		httputil.WriteInternalError(w)
		return
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
		httputil.WriteAuthFailure(w)
		return
	}

	token, err := auth.GenerateToken(user.Username, user.PasswordHash)
	if err != nil {
		h.logger.Error("generate token failed", "username", req.Username, "error", err)
		httputil.WriteInternalError(w)
		return
	}
	h.logger.Info("user logged in", "username", user.Username)

	httputil.WriteJSON(w, http.StatusOK, accountResponse{
		Msg:      "Login successful.",
		Username: user.Username,
		Token:    token,
		TeamID:   user.TeamID,
		IsAdmin:  user.IsAdmin,
	})
}
