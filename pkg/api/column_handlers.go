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

// ColumnHandlers serves the column endpoints.
type ColumnHandlers struct {
	store       storage.Store
	authorizer  *auth.Authorizer
	provisioner *provision.Provisioner
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewColumnHandlers creates column handlers.
func NewColumnHandlers(
	store storage.Store,
	authorizer *auth.Authorizer,
	provisioner *provision.Provisioner,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *ColumnHandlers {
	return &ColumnHandlers{
		store:       store,
		authorizer:  authorizer,
		provisioner: provisioner,
		logger:      logger,
		metrics:     metrics,
	}
}

// RegisterRoutes registers column routes.
func (h *ColumnHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/columns", h.listColumns).Methods("GET")
	router.HandleFunc("/columns", h.patchColumn).Methods("PATCH")
}

type columnResponse struct {
	ID    int64 `json:"id"`
	Order int   `json:"order"`
}

// listColumns returns the board's columns, creating the default set of
// four on first access.
func (h *ColumnHandlers) listColumns(w http.ResponseWriter, r *http.Request) {
	identity, _ := contextkeys.GetIdentity(r.Context())

	boardID, present, err := httputil.QueryInt64(r, "board_id")
	if err != nil || !present {
		httputil.WriteBlank(w, "board_id", "Board ID cannot be empty.")
		return
	}
	if _, err := h.resolveBoard(w, r, identity, auth.ActionAccessBoard, boardID, "board_id"); err != nil {
		return
	}

	columns, created, err := h.provisioner.EnsureColumns(r.Context(), boardID)
	if err != nil {
		h.logger.Error("list columns failed", "board_id", boardID, "error", err)
		httputil.WriteInternalError(w)
		return
	}
	if created {
		if h.metrics != nil {
			h.metrics.ColumnsProvisionedTotal.Inc()
		}
		h.logger.Info("columns auto-created", "board_id", boardID)
	}

	payload := make([]columnResponse, 0, len(columns))
	for _, column := range columns {
		payload = append(payload, columnResponse{ID: column.ID, Order: column.Order})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"columns": payload})
}

// taskPatchRequest is the wire form of a partial task update. Pointer
// fields distinguish "absent" from zero values; ID is mandatory.
type taskPatchRequest struct {
	ID          *int64  `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
	User        *string `json:"user"`
}

// patchColumn bulk-updates tasks and moves them into the column. The
// batch is all-or-nothing: a bad element fails the whole request with no
// tasks persisted.
func (h *ColumnHandlers) patchColumn(w http.ResponseWriter, r *http.Request) {
	identity, _ := contextkeys.GetIdentity(r.Context())

	columnID, present, err := httputil.QueryInt64(r, "id")
	if err != nil || !present {
		httputil.WriteBlank(w, "id", "Column ID cannot be empty.")
		return
	}

	column, err := h.store.ColumnByID(r.Context(), columnID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteFieldError(w, kanban.NewFieldError(
				"id", "Column not found.", kanban.CodeNotFound,
			))
			return
		}
		h.logger.Error("load column failed", "column_id", columnID, "error", err)
		httputil.WriteInternalError(w)
		return
	}
	if _, err := h.resolveBoard(w, r, identity, auth.ActionMutateColumns, column.BoardID, "auth"); err != nil {
		return
	}

	var reqs []taskPatchRequest
	if err := httputil.ParseJSON(r, &reqs); err != nil {
		httputil.WriteBlank(w, "task.id", "Task ID cannot be empty.")
		return
	}
	patches := make([]kanban.TaskPatch, 0, len(reqs))
	for _, req := range reqs {
		if req.ID == nil {
			httputil.WriteBlank(w, "task.id", "Task ID cannot be empty.")
			return
		}
		patches = append(patches, kanban.TaskPatch{
			ID:          *req.ID,
			Title:       req.Title,
			Description: req.Description,
			Order:       req.Order,
			Assignee:    req.User,
		})
	}

	if err := h.store.UpdateColumnTasks(r.Context(), columnID, patches); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteFieldError(w, kanban.NewFieldError(
				"task", "Task not found.", kanban.CodeNotFound,
			))
			return
		}
		h.logger.Error("update column tasks failed", "column_id", columnID, "error", err)
		httputil.WriteInternalError(w)
		return
	}
	h.logger.Info("column tasks updated",
		"column_id", columnID, "tasks", len(patches), "by", identity.Username)

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"msg": "Column and all its tasks updated successfully.",
		"id":  columnID,
	})
}

// resolveBoard loads the board and applies the action's authorization
// rules, writing the failure response itself. The returned error only
// signals "already handled".
func (h *ColumnHandlers) resolveBoard(
	w http.ResponseWriter,
	r *http.Request,
	identity auth.Identity,
	action auth.Action,
	boardID int64,
	field string,
) (*kanban.Board, error) {
	board, err := h.authorizer.AuthorizeBoardID(r.Context(), identity, action, boardID)
	if err == nil {
		return board, nil
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httputil.WriteFieldError(w, kanban.NewFieldError(
			field, "Board not found.", kanban.CodeNotFound,
		))
	case errors.Is(err, auth.ErrNotAuthorized):
		httputil.WriteError(w, field, err)
	default:
		h.logger.Error("authorize board failed", "board_id", boardID, "error", err)
		httputil.WriteInternalError(w)
	}
	return nil, err
}
