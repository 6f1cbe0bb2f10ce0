package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/iudanet/listsync/internal/server/storage"
	"github.com/iudanet/listsync/pkg/api"
)

// DeltasHandler обрабатывает отправку и получение дельт документов
type DeltasHandler struct {
	logger   *slog.Logger
	lists    storage.ListStorage
	deltas   storage.DeltaStorage
	notifier Notifier

	// вставка и рассылка под одним замком: подписчики видят уведомления
	// в порядке timestamp
	publishMu sync.Mutex
}

// NewDeltasHandler создает новый deltas handler
func NewDeltasHandler(logger *slog.Logger, lists storage.ListStorage, deltas storage.DeltaStorage, notifier Notifier) *DeltasHandler {
	return &DeltasHandler{
		logger:   logger,
		lists:    lists,
		deltas:   deltas,
		notifier: notifier,
	}
}

// PushDelta обрабатывает POST /api/v1/lists/{id}/deltas
func (h *DeltasHandler) PushDelta(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		sendError(w, h.logger, "missing user", http.StatusUnauthorized)
		return
	}
	listID := r.PathValue("id")

	var delta api.Delta
	if err := decodeJSON(w, r, &delta); err != nil {
		h.logger.WarnContext(ctx, "failed to decode delta", slog.Any("error", err))
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	if delta.ListID == "" {
		delta.ListID = listID
	}
	switch {
	case delta.ListID != listID:
		sendError(w, h.logger, "delta belongs to another list", http.StatusBadRequest)
		return
	case delta.ID == "" || delta.ClientID == "":
		sendError(w, h.logger, "delta id and client id are required", http.StatusBadRequest)
		return
	case len(delta.Data) == 0:
		sendError(w, h.logger, "delta data is empty", http.StatusBadRequest)
		return
	}

	if !h.checkAccess(w, r, listID, userID) {
		return
	}

	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	stored, duplicate, err := h.deltas.InsertDelta(ctx, delta)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrListNotFound):
			sendError(w, h.logger, "list not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrDeltaConflict):
			sendError(w, h.logger, "delta id is already used", http.StatusBadRequest)
		default:
			h.logger.ErrorContext(ctx, "failed to insert delta",
				slog.String("list_id", listID),
				slog.String("delta_id", delta.ID),
				slog.Any("error", err))
			sendError(w, h.logger, "failed to store delta", http.StatusInternalServerError)
		}
		return
	}

	resp := api.PushDeltaResponse{Timestamp: stored.Timestamp, Duplicate: duplicate}
	if duplicate {
		h.logger.DebugContext(ctx, "duplicate delta ignored", slog.String("delta_id", stored.ID))
		sendJSON(w, h.logger, resp, http.StatusOK)
		return
	}

	participants, err := h.lists.GetParticipants(ctx, listID)
	if err != nil {
		// дельта уже сохранена: подписчики догонят ее через pull
		h.logger.ErrorContext(ctx, "failed to get participants", slog.String("list_id", listID), slog.Any("error", err))
	} else {
		h.notifier.Notify(participants, api.Notification{
			Type:   api.NotificationDeltaInserted,
			ListID: listID,
			Delta:  stored,
		})
	}

	sendJSON(w, h.logger, resp, http.StatusCreated)
}

// GetDeltas обрабатывает GET /api/v1/lists/{id}/deltas?since=&exclude_client=
func (h *DeltasHandler) GetDeltas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		sendError(w, h.logger, "missing user", http.StatusUnauthorized)
		return
	}
	listID := r.PathValue("id")

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		var err error
		since, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || since < 0 {
			sendError(w, h.logger, "invalid since parameter", http.StatusBadRequest)
			return
		}
	}
	excludeClient := r.URL.Query().Get("exclude_client")

	if !h.checkAccess(w, r, listID, userID) {
		return
	}

	deltas, err := h.deltas.GetDeltasSince(ctx, listID, since, excludeClient)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get deltas", slog.String("list_id", listID), slog.Any("error", err))
		sendError(w, h.logger, "failed to get deltas", http.StatusInternalServerError)
		return
	}

	h.logger.DebugContext(ctx, "deltas sent",
		slog.String("list_id", listID),
		slog.Int64("since", since),
		slog.Int("count", len(deltas)))

	sendJSON(w, h.logger, api.DeltasResponse{Deltas: deltas}, http.StatusOK)
}

func (h *DeltasHandler) checkAccess(w http.ResponseWriter, r *http.Request, listID, userID string) bool {
	err := h.lists.CheckAccess(r.Context(), listID, userID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, storage.ErrListNotFound):
		sendError(w, h.logger, "list not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrNotParticipant):
		sendError(w, h.logger, "not a list participant", http.StatusForbidden)
	default:
		h.logger.ErrorContext(r.Context(), "failed to check list access", slog.String("list_id", listID), slog.Any("error", err))
		sendError(w, h.logger, "failed to check access", http.StatusInternalServerError)
	}
	return false
}
