package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/iudanet/listsync/internal/server/storage"
	"github.com/iudanet/listsync/internal/validation"
	"github.com/iudanet/listsync/pkg/api"
)

// ListsHandler обрабатывает запросы к метаданным списков
type ListsHandler struct {
	logger   *slog.Logger
	storage  storage.ListStorage
	notifier Notifier
}

// NewListsHandler создает новый lists handler
func NewListsHandler(logger *slog.Logger, storage storage.ListStorage, notifier Notifier) *ListsHandler {
	return &ListsHandler{
		logger:   logger,
		storage:  storage,
		notifier: notifier,
	}
}

// GetLists обрабатывает GET /api/v1/lists
func (h *ListsHandler) GetLists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		sendError(w, h.logger, "missing user", http.StatusUnauthorized)
		return
	}

	lists, err := h.storage.GetUserLists(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get user lists", slog.String("user_id", userID), slog.Any("error", err))
		sendError(w, h.logger, "failed to get lists", http.StatusInternalServerError)
		return
	}

	sendJSON(w, h.logger, api.ListsResponse{Lists: lists}, http.StatusOK)
}

// CreateList обрабатывает POST /api/v1/lists.
// Повторное создание отвечает 200 с сохраненными метаданными; список с
// известным ID, созданный другим пользователем, становится общим.
func (h *ListsHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		sendError(w, h.logger, "missing user", http.StatusUnauthorized)
		return
	}

	var meta api.ListMeta
	if err := decodeJSON(w, r, &meta); err != nil {
		h.logger.WarnContext(ctx, "failed to decode list", slog.Any("error", err))
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := uuid.Parse(meta.ID); err != nil {
		sendError(w, h.logger, "list id must be a UUID", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateTitle(meta.Title); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}
	if meta.Description != nil {
		if err := validation.ValidateDescription(*meta.Description); err != nil {
			sendError(w, h.logger, err.Error(), http.StatusBadRequest)
			return
		}
	}

	// Владелец - тот, кто создает, а не то, что прислал клиент
	meta.OwnerID = userID

	stored, created, err := h.storage.CreateList(ctx, meta)
	if err != nil {
		if errors.Is(err, storage.ErrListDeleted) {
			sendError(w, h.logger, "list was deleted", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create list", slog.String("list_id", meta.ID), slog.Any("error", err))
		sendError(w, h.logger, "failed to create list", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.logger.InfoContext(ctx, "list created", slog.String("list_id", stored.ID), slog.String("owner_id", userID))
	}

	h.notifier.Notify([]string{userID}, api.Notification{
		Type:   api.NotificationListCreated,
		ListID: stored.ID,
		List:   stored,
	})

	sendJSON(w, h.logger, stored, status)
}

// DeleteList обрабатывает DELETE /api/v1/lists/{id}
func (h *ListsHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		sendError(w, h.logger, "missing user", http.StatusUnauthorized)
		return
	}
	listID := r.PathValue("id")

	participants, err := h.storage.DeleteList(ctx, listID, userID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrListNotFound):
			sendError(w, h.logger, "list not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrNotOwner):
			sendError(w, h.logger, "only the owner can delete a list", http.StatusForbidden)
		default:
			h.logger.ErrorContext(ctx, "failed to delete list", slog.String("list_id", listID), slog.Any("error", err))
			sendError(w, h.logger, "failed to delete list", http.StatusInternalServerError)
		}
		return
	}

	h.logger.InfoContext(ctx, "list deleted",
		slog.String("list_id", listID),
		slog.Int("participants", len(participants)))

	h.notifier.Notify(participants, api.Notification{
		Type:   api.NotificationListDeleted,
		ListID: listID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// LeaveList обрабатывает DELETE /api/v1/lists/{id}/participants/me
func (h *ListsHandler) LeaveList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("User ID not found in context")
		sendError(w, h.logger, "missing user", http.StatusUnauthorized)
		return
	}
	listID := r.PathValue("id")

	if err := h.storage.RemoveParticipant(ctx, listID, userID); err != nil {
		if errors.Is(err, storage.ErrListNotFound) || errors.Is(err, storage.ErrNotParticipant) {
			sendError(w, h.logger, "list not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to leave list", slog.String("list_id", listID), slog.Any("error", err))
		sendError(w, h.logger, "failed to leave list", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "participant left list", slog.String("list_id", listID), slog.String("user_id", userID))

	// Другие устройства того же пользователя тоже убирают список
	h.notifier.Notify([]string{userID}, api.Notification{
		Type:   api.NotificationListDeleted,
		ListID: listID,
	})

	w.WriteHeader(http.StatusNoContent)
}
