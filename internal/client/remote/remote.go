// Package remote описывает контракт удаленного хранилища списков.
package remote

import (
	"context"
	"errors"

	"github.com/iudanet/listsync/pkg/api"
)

//go:generate moq -out store_mock.go . Store

// Store - удаленное хранилище. Все операции идемпотентны: повторная отправка
// дельты с тем же ID или повторное создание списка не портят состояние.
type Store interface {
	// CreateList создает список; существующий список с тем же ID не ошибка
	CreateList(ctx context.Context, meta api.ListMeta) (*api.ListMeta, error)

	// DeleteList помечает список удаленным для всех участников
	DeleteList(ctx context.Context, listID string) error

	// RemoveSelfAsParticipant убирает текущего пользователя из участников
	RemoveSelfAsParticipant(ctx context.Context, listID string) error

	// GetUserLists возвращает списки пользователя без содержимого
	GetUserLists(ctx context.Context) ([]api.ListMeta, error)

	// PushDelta сохраняет дельту
	PushDelta(ctx context.Context, listID string, delta api.Delta) error

	// PullDeltas возвращает дельты с timestamp > since по возрастанию timestamp,
	// исключая дельты клиента excludeClientID (если он не пуст)
	PullDeltas(ctx context.Context, listID string, since int64, excludeClientID string) ([]api.Delta, error)
}

//go:generate moq -out subscriber_mock.go . Subscriber

// Subscriber - push-канал уведомлений.
type Subscriber interface {
	// Subscribe подключается к каналу и блокируется до его разрыва.
	// onReady вызывается, когда канал установлен, onNotification - на каждое
	// уведомление. Возвращает ошибку разрыва или ctx.Err().
	Subscribe(ctx context.Context, onReady func(), onNotification func(api.Notification)) error
}

// Постоянные ошибки: повтор не поможет
var (
	ErrNotFound     = errors.New("remote: not found")
	ErrForbidden    = errors.New("remote: forbidden")
	ErrUnauthorized = errors.New("remote: unauthorized")
	ErrBadRequest   = errors.New("remote: bad request")
)

// IsPermanent сообщает, является ли ошибка отказом сервера, а не сбоем сети.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrBadRequest)
}
