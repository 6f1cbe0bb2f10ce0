// Package storage описывает хранилище сервера списков.
package storage

import "context"

// Storage объединяет все хранилища сервера
type Storage interface {
	ListStorage
	DeltaStorage

	// Ping проверяет доступность базы данных
	Ping(ctx context.Context) error
	Close() error
}
