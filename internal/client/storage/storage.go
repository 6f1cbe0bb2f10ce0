package storage

//go:generate moq -out localstore_mock.go . LocalStore

// LocalStore объединяет три таблицы локального хранилища.
// Каждая операция атомарна для своего ключа; транзакций между таблицами нет.
type LocalStore interface {
	ListStorage
	MetadataStorage
	QueueStorage

	// Close closes the underlying database
	Close() error
}
