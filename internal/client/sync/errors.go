package sync

import (
	"errors"
	"fmt"

	"github.com/iudanet/listsync/internal/models"
)

// ErrNotOwner - удаление списка, которым владеет другой пользователь.
// Такой список можно только покинуть.
var ErrNotOwner = errors.New("only the owner can delete the list")

// RemoteRejectedError возвращается пользовательской операции, когда сервер
// окончательно отклонил немедленную отправку. Изменение при этом уже
// сохранено локально и поставлено в очередь.
type RemoteRejectedError struct {
	Err       error
	ListID    string
	Operation models.OperationType
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("remote rejected %s for list %s: %v", e.Operation, e.ListID, e.Err)
}

func (e *RemoteRejectedError) Unwrap() error {
	return e.Err
}
