package sync

import "fmt"

// PersistenceError сообщает об отказе внешнего хранилища.
// Восстановление — полная перезагрузка доски, а не точечный откат:
// часть записей серии могла уже примениться.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
