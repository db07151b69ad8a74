package realtime

import "fmt"

// TransportError сообщает о сбое подписки на канал изменений.
// Политика переподключения остается за вызывающей стороной.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("change feed %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
