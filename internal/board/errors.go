package board

import "fmt"

// ValidationError сообщает о нарушении инварианта состояния доски.
// Операция, вызвавшая нарушение, отклоняется целиком.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("board validation failed: %s: %s", e.Field, e.Reason)
}

func validationErr(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
