package metastore

import "fmt"

// ServiceError is the generic message-bearing failure channel of the
// metastore, used when a server-side failure cannot be expressed as a typed
// status (most commonly a datastore failure whose cause survives only as
// text). Retry classification pattern-matches on Message; see retry.Classifier.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return "metastore: " + e.Message
}

// ServiceErrorf builds a ServiceError with a formatted message.
func ServiceErrorf(format string, args ...any) *ServiceError {
	return &ServiceError{Message: fmt.Sprintf(format, args...)}
}
