package errdefs

type ErrorType int

const (
	ErrTypeNotFound ErrorType = iota
	ErrTypeStorage
	ErrTypeExtraction
	ErrTypeValidation
	ErrTypeWatcherFailed
)

type CustomError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

func NewCustomError(errType ErrorType, message string, err error) error {
	return &CustomError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err is a CustomError of the given type.
func IsType(err error, errType ErrorType) bool {
	ce, ok := err.(*CustomError)
	return ok && ce.Type == errType
}

var (
	ErrNotFound      = &CustomError{Type: ErrTypeNotFound, Message: "not found"}
	ErrStorage       = &CustomError{Type: ErrTypeStorage, Message: "storage failure"}
	ErrExtraction    = &CustomError{Type: ErrTypeExtraction, Message: "extraction failed"}
	ErrValidation    = &CustomError{Type: ErrTypeValidation, Message: "invalid input"}
	ErrWatcherFailed = &CustomError{Type: ErrTypeWatcherFailed, Message: "watcher failed"}
)
