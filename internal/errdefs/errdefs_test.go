package errdefs

import (
	"errors"
	"testing"
)

func TestCustomError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *CustomError
		expected string
	}{
		{
			name:     "error without wrapped error",
			err:      &CustomError{Type: ErrTypeNotFound, Message: "test message"},
			expected: "test message",
		},
		{
			name:     "error with wrapped error",
			err:      &CustomError{Type: ErrTypeNotFound, Message: "test message", Err: errors.New("wrapped")},
			expected: "test message: wrapped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCustomError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	err := &CustomError{
		Type:    ErrTypeNotFound,
		Message: "test",
		Err:     wrappedErr,
	}

	if unwrapped := err.Unwrap(); unwrapped != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, wrappedErr)
	}
}

func TestNewCustomError(t *testing.T) {
	wrappedErr := errors.New("wrapped")
	err := NewCustomError(ErrTypeStorage, "test message", wrappedErr)

	customErr, ok := err.(*CustomError)
	if !ok {
		t.Fatal("expected *CustomError")
	}

	if customErr.Type != ErrTypeStorage {
		t.Errorf("Type = %v, want %v", customErr.Type, ErrTypeStorage)
	}

	if customErr.Message != "test message" {
		t.Errorf("Message = %v, want %v", customErr.Message, "test message")
	}

	if customErr.Err != wrappedErr {
		t.Errorf("Err = %v, want %v", customErr.Err, wrappedErr)
	}
}

func TestIsType(t *testing.T) {
	err := NewCustomError(ErrTypeExtraction, "bad pdf", nil)

	if !IsType(err, ErrTypeExtraction) {
		t.Error("IsType() = false, want true")
	}
	if IsType(err, ErrTypeStorage) {
		t.Error("IsType() matched wrong type")
	}
	if IsType(errors.New("plain"), ErrTypeStorage) {
		t.Error("IsType() matched non-custom error")
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType ErrorType
		message string
	}{
		{"ErrNotFound", ErrNotFound, ErrTypeNotFound, "not found"},
		{"ErrStorage", ErrStorage, ErrTypeStorage, "storage failure"},
		{"ErrExtraction", ErrExtraction, ErrTypeExtraction, "extraction failed"},
		{"ErrValidation", ErrValidation, ErrTypeValidation, "invalid input"},
		{"ErrWatcherFailed", ErrWatcherFailed, ErrTypeWatcherFailed, "watcher failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customErr, ok := tt.err.(*CustomError)
			if !ok {
				t.Fatal("expected *CustomError")
			}

			if customErr.Type != tt.errType {
				t.Errorf("Type = %v, want %v", customErr.Type, tt.errType)
			}

			if customErr.Message != tt.message {
				t.Errorf("Message = %v, want %v", customErr.Message, tt.message)
			}
		})
	}
}
