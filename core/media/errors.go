package media

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of conversion failure categories. Handlers map
// kinds to user-facing text; raw ffmpeg stderr is logged, never shown.
type ErrorKind string

const (
	// ErrMissingEncoder means ffmpeg is not installed and could not be provisioned.
	ErrMissingEncoder ErrorKind = "missing_encoder"
	// ErrInvalidInput means the source file does not carry the expected extension.
	ErrInvalidInput ErrorKind = "invalid_input"
	// ErrNoAudioStream means the source has no audio track to extract.
	ErrNoAudioStream ErrorKind = "no_audio_stream"
	// ErrEncodingFailed is the generic encoder failure.
	ErrEncodingFailed ErrorKind = "encoding_failed"
	// ErrEmptyOutput means the encoder exited cleanly but produced no usable file.
	ErrEmptyOutput ErrorKind = "empty_output"
	// ErrUnexpected wraps any fault outside the categories above.
	ErrUnexpected ErrorKind = "unexpected"
)

// ConversionError carries a failure kind, a message safe to show to the user,
// and an optional wrapped cause kept for logs only.
type ConversionError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *ConversionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ConversionError) Unwrap() error {
	return e.cause
}

// UserMessage returns the text shown in the browser form's status box.
func (e *ConversionError) UserMessage() string {
	return e.Message
}

func newError(kind ErrorKind, message string, cause error) *ConversionError {
	return &ConversionError{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the ErrorKind from err, or ErrUnexpected for foreign errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrUnexpected
}
