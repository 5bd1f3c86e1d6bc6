package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBusy                = errors.New("journal busy")
	ErrIO                  = errors.New("io error")
	ErrPayloadWrite        = errors.New("payload write failed")
	ErrMarkerWrite         = errors.New("marker write failed")
	ErrTransport           = errors.New("transport failed")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrEmptyBatch          = errors.New("empty batch")
	ErrDirectoryUnwritable = errors.New("directory unwritable")

	ErrDuplicate          = errors.New("duplicate job id")
	ErrInvalidJobID       = errors.New("invalid job id")
	ErrSubmissionInFlight = errors.New("submission in flight")
	ErrUnknownSite        = errors.New("unknown site")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker so callers can classify it with errors.Is. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// TransportError is returned when the transport collaborator rejects a file.
// Code, Message and Remedy are passed through exactly as the intake reported
// them.
type TransportError struct {
	Code    string
	Message string
	Remedy  string
	Path    string
	Err     error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(ErrTransport.Error())
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Code != "" {
		b.WriteString(": [")
		b.WriteString(e.Code)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	if e.Remedy != "" {
		b.WriteString(" (")
		b.WriteString(e.Remedy)
		b.WriteString(")")
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// AsTransportError converts any delivery failure into a TransportError,
// preserving an existing one untouched.
func AsTransportError(path string, err error) *TransportError {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.Path == "" {
			te.Path = path
		}
		return te
	}
	return &TransportError{Message: err.Error(), Path: path, Err: err}
}

// Kind returns a short classification of err suitable for structured logs and
// machine-readable CLI output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrPayloadWrite):
		return "payload_write_failed"
	case errors.Is(err, ErrMarkerWrite):
		return "marker_write_failed"
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrTransport):
		return "transport_failed"
	case errors.Is(err, ErrEmptyBatch):
		return "empty_batch"
	case errors.Is(err, ErrDirectoryUnwritable):
		return "directory_unwritable"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrInvalidJobID):
		return "invalid_job_id"
	case errors.Is(err, ErrSubmissionInFlight):
		return "submission_in_flight"
	case errors.Is(err, ErrUnknownSite):
		return "unknown_site"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "despatch failure"
	}
	return strings.Join(parts, ": ")
}
