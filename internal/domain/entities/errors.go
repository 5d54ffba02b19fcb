package entities

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrNoSession            = errors.New("no authenticated session")
	ErrMalformedResponse    = errors.New("malformed backend response")
	ErrEmptyResponse        = errors.New("no response generated by the assistant")
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrUnsupported          = errors.New("operation not supported by backend")
	ErrPollTimeout          = errors.New("backend job did not finish in time")
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrMissingAPIToken      = errors.New("API token required")
	ErrUploadRejected       = errors.New("upload rejected by backend")
)

// BackendError reports a non-success HTTP status from a backend collaborator.
type BackendError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
