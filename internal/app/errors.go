package app

import (
	"errors"
	"fmt"
	"net/http"

	"folio/api/internal/store"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("not found")
	ErrIllegalMove      = errors.New("illegal move")
	ErrBatchTooLarge    = errors.New("batch too large")
	ErrTransientStore   = errors.New("store unavailable")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrLastWorkspace    = errors.New("last active workspace")
	ErrOwnerCannotLeave = errors.New("owner cannot leave workspace")
	ErrVersionConflict  = errors.New("version conflict")
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

var errorCodes = map[error]struct {
	status int
	code   string
}{
	ErrNotAuthenticated: {http.StatusUnauthorized, "NOT_AUTHENTICATED"},
	ErrNotFound:         {http.StatusNotFound, "NOT_FOUND"},
	ErrIllegalMove:      {http.StatusConflict, "ILLEGAL_MOVE"},
	ErrBatchTooLarge:    {http.StatusInternalServerError, "BATCH_TOO_LARGE"},
	ErrTransientStore:   {http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
	ErrInvalidArgument:  {http.StatusBadRequest, "INVALID_ARGUMENT"},
	ErrLastWorkspace:    {http.StatusConflict, "LAST_WORKSPACE"},
	ErrOwnerCannotLeave: {http.StatusConflict, "OWNER_CANNOT_LEAVE"},
	ErrVersionConflict:  {http.StatusConflict, "VERSION_CONFLICT"},
}

func domainError(kind error, message string, details any) *DomainError {
	meta, ok := errorCodes[kind]
	if !ok {
		meta.status, meta.code = http.StatusInternalServerError, "INTERNAL"
	}
	return &DomainError{
		Status:  meta.status,
		Code:    meta.code,
		Message: message,
		Details: details,
		Err:     kind,
	}
}

// storeError translates a store failure into the engine's error taxonomy.
func storeError(action string, err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainError(ErrNotFound, action+": record not found", nil)
	case errors.Is(err, store.ErrBatchTooLarge):
		return domainError(ErrBatchTooLarge, action+": "+err.Error(), nil)
	case errors.Is(err, store.ErrVersionConflict):
		return domainError(ErrVersionConflict, action+": record changed since it was read", nil)
	}
	return &DomainError{
		Status:  http.StatusServiceUnavailable,
		Code:    "STORE_UNAVAILABLE",
		Message: action + ": " + err.Error(),
		Err:     fmt.Errorf("%w: %w", ErrTransientStore, err),
	}
}
