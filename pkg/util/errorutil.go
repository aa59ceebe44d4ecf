package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error types surfaced to API callers.
const (
	TypeValidation             = "VALIDATION_FAILED"
	TypeNotFound               = "NOT_FOUND"
	TypeUnauthorized           = "UNAUTHORIZED"
	TypeForbidden              = "FORBIDDEN"
	TypeConflict               = "CONFLICT"
	TypeInternal               = "INTERNAL_ERROR"
	TypeNoActiveOperation      = "NO_ACTIVE_OPERATION"
	TypeTreatmentInProgress    = "TREATMENT_IN_PROGRESS"
	TypeServicePointNotFound   = "SERVICE_POINT_NOT_FOUND"
	TypeSectorNotFound         = "SECTOR_NOT_FOUND"
	TypeNoPendingTicket        = "NO_PENDING_TICKET"
	TypeTreatmentNotInService  = "TREATMENT_NOT_IN_SERVICE"
	TypeOperationAlreadyActive = "OPERATION_ALREADY_ACTIVE"
	TypeOperationNotActive     = "OPERATION_NOT_ACTIVE"
	TypeServicePointOccupied   = "SERVICE_POINT_OCCUPIED"
	TypeTicketNotPending       = "TICKET_NOT_PENDING"
	TypeResolutionExists       = "RESOLUTION_EXISTS"
)

// DomainError standardizes application errors.
type DomainError struct {
	Type       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(errType, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Type: errType, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(TypeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Type:       TypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(TypeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(TypeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(TypeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Type:       TypeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Queue workflow errors. Messages are shown to the attendant as-is.

func NewNoActiveOperation() error {
	return NewDomainError(TypeNoActiveOperation, "no active operation for this user", http.StatusConflict, nil)
}

func NewTreatmentInProgress(details map[string]any) error {
	return NewDomainError(TypeTreatmentInProgress, "a treatment is already in progress for this operation", http.StatusConflict, details)
}

func NewServicePointNotFound(details map[string]any) error {
	return NewDomainError(TypeServicePointNotFound, "service point not found", http.StatusNotFound, details)
}

func NewSectorNotFound(details map[string]any) error {
	return NewDomainError(TypeSectorNotFound, "sector not found", http.StatusNotFound, details)
}

func NewNoPendingTicket(details map[string]any) error {
	return NewDomainError(TypeNoPendingTicket, "no pending ticket for this sector", http.StatusNotFound, details)
}

func NewTreatmentNotInService(details map[string]any) error {
	return NewDomainError(TypeTreatmentNotInService, "treatment is not in service", http.StatusConflict, details)
}

func NewOperationAlreadyActive(details map[string]any) error {
	return NewDomainError(TypeOperationAlreadyActive, "user already has an active operation", http.StatusConflict, details)
}

func NewOperationNotActive(details map[string]any) error {
	return NewDomainError(TypeOperationNotActive, "operation is not active", http.StatusConflict, details)
}

func NewServicePointOccupied(details map[string]any) error {
	return NewDomainError(TypeServicePointOccupied, "service point is already operating", http.StatusConflict, details)
}

func NewTicketNotPending(details map[string]any) error {
	return NewDomainError(TypeTicketNotPending, "ticket is not pending", http.StatusConflict, details)
}

func NewResolutionExists(details map[string]any) error {
	return NewDomainError(TypeResolutionExists, "treatment already has a resolution", http.StatusConflict, details)
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &DomainError{
			Type:       TypeNotFound,
			Message:    "resource not found",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{},
		}
	}
	return &DomainError{
		Type:       TypeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsType reports whether err is a DomainError of the given type.
func IsType(err error, errType string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == errType
}

// FromStatus builds a DomainError for a bare HTTP status, e.g. one raised by the router.
func FromStatus(status int, message string) *DomainError {
	return &DomainError{Type: typeForStatus(status), Message: message, HTTPStatus: status}
}

func typeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return TypeValidation
	case http.StatusUnauthorized:
		return TypeUnauthorized
	case http.StatusForbidden:
		return TypeForbidden
	case http.StatusNotFound:
		return TypeNotFound
	case http.StatusConflict:
		return TypeConflict
	default:
		if status >= 500 {
			return TypeInternal
		}
		return TypeValidation
	}
}
