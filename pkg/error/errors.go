package error

import (
	"errors"
	"net/http"

	"github.com/fixora/servicebay/internal/domain"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

// WithMessage returns a copy of e carrying message
func (e *AppError) WithMessage(message string) *AppError {
	c := *e
	c.Message = message
	return &c
}

var (
	ErrBadRequest         = &AppError{Code: "BAD_REQUEST", Message: "Bad request", Status: http.StatusBadRequest}
	ErrNotFound           = &AppError{Code: "NOT_FOUND", Message: "Not found", Status: http.StatusNotFound}
	ErrNotFoundOrDeleted  = &AppError{Code: "NOT_FOUND_OR_DELETED", Message: "Record not found or deleted", Status: http.StatusNotFound}
	ErrAlreadyDeleted     = &AppError{Code: "ALREADY_DELETED", Message: "Record already deleted", Status: http.StatusConflict}
	ErrNotDeleted         = &AppError{Code: "NOT_DELETED", Message: "Record is not deleted", Status: http.StatusConflict}
	ErrUnprocessable      = &AppError{Code: "INVALID", Message: "Invalid input", Status: http.StatusUnprocessableEntity}
	ErrInternalServer     = &AppError{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred", Status: http.StatusInternalServerError}
	ErrTooManyRequests    = &AppError{Code: "RATE_LIMITED", Message: "Too many requests", Status: http.StatusTooManyRequests}
	ErrServiceUnavailable = &AppError{Code: "STORE_UNAVAILABLE", Message: "Record store unavailable", Status: http.StatusServiceUnavailable}
)

// kindErrors covers results that were built without an underlying error
var kindErrors = map[domain.ResultKind]error{
	domain.ResultNotFoundOrDeleted: domain.ErrNotFoundOrDeleted,
	domain.ResultNotFound:          domain.ErrRecordNotFound,
	domain.ResultAlreadyDeleted:    domain.ErrAlreadyDeleted,
	domain.ResultNotDeleted:        domain.ErrNotDeleted,
	domain.ResultInvalid:           ErrUnprocessable,
}

// FromResult maps a failed lifecycle result to an HTTP error carrying the
// result's message. Returns nil on success.
func FromResult(result domain.Result) *AppError {
	if result.Success {
		return nil
	}
	if result.Kind == domain.ResultTransportFailure {
		return ErrServiceUnavailable.WithMessage(result.Message)
	}

	err := result.Err
	if err == nil {
		err = kindErrors[result.Kind]
	}
	return MapError(err).WithMessage(result.Message)
}

func MapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var domainErr *domain.DomainError
	switch {
	case errors.Is(err, domain.ErrNotFoundOrDeleted):
		return ErrNotFoundOrDeleted.WithMessage(err.Error())
	case errors.Is(err, domain.ErrRecordNotFound):
		return ErrNotFound.WithMessage(err.Error())
	case errors.Is(err, domain.ErrAlreadyDeleted):
		return ErrAlreadyDeleted.WithMessage(err.Error())
	case errors.Is(err, domain.ErrNotDeleted):
		return ErrNotDeleted.WithMessage(err.Error())
	case errors.As(err, &domainErr):
		return ErrUnprocessable.WithMessage(err.Error())
	default:
		return ErrInternalServer
	}
}
