package response

import (
	"encoding/json"
	"net/http"

	apperror "github.com/fixora/servicebay/pkg/error"
)

type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, envelope Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope)
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, Envelope{Status: true, Message: message, Data: data})
}

func Error(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, Envelope{Status: false, Message: message, Code: code})
}

// AppError writes err with its own status and code
func AppError(w http.ResponseWriter, err *apperror.AppError) {
	Error(w, err.Status, err.Code, err.Message)
}

func BadRequest(w http.ResponseWriter, message string) {
	AppError(w, apperror.ErrBadRequest.WithMessage(message))
}

func NotFound(w http.ResponseWriter, message string) {
	AppError(w, apperror.ErrNotFound.WithMessage(message))
}

func TooManyRequests(w http.ResponseWriter, message string) {
	AppError(w, apperror.ErrTooManyRequests.WithMessage(message))
}

func InternalServerError(w http.ResponseWriter, message string) {
	AppError(w, apperror.ErrInternalServer.WithMessage(message))
}
