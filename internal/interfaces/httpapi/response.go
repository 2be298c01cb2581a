package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/matchday/internal/platform/logging"
	"github.com/riskibarqy/matchday/internal/usecase"
)

// Responses follow the Google JSON style guide: a top-level apiVersion
// plus exactly one of data or error.
const (
	apiVersion  = "2.0"
	errorDomain = "matchday"
)

type envelope struct {
	APIVersion string     `json:"apiVersion"`
	Data       any        `json:"data,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Errors  []errorItem `json:"errors,omitempty"`
}

type errorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type errorClass struct {
	httpStatus int
	reason     string
	status     string
}

var errorClasses = []struct {
	sentinel error
	class    errorClass
}{
	{usecase.ErrInvalidInput, errorClass{http.StatusBadRequest, "invalidInput", "INVALID_ARGUMENT"}},
	{usecase.ErrNotFound, errorClass{http.StatusNotFound, "notFound", "NOT_FOUND"}},
	{usecase.ErrUnauthorized, errorClass{http.StatusUnauthorized, "unauthorized", "UNAUTHENTICATED"}},
	{usecase.ErrDependencyUnavailable, errorClass{http.StatusServiceUnavailable, "dependencyUnavailable", "UNAVAILABLE"}},
}

var internalErrorClass = errorClass{http.StatusInternalServerError, "internalError", "INTERNAL"}

func classify(err error) errorClass {
	for _, entry := range errorClasses {
		if errors.Is(err, entry.sentinel) {
			return entry.class
		}
	}
	return internalErrorClass
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(payload); err != nil {
		logging.Default().WarnContext(ctx, "encode response", "error", err)
	}
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(ctx, w, status, envelope{APIVersion: apiVersion, Data: data})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	class := classify(err)
	writeJSON(ctx, w, class.httpStatus, envelope{
		APIVersion: apiVersion,
		Error: &errorBody{
			Code:    class.httpStatus,
			Message: err.Error(),
			Status:  class.status,
			Errors: []errorItem{
				{Domain: errorDomain, Reason: class.reason, Message: err.Error()},
			},
		},
	})
}

// writeInternalError keeps panic detail out of the response body.
func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	const msg = "internal server error"
	writeJSON(ctx, w, internalErrorClass.httpStatus, envelope{
		APIVersion: apiVersion,
		Error: &errorBody{
			Code:    internalErrorClass.httpStatus,
			Message: msg,
			Status:  internalErrorClass.status,
			Errors: []errorItem{
				{Domain: errorDomain, Reason: internalErrorClass.reason, Message: msg},
			},
		},
	})
}
