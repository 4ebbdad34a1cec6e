package commons

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "pizzeria/internal/errors"
)

const CustomerIDHeader = "X-Customer-ID"

type ErrorResponse struct {
	TraceID   string                       `json:"traceId"`
	Status    int                          `json:"status"`
	Code      string                       `json:"code"`
	Message   string                       `json:"message"`
	Details   []apperrors.ValidationDetail `json:"details,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}

func NewTraceID() string {
	return uuid.New().String()
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func WriteValidationError(w http.ResponseWriter, traceID string, logger *zap.Logger, message string, details ...apperrors.ValidationDetail) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		TraceID:   traceID,
		Status:    http.StatusBadRequest,
		Code:      "VALIDATION_ERROR",
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}, logger)
}

// WriteError maps a typed application error to its HTTP status. Anything
// unrecognised is logged and reported as a 500 without leaking the cause.
func WriteError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	status, code, message := http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred"
	var details []apperrors.ValidationDetail

	if ve, ok := apperrors.IsValidationError(err); ok {
		status, code, message, details = http.StatusBadRequest, "VALIDATION_ERROR", ve.Message, ve.Details
	} else if ie, ok := apperrors.IsInvalidOrderError(err); ok {
		status, code, message, details = http.StatusUnprocessableEntity, "INVALID_ORDER", ie.Message, ie.Details
	} else if _, ok := apperrors.IsUnknownCodeError(err); ok {
		status, code, message = http.StatusUnprocessableEntity, "UNKNOWN_DISCOUNT_CODE", err.Error()
	} else if _, ok := apperrors.IsAlreadyUsedError(err); ok {
		status, code, message = http.StatusConflict, "DISCOUNT_CODE_ALREADY_USED", err.Error()
	} else if _, ok := apperrors.IsDuplicateCodeError(err); ok {
		status, code, message = http.StatusConflict, "DUPLICATE_DISCOUNT_CODE", err.Error()
	} else if _, ok := apperrors.IsNotFoundError(err); ok {
		status, code, message = http.StatusNotFound, "NOT_FOUND", err.Error()
	} else if _, ok := apperrors.IsPermissionError(err); ok {
		status, code, message = http.StatusForbidden, "PERMISSION_DENIED", err.Error()
	} else if _, ok := apperrors.IsForbiddenError(err); ok {
		status, code, message = http.StatusForbidden, "FORBIDDEN", err.Error()
	} else if _, ok := apperrors.IsInvalidStateError(err); ok {
		status, code, message = http.StatusConflict, "INVALID_STATE", err.Error()
	} else if _, ok := apperrors.IsAlreadyCompletedError(err); ok {
		status, code, message = http.StatusConflict, "ALREADY_COMPLETED", err.Error()
	} else if _, ok := apperrors.IsDeadlockError(err); ok {
		status, code, message = http.StatusConflict, "DEADLOCK", err.Error()
	} else if _, ok := apperrors.IsConflictError(err); ok {
		status, code, message = http.StatusConflict, "CONFLICT", err.Error()
	} else {
		logger.Error("unexpected error", zap.String("traceId", traceID), zap.Error(err))
	}

	WriteJSON(w, status, ErrorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}, logger)
}

// CustomerID reads the caller identity set by the session layer in front of
// this service.
func CustomerID(r *http.Request) (uint, error) {
	raw := strings.TrimSpace(r.Header.Get(CustomerIDHeader))
	if raw == "" {
		return 0, apperrors.NewValidationError("missing customer id", apperrors.ValidationDetail{
			Field:   CustomerIDHeader,
			Message: "header is required",
		})
	}
	return parseID(raw, CustomerIDHeader)
}

func PathID(r *http.Request, name string) (uint, error) {
	return parseID(chi.URLParam(r, name), name)
}

func parseID(raw, field string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidationError("invalid "+field, apperrors.ValidationDetail{
			Field:   field,
			Message: field + " must be a positive integer",
		})
	}
	return uint(id), nil
}
