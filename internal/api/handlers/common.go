// Package handlers provides HTTP request handlers for the Uplink API.
// This file contains common utilities shared across all handlers.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/anstrom/uplink/internal/api/middleware"
	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
)

const maxRequestSize = 1024 * 1024

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// MessageResponse carries an operator-facing message.
type MessageResponse struct {
	Message string `json:"message"`
}

var validate = validator.New()

// BaseHandler provides common functionality for all handlers.
type BaseHandler struct {
	logger  *logging.Logger
	metrics metrics.MetricsRegistry
}

// NewBaseHandler creates a new base handler.
func NewBaseHandler(logger *logging.Logger, registry metrics.MetricsRegistry) BaseHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return BaseHandler{logger: logger, metrics: registry}
}

func (b *BaseHandler) count(name string, labels metrics.Labels) {
	if b.metrics != nil {
		b.metrics.Counter(name, labels)
	}
}

// getRequestIDFromContext extracts the request ID set by the logging middleware.
func getRequestIDFromContext(r *http.Request) string {
	return middleware.GetRequestID(r)
}

// getQueryParamInt extracts integer query parameter with default value.
func getQueryParamInt(r *http.Request, key string, defaultValue int) (int, error) {
	if value := r.URL.Query().Get(key); value != "" {
		return strconv.Atoi(value)
	}
	return defaultValue, nil
}

// getQueryParamFloat extracts a float query parameter.
func getQueryParamFloat(r *http.Request, key string) (float64, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0, errors.New(errors.CodeValidation, fmt.Sprintf("%s is required", key))
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.New(errors.CodeValidation, fmt.Sprintf("invalid %s: %s", key, value))
	}
	return f, nil
}

// extractUUIDFromPath extracts UUID from URL path parameter.
func extractUUIDFromPath(r *http.Request) (uuid.UUID, error) {
	idStr, exists := mux.Vars(r)["id"]
	if !exists {
		return uuid.Nil, errors.New(errors.CodeValidation, "id not provided")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, errors.New(errors.CodeValidation, fmt.Sprintf("invalid id: %s", idStr))
	}
	return id, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error("Failed to encode JSON response",
			"request_id", getRequestIDFromContext(r),
			"error", err)
	}
}

// writeError writes an error response. The status is derived from the error code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusForError(err)

	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   errors.UserMessage(err),
		Timestamp: time.Now().UTC(),
		RequestID: getRequestIDFromContext(r),
	}
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		response.Code = string(code)
	}

	writeJSON(w, r, statusCode, response)
}

// MethodNotAllowed answers a request whose path is routed only for other methods.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeRouteError(w, r, http.StatusMethodNotAllowed,
		fmt.Sprintf("%s is not supported for %s", r.Method, r.URL.Path))
}

// NotFound answers a request for an unknown API path.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeRouteError(w, r, http.StatusNotFound, fmt.Sprintf("no endpoint at %s", r.URL.Path))
}

func writeRouteError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	writeJSON(w, r, statusCode, ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: getRequestIDFromContext(r),
	})
}

// statusForError maps an error code to an HTTP status.
func statusForError(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeValidation, errors.CodeTargetInvalid:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeConflict, errors.CodeScanInProgress:
		return http.StatusConflict
	case errors.CodeNoScanData:
		return http.StatusUnprocessableEntity
	case errors.CodeParseFailed:
		return http.StatusUnprocessableEntity
	case errors.CodeRateLimited:
		return http.StatusTooManyRequests
	case errors.CodeServiceUnavailable, errors.CodeDatabaseConnection:
		return http.StatusServiceUnavailable
	case errors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// parseJSON decodes the request body into dest and validates it.
func parseJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New(errors.CodeValidation, "request body is empty")
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestSize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.New(errors.CodeValidation, "request body too large")
		}
		return errors.Wrap(errors.CodeValidation, fmt.Sprintf("invalid JSON: %v", err), err)
	}

	if err := validate.Struct(dest); err != nil {
		return errors.Wrap(errors.CodeValidation, validationMessage(err), err)
	}
	return nil
}

// validationMessage renders the first failed field of a validator error.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("invalid %s: failed %s", fe.Field(), fe.Tag())
	}
	return err.Error()
}
