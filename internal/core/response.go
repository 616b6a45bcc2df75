package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"rootle/internal/types"
)

// maxRequestBodySize caps every decoded request body.
const maxRequestBodySize = 1 << 20

// APIErrorResponse wraps every non-2xx body as {"error": {...}}.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-facing half of a types.AppError.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// JSON marshals data and writes it with status. Trigger payloads are written
// bare; only errors get an envelope. A value that cannot be marshalled turns
// into an internal_unexpected_error response.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(APIErrorResponse{
			Error: ErrorDetail{
				Code:      string(types.ErrCodeInternalUnexpected),
				Message:   "response could not be encoded",
				RequestID: types.GetRequestID(r.Context()),
			},
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error renders err as an APIErrorResponse. An AppError anywhere in the chain
// supplies the code, message, details and status; its cause stays server-side.
// Anything else is reported as internal_unexpected_error with a fixed message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	detail := ErrorDetail{
		Code:      string(types.ErrCodeInternalUnexpected),
		Message:   unexpectedErrorMessage,
		RequestID: types.GetRequestID(r.Context()),
	}
	status := http.StatusInternalServerError

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		detail.Code = string(appErr.Code)
		detail.Message = appErr.Message
		detail.Details = appErr.Details
		status = appErr.HTTPStatus()
	}
	JSON(w, r, status, APIErrorResponse{Error: detail})
}

// unexpectedErrorMessage replaces the text of errors that are not AppErrors.
const unexpectedErrorMessage = "internal error while handling the request"

// DecodeJSON strictly decodes a single JSON object from the request body into
// dst. Bodies over maxRequestBodySize, unknown fields and trailing values are
// rejected. Every failure is a validation_invalid_json AppError; use
// IsEmptyBody to tell a missing body apart from a bad one.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return mapDecodeError(err)
	}
	if dec.More() {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"expected exactly one JSON object in the request body",
			nil,
		)
	}
	return nil
}

// IsEmptyBody reports whether err came from DecodeJSON reading a body with no
// content at all. Chunked requests carry ContentLength -1, so this is the only
// reliable check.
func IsEmptyBody(err error) bool {
	var appErr *types.AppError
	return errors.As(err, &appErr) &&
		appErr.Code == types.ErrCodeValidationInvalidJSON &&
		errors.Is(appErr.Err, io.EOF)
}

func mapDecodeError(err error) *types.AppError {
	invalid := func(msg string) *types.AppError {
		return types.NewAppError(types.ErrCodeValidationInvalidJSON, msg, err)
	}

	var (
		maxBytesErr      *http.MaxBytesError
		syntaxErr        *json.SyntaxError
		unmarshalTypeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		return invalid("request body is larger than 1MB")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		// A body cut off mid-value surfaces as ErrUnexpectedEOF, not a SyntaxError.
		return invalid("request body is not well-formed JSON")
	case errors.As(err, &unmarshalTypeErr):
		return invalid("field has the wrong JSON type").WithDetails(map[string]any{
			"field":    unmarshalTypeErr.Field,
			"expected": unmarshalTypeErr.Type.String(),
		})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return invalid("request body has unsupported field " + strings.TrimPrefix(err.Error(), "json: unknown field "))
	case errors.Is(err, io.EOF):
		return invalid("request body is empty")
	default:
		return invalid("request body could not be decoded")
	}
}
