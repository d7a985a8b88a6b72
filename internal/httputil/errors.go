package httputil

import (
	"encoding/json"
	"net/http"
)

// APIError is the JSON error envelope returned on every failed request.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string) {
	WriteErrorDetail(w, requestID, statusCode, errType, code, message, "")
}

// WriteErrorDetail writes an error with an optional upstream diagnostic payload.
func WriteErrorDetail(w http.ResponseWriter, requestID string, statusCode int, errType, code, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIError{
		Error: APIErrorBody{
			Message:   message,
			Type:      errType,
			Code:      code,
			Detail:    detail,
			RequestID: requestID,
		},
	})
}

func WriteValidationError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, "validation_error", "invalid_request", message)
}

func WriteAuthError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusUnauthorized, "authentication_error", "invalid_api_key", message)
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "rate_limit_error", "rate_limit_exceeded", message)
}

// WriteUpstreamError reports a failure of the RAG or vector backend on the
// forwarding routes, carrying the backend's own error payload when present.
func WriteUpstreamError(w http.ResponseWriter, requestID, message, detail string) {
	WriteErrorDetail(w, requestID, http.StatusBadGateway, "upstream_error", "upstream_unavailable", message, detail)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, "server_error", "internal_error", message)
}
