package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidID          = "invalid_id"
	codeInvalidInput       = "invalid_input"
	codeNotFound           = "not_found"
	codeConflict           = "conflict"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeRateLimited        = "rate_limited"
	codeInternalError      = "internal_error"

	codeInvalidOrder       = "invalid_order"
	codeInvalidLineItem    = "invalid_line_item"
	codeInsufficientStock  = "insufficient_stock"
	codeBackendUnavailable = "backend_unavailable"
	codeInvalidStatus      = "invalid_status"
	codeInvalidTransition  = "invalid_transition"
	codeInvalidImage       = "invalid_image"
	codeImageTooLarge      = "image_too_large"
	codeUnknownReference   = "unknown_reference"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid json")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid "+name)
		return 0, false
	}
	return id, true
}
