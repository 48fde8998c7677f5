package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"lanhub/errors"
)

// All endpoints answer the same envelope the browser client expects:
// {"success":true, ...} on success, {"success":false,"error":...} otherwise.

func respondJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	respondJSON(w, http.StatusOK, body)
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case stderrors.Is(err, errors.ErrRoomNotFound),
		stderrors.Is(err, errors.ErrPollNotFound),
		stderrors.Is(err, errors.ErrFileNotFound):
		status = http.StatusNotFound
	case stderrors.Is(err, errors.ErrValidation),
		stderrors.Is(err, errors.ErrPollClosed),
		stderrors.Is(err, errors.ErrInvalidOption),
		stderrors.Is(err, errors.ErrFileTooLarge):
		status = http.StatusBadRequest
	case stderrors.Is(err, errors.ErrRoomIDExhausted):
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}
