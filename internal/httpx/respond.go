package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
)

const headerUserID = "X-User-ID"

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Success: true, Data: data})
}

func writeRaw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func encodeData(data any) ([]byte, error) {
	b, err := json.Marshal(envelope{Success: true, Data: data})
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// writeError maps domain errors to HTTP statuses. Internal errors are
// logged and hidden from the client.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	default:
		log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Message: "internal server error", Code: "INTERNAL"})
		return
	}
	var e *apperr.Error
	errors.As(err, &e)
	writeJSON(w, status, envelope{Message: err.Error(), Code: string(e.Code)})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("invalid json: %v", err)
	}
	return nil
}

func userID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(headerUserID))
	if id == "" {
		return "", apperr.Validation("%s header is required", headerUserID)
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", key)
	}
	return n, nil
}
