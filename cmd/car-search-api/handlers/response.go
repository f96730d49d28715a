// Package handlers provides HTTP handlers for the car search API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Thomaz-Klifson/car-search/internal/observability"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, logger *observability.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
