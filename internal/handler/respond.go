// Package handler contains HTTP handlers for the Adeia application.
//
// This file holds the shared JSON request/response helpers used by every
// API handler.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/adeia-app/adeia/internal/domain"
)

// maxJSONBodySize bounds API request bodies. File uploads use multipart
// forms with their own limits.
const maxJSONBodySize = 1 << 20 // 1 MB

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes a JSON request body into dst.
// Returns a domain EINVALID error for malformed, oversized, or trailing-data
// bodies so handlers can pass it straight to ErrorResponse.
func decodeJSON(r *http.Request, dst interface{}) error {
	const op = "handler.decode_json"

	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return domain.Invalid(op, "Invalid JSON request body")
	}
	if dec.More() {
		return domain.Invalid(op, "Invalid JSON request body")
	}
	return nil
}
