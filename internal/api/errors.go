// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/tunewatch/internal/engine"
	"github.com/ManuGH/tunewatch/internal/favorites"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/scan"
	"github.com/ManuGH/tunewatch/internal/supervisor"
)

var (
	errBadBody        = errors.New("invalid request body")
	errUnknownChannel = errors.New("channel is not in the catalog")
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, engine.ErrEmptySelection),
		errors.Is(err, favorites.ErrEmptyName),
		errors.Is(err, scan.ErrFrontendType),
		errors.Is(err, scan.ErrOutputFormat),
		errors.Is(err, scan.ErrDeviceIndex):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, favorites.ErrNoSlot):
		return http.StatusNotFound, "slot_empty"
	case errors.Is(err, errUnknownChannel):
		return http.StatusNotFound, "unknown_channel"
	case errors.Is(err, engine.ErrScanInProgress),
		errors.Is(err, engine.ErrScanRunning):
		return http.StatusConflict, "scan_conflict"
	case errors.Is(err, engine.ErrNoCatalog):
		return http.StatusPreconditionFailed, "no_catalog"
	case errors.Is(err, engine.ErrNoScan):
		return http.StatusNotFound, "no_scan"
	case errors.Is(err, engine.ErrExecutableNotFound),
		errors.Is(err, supervisor.ErrNotFound):
		return http.StatusServiceUnavailable, "executable_not_found"
	case errors.Is(err, engine.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, name := statusFor(err)
	evt := s.logger.Warn()
	if code >= http.StatusInternalServerError {
		evt = s.logger.Error()
	}
	reqID := log.RequestIDFromContext(r.Context())
	evt.Err(err).
		Str(log.FieldEvent, "api.request_failed").
		Str(log.FieldRequestID, reqID).
		Str(log.FieldPath, r.URL.Path).
		Int("status", code).
		Msg("request failed")

	writeJSON(w, code, errorResponse{Error: name, Detail: err.Error(), RequestID: reqID})
}
