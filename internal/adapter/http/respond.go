package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/farm"
	"github.com/couchcryptid/smart-irrigation-service/internal/pipeline"
)

const msgpackContentType = "application/x-msgpack"

type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// write encodes v as JSON, or as MessagePack when ?format=msgpack is set.
// MessagePack reuses the json struct tags so both encodings share field names.
func write(w http.ResponseWriter, r *http.Request, status int, v any) {
	if r.URL.Query().Get("format") == "msgpack" {
		w.Header().Set("Content-Type", msgpackContentType)
		w.WriteHeader(status)
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		enc.Encode(v) //nolint:errcheck // client gone
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client gone
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	write(w, r, status, errorBody{Error: msg, RequestID: RequestIDFrom(r.Context())})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, farm.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrComputationDegenerate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstreamUnavailable), errors.Is(err, pipeline.ErrNoWeather):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs server-side failures and hides their detail from
// the client; client errors are echoed back.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusNotFound:
		msg = "Farm not found"
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err,
			"request_id", RequestIDFrom(r.Context()))
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
	}
	writeError(w, r, status, msg)
}
