package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"animlab/internal/jobs"
	"animlab/internal/logging"
	"animlab/internal/scene"
)

const maxBodyBytes = 1 << 20

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain errors onto HTTP statuses. notFound is the
// message used for a missing resource.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, scene.ErrNotFound):
		s.writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, scene.ErrConflict):
		s.writeError(w, http.StatusBadRequest, "Scene ID already exists")
	case errors.Is(err, scene.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrPoolClosed):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.Error(err),
			logging.String("path", r.URL.Path),
		)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON request body into dst. allowEmpty accepts a
// missing body and leaves dst untouched.
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", scene.ErrValidation)
		}
		return fmt.Errorf("%w: invalid request body: %v", scene.ErrValidation, err)
	}
	return nil
}
