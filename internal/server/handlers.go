package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/belens/belens-api/internal/archive"
	"github.com/belens/belens-api/internal/identity"
	"github.com/belens/belens-api/internal/pipeline"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"message":   "API is running smoothly",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.log.Error().Int64("limit", maxErr.Limit).Msg("upload exceeds size limit")
			writeError(w, http.StatusRequestEntityTooLarge, "File too large", "Uploaded file exceeds the maximum allowed size")
			return
		}
		s.log.Error().Err(err).Msg("no file part in the request")
		writeError(w, http.StatusBadRequest, "No file part", "No file was uploaded in the request")
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		s.log.Error().Msg("no selected file")
		writeError(w, http.StatusBadRequest, "No selected file", "Uploaded file has an empty filename")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read upload")
		writeError(w, http.StatusBadRequest, "No file part", "Uploaded file could not be read")
		return
	}

	req := pipeline.Request{
		Asset: archive.Asset{
			Data:        data,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		},
		Email: r.FormValue("email"),
	}

	result, stageErr := s.pipeline.Run(r.Context(), req)
	if stageErr != nil {
		writeError(w, statusFor(stageErr.Kind), stageErr.Message, stageErr.Details())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Prediction saved successfully",
		"data":    result.Record.Fields(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		s.log.Error().Msg("email is required")
		writeError(w, http.StatusBadRequest, "Email required", "User email must be provided")
		return
	}

	principal, err := s.resolver.Resolve(r.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrPrincipalNotFound):
			s.log.Error().Str("email", email).Msg("user not found")
			writeError(w, http.StatusNotFound, "User not found", "No user found with the provided email")
		default:
			s.log.Error().Err(err).Msg("authentication error")
			writeError(w, http.StatusInternalServerError, "Authentication error", err.Error())
		}
		return
	}

	history, err := s.history.History(r.Context(), principal.UID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", principal.UID).Msg("history query error")
		writeError(w, http.StatusInternalServerError, "History retrieval failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"history": history,
		"count":   len(history),
	})
}

// statusFor maps a pipeline error kind to its HTTP status.
func statusFor(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindClientInput:
		return http.StatusBadRequest
	case pipeline.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
