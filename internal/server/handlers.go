package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnail-reviewer/internal/imaging"
	"github.com/fpang/thumbnail-reviewer/internal/metrics"
	"github.com/fpang/thumbnail-reviewer/internal/orchestrator"
	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// analyzeResponse is the synchronous analysis envelope. SessionID echoes the
// session the review was recorded under so clients can carry it forward.
type analyzeResponse struct {
	SessionID string               `json:"sessionId,omitempty"`
	Review    *review.ReviewResult `json:"review"`
}

// formSlack is extra body allowance beyond the image for the multipart
// framing and text fields.
const formSlack = 1 << 20

// POST /api/v1/thumbnail/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseAnalyzeRequest(w, r)
	if !ok {
		return
	}

	result, err := s.reviewer.Review(r.Context(), *req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error().Err(err).Msg("Review failed")
		httpError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, analyzeResponse{SessionID: req.SessionID, Review: result})
}

// POST /api/v1/thumbnail/analyze_async
func (s *Server) handleAnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseAnalyzeRequest(w, r)
	if !ok {
		return
	}

	j := s.jobs.create(req.SessionID)
	go func() {
		j.start()
		// Detached from the HTTP request: the job outlives the submission.
		result, err := s.reviewer.Review(context.Background(), *req)
		if err != nil {
			log.Error().Str("job_id", j.ID).Err(err).Msg("Async review failed")
			j.fail(err)
			return
		}
		j.complete(result)
	}()

	respondJSON(w, http.StatusAccepted, j.snapshot())
}

// GET /api/v1/jobs/{jobID}
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	j := s.jobs.get(chi.URLParam(r, "jobID"))
	if j == nil {
		httpError(w, http.StatusNotFound, "unknown job")
		return
	}
	respondJSON(w, http.StatusOK, j.snapshot())
}

// GET /api/v1/sessions/{sessionID}/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	rec, err := s.store.Get(r.Context(), sessionID)
	if err != nil {
		log.Error().Str("session_id", sessionID).Err(err).Msg("History lookup failed")
		httpError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, metrics.Snapshot())
}

// parseAnalyzeRequest extracts and validates the multipart analysis form.
// On failure it writes the error response and returns ok=false.
func (s *Server) parseAnalyzeRequest(w http.ResponseWriter, r *http.Request) (*orchestrator.Request, bool) {
	maxUpload := s.cfg.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+formSlack)

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, false
		}
		httpError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "missing file field")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpError(w, http.StatusBadRequest, "could not read upload")
		return nil, false
	}

	mode := r.FormValue("mode")
	switch mode {
	case "", "quick", "deep":
	default:
		httpError(w, http.StatusBadRequest, "mode must be quick or deep")
		return nil, false
	}

	sessionID := r.FormValue("session_id")
	if v := r.FormValue("new_session"); v == "1" || v == "true" {
		sessionID = uuid.NewString()
	}

	sample, err := imaging.NewSample(data, maxUpload)
	if err != nil {
		var verr *imaging.ValidationError
		if errors.As(err, &verr) {
			status := http.StatusBadRequest
			if int64(len(data)) > maxUpload {
				status = http.StatusRequestEntityTooLarge
			}
			httpError(w, status, verr.Error())
			return nil, false
		}
		log.Error().Err(err).Msg("Image ingestion failed")
		httpError(w, http.StatusInternalServerError, "could not process image")
		return nil, false
	}

	return &orchestrator.Request{
		Sample:      sample,
		SessionID:   sessionID,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Deep:        mode == "deep",
	}, true
}
