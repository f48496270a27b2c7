package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/p-shah256/resume-tailor/internal/export"
	"github.com/p-shah256/resume-tailor/internal/extraction"
	"github.com/p-shah256/resume-tailor/internal/jobprocessor"
	"github.com/p-shah256/resume-tailor/internal/storage"
	apperrors "github.com/p-shah256/resume-tailor/pkg/errors"
	"github.com/p-shah256/resume-tailor/pkg/logger"
	"github.com/p-shah256/resume-tailor/pkg/types"
)

const pdfMIME = "application/pdf"

func respondError(w http.ResponseWriter, r *http.Request, err *apperrors.ApiError) {
	RespondWithError(w, err.WithRequestID(logger.GetRequestID(r.Context())))
}

// decodeJSON reads a JSON body into dst. The returned error is ready to
// send to the client.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) *apperrors.ApiError {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.ErrBadRequest("Request body too large")
		}
		return apperrors.ErrBadRequest("Invalid request body")
	}
	return nil
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	log := slog.With("component", "api", "operation", "handleParse", "request_id", logger.GetRequestID(r.Context()))

	// room for the form fields around the file
	limit := s.opts.MaxUploadBytes + 1<<20
	if r.ContentLength > limit {
		respondError(w, r, s.tooLarge())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, s.tooLarge())
			return
		}
		respondError(w, r, apperrors.ErrBadRequest("Invalid form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, apperrors.ErrBadRequest("No file uploaded"))
		return
	}
	defer file.Close()

	apiKey := r.FormValue("vlmApiKey")
	if apiKey == "" {
		respondError(w, r, apperrors.ErrBadRequest("VLM API key is required"))
		return
	}

	if header.Size > s.opts.MaxUploadBytes {
		respondError(w, r, s.tooLarge())
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		respondError(w, r, apperrors.ErrBadRequest("Failed to read uploaded file"))
		return
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		respondError(w, r, s.tooLarge())
		return
	}

	declared, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	detected := mimetype.Detect(data)
	if declared != pdfMIME || !detected.Is(pdfMIME) {
		log.Warn("Rejected upload", "filename", header.Filename, "declared", declared, "detected", detected.String())
		respondError(w, r, apperrors.ErrBadRequest("Only PDF files are allowed"))
		return
	}
	pages, err := pageCount(data)
	if err != nil || pages == 0 {
		log.Warn("Rejected unreadable PDF", "filename", header.Filename, "pages", pages, "error", err)
		respondError(w, r, apperrors.ErrBadRequest("Invalid PDF file"))
		return
	}
	log.Info("Resume uploaded", "filename", header.Filename, "bytes", len(data), "pages", pages)

	resume, err := s.pipeline.ParseResume(r.Context(), header.Filename, data, apiKey)
	if err != nil {
		log.Error("Failed to parse resume", "error", err)
		respondError(w, r, apperrors.ErrUpstream(fmt.Sprintf("Failed to parse resume: %v", err)))
		return
	}

	RespondWithJSON(w, http.StatusOK, resume)
}

func (s *Server) tooLarge() *apperrors.ApiError {
	limit := fmt.Sprintf("%d bytes", s.opts.MaxUploadBytes)
	if s.opts.MaxUploadBytes%(1<<20) == 0 {
		limit = fmt.Sprintf("%dMB", s.opts.MaxUploadBytes>>20)
	}
	return apperrors.ErrBadRequest("File too large. Maximum size is " + limit)
}

// pageCount opens data as a PDF and returns its page count.
func pageCount(data []byte) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("malformed PDF: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

func (s *Server) handleFetchJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		respondError(w, r, apiErr)
		return
	}
	if req.URL == "" {
		respondError(w, r, apperrors.ErrBadRequest("URL is required"))
		return
	}
	if _, err := extraction.ValidateURL(req.URL); err != nil {
		respondError(w, r, apperrors.ErrBadRequest("Invalid URL"))
		return
	}

	jobDetails, err := s.pipeline.FetchJob(r.Context(), req.URL)
	if err != nil {
		slog.Error("Failed to fetch job details", "url", req.URL, "error", err, "request_id", logger.GetRequestID(r.Context()))
		respondError(w, r, apperrors.ErrUpstream(fmt.Sprintf("Failed to fetch job details: %v", err)))
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"jobDetails": jobDetails})
}

func (s *Server) handleTailor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resume         *types.ResumeData `json:"resume"`
		GeminiAPIKey   string            `json:"geminiApiKey"`
		ApplicationURL string            `json:"applicationUrl"`
	}
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		respondError(w, r, apiErr)
		return
	}
	if req.Resume == nil || req.GeminiAPIKey == "" || req.ApplicationURL == "" {
		respondError(w, r, apperrors.ErrBadRequest("Resume, Gemini API key and application URL are required"))
		return
	}
	if _, err := extraction.ValidateURL(req.ApplicationURL); err != nil {
		respondError(w, r, apperrors.ErrBadRequest("Invalid application URL"))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.TailorTimeout)
	defer cancel()

	result, err := s.pipeline.TailorResume(ctx, *req.Resume, req.GeminiAPIKey, req.ApplicationURL)
	if err != nil {
		slog.Error("Failed to tailor resume", "error", err, "request_id", logger.GetRequestID(r.Context()))
		if errors.Is(err, jobprocessor.ErrMissingInput) || errors.Is(err, extraction.ErrInvalidURL) {
			respondError(w, r, apperrors.ErrBadRequest(err.Error()))
			return
		}
		respondError(w, r, apperrors.ErrUpstream(fmt.Sprintf("Failed to tailor resume: %v", err)))
		return
	}

	if result.RecordID != uuid.Nil {
		w.Header().Set("X-Resume-ID", result.RecordID.String())
	}
	RespondWithJSON(w, http.StatusOK, result.Resume)
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resume       *types.ResumeData `json:"resume"`
		Question     string            `json:"question"`
		GeminiAPIKey string            `json:"geminiApiKey"`
	}
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		respondError(w, r, apiErr)
		return
	}
	if req.Resume == nil || req.Question == "" || req.GeminiAPIKey == "" {
		respondError(w, r, apperrors.ErrBadRequest("Resume, question and Gemini API key are required"))
		return
	}

	answer, err := s.pipeline.AskQuestion(r.Context(), *req.Resume, req.Question, req.GeminiAPIKey)
	if err != nil {
		slog.Error("Failed to answer question", "error", err, "request_id", logger.GetRequestID(r.Context()))
		respondError(w, r, apperrors.ErrUpstream(fmt.Sprintf("Failed to answer question: %v", err)))
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, apperrors.ErrBadRequest("Format must be json or yaml"))
		return
	}

	var resume types.ResumeData
	if apiErr := decodeJSON(w, r, &resume); apiErr != nil {
		respondError(w, r, apiErr)
		return
	}

	out, err := export.Render(resume, format)
	if err != nil {
		respondError(w, r, apperrors.ErrInternalServer("Failed to render resume"))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.records()
	if !ok {
		respondError(w, r, apperrors.ErrServiceUnavailable("Resume history is disabled"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, r, apperrors.ErrBadRequest("limit must be a positive number"))
			return
		}
		limit = n
	}

	records, err := repo.ListResumes(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list resumes", "error", err)
		respondError(w, r, apperrors.ErrInternalServer("Failed to list resumes"))
		return
	}
	RespondWithJSON(w, http.StatusOK, records)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.records()
	if !ok {
		respondError(w, r, apperrors.ErrServiceUnavailable("Resume history is disabled"))
		return
	}
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondError(w, r, apperrors.ErrBadRequest("Invalid resume ID"))
		return
	}

	switch r.Method {
	case http.MethodDelete:
		err := repo.DeleteResume(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, r, apperrors.ErrNotFound("Resume not found"))
			return
		}
		if err != nil {
			slog.Error("Failed to delete resume", "id", id, "error", err)
			respondError(w, r, apperrors.ErrInternalServer("Failed to delete resume"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		rec, err := repo.GetResume(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, r, apperrors.ErrNotFound("Resume not found"))
			return
		}
		if err != nil {
			slog.Error("Failed to load resume", "id", id, "error", err)
			respondError(w, r, apperrors.ErrInternalServer("Failed to load resume"))
			return
		}
		RespondWithJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, apperrors.ErrNotFound(fmt.Sprintf("No route for %s", r.URL.Path)))
}
