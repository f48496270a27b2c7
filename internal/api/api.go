package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/p-shah256/resume-tailor/internal/jobprocessor"
	"github.com/p-shah256/resume-tailor/internal/storage"
	"github.com/p-shah256/resume-tailor/internal/web"
	"github.com/p-shah256/resume-tailor/pkg/types"
)

const (
	DefaultMaxUploadBytes = 10 << 20
	DefaultTailorTimeout  = 5 * time.Minute

	// JSON bodies carry a resume, never a file.
	maxJSONBodyBytes = 2 << 20
)

// Pipeline is what the handlers need from the job processor.
type Pipeline interface {
	ParseResume(ctx context.Context, filename string, pdf []byte, apiKey string) (types.ResumeData, error)
	FetchJob(ctx context.Context, rawURL string) (string, error)
	TailorResume(ctx context.Context, resume types.ResumeData, apiKey, jobURL string) (jobprocessor.TailorResult, error)
	AskQuestion(ctx context.Context, resume types.ResumeData, question, apiKey string) (string, error)
	Records() storage.Repository
}

type Options struct {
	MaxUploadBytes int64
	// TailorTimeout bounds a tailoring run. The run is not cancelled when
	// the client goes away.
	TailorTimeout time.Duration
	CORSOrigin    string
}

type Server struct {
	pipeline Pipeline
	opts     Options
	mux      *http.ServeMux
}

func NewServer(pipeline Pipeline, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.TailorTimeout <= 0 {
		opts.TailorTimeout = DefaultTailorTimeout
	}
	s := &Server{
		pipeline: pipeline,
		opts:     opts,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("/api/resume/parse", s.handleParse, http.MethodPost)
	s.handle("/api/job/fetch", s.handleFetchJob, http.MethodPost)
	s.handle("/api/resume/tailor", s.handleTailor, http.MethodPost)
	s.handle("/api/resume/question", s.handleQuestion, http.MethodPost)
	s.handle("/api/resume/export", s.handleExport, http.MethodPost)
	s.handle("/api/resumes", s.handleListResumes, http.MethodGet)
	s.handle("/api/resumes/{id}", s.handleResume, http.MethodGet, http.MethodDelete)
	s.handle("/healthz", s.handleHealth, http.MethodGet)

	ui := web.Handler()
	s.handle("/{$}", ui.ServeHTTP, http.MethodGet, http.MethodHead)
	s.handle("/", s.handleNotFound, http.MethodGet, http.MethodPost, http.MethodDelete)
}

func (s *Server) handle(pattern string, h http.HandlerFunc, methods ...string) {
	chain := RequestID(Logger(Recover(CORS(s.opts.CORSOrigin)(MethodChecker(methods...)(h)))))
	s.mux.HandleFunc(pattern, chain)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler exposes the routed server for http.Server.
func (s *Server) Handler() http.Handler {
	return s
}

// HTTPServer wraps the handler with the listen address and timeouts.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	slog.Info("Starting API server", "addr", addr)
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
	}
}

func (s *Server) records() (storage.Repository, bool) {
	repo := s.pipeline.Records()
	return repo, repo != nil
}

func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	return id, err == nil
}
