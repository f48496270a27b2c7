// Package jobprocessor runs the resume pipeline: parse a PDF, fetch a job
// posting, tailor the resume to it and answer questions about the result.
package jobprocessor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/p-shah256/resume-tailor/internal/extraction"
	"github.com/p-shah256/resume-tailor/internal/llm"
	"github.com/p-shah256/resume-tailor/internal/normalizer"
	"github.com/p-shah256/resume-tailor/internal/storage"
	"github.com/p-shah256/resume-tailor/internal/tailor"
	"github.com/p-shah256/resume-tailor/pkg/types"
)

var ErrMissingInput = errors.New("missing required input")

// ResumeParser turns a PDF into the parser's raw JSON envelope.
type ResumeParser interface {
	Parse(ctx context.Context, apiKey, filename string, pdf []byte) ([]byte, error)
}

// JobFetcher returns the plain-text description found at a job posting URL.
type JobFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

type Processor struct {
	parser     ResumeParser
	fetcher    JobFetcher
	generators llm.Factory
	records    storage.Repository
	tailorOpts []tailor.Option
}

type Option func(*Processor)

// WithRepository persists every tailored resume. Without it nothing is
// stored.
func WithRepository(repo storage.Repository) Option {
	return func(p *Processor) {
		p.records = repo
	}
}

func WithTailorOptions(opts ...tailor.Option) Option {
	return func(p *Processor) {
		p.tailorOpts = append(p.tailorOpts, opts...)
	}
}

func New(parser ResumeParser, fetcher JobFetcher, generators llm.Factory, opts ...Option) *Processor {
	p := &Processor{
		parser:     parser,
		fetcher:    fetcher,
		generators: generators,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TailorResult is a tailored resume and, when it was stored, its record ID.
type TailorResult struct {
	Resume   types.ResumeData
	RecordID uuid.UUID
}

func (p *Processor) ParseResume(ctx context.Context, filename string, pdf []byte, apiKey string) (types.ResumeData, error) {
	logger := slog.With("component", "jobprocessor", "operation", "ParseResume")
	start := time.Now()

	if apiKey == "" || len(pdf) == 0 {
		return types.ResumeData{}, fmt.Errorf("%w: file and VLM API key are required", ErrMissingInput)
	}

	raw, err := p.parser.Parse(ctx, apiKey, filename, pdf)
	if err != nil {
		return types.ResumeData{}, fmt.Errorf("failed to parse resume: %w", err)
	}

	resume, err := normalizer.Normalize(raw)
	if err != nil {
		return types.ResumeData{}, fmt.Errorf("failed to normalize resume: %w", err)
	}

	logger.Info("Resume parsed",
		"filename", filename,
		"experience", len(resume.Experience),
		"projects", len(resume.Projects),
		"duration_ms", time.Since(start).Milliseconds())
	return resume, nil
}

func (p *Processor) FetchJob(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("%w: URL is required", ErrMissingInput)
	}
	return p.fetcher.Fetch(ctx, rawURL)
}

// TailorResume re-fetches the job posting at jobURL and tailors resume to
// it. Generation problems never fail the call; the resume comes back with
// the sections that could not be tailored left as they were.
func (p *Processor) TailorResume(ctx context.Context, resume types.ResumeData, apiKey, jobURL string) (TailorResult, error) {
	logger := slog.With("component", "jobprocessor", "operation", "TailorResume")
	start := time.Now()

	if apiKey == "" || jobURL == "" {
		return TailorResult{}, fmt.Errorf("%w: resume, API key and application URL are required", ErrMissingInput)
	}
	if _, err := extraction.ValidateURL(jobURL); err != nil {
		return TailorResult{}, err
	}

	jobDetails, err := p.fetcher.Fetch(ctx, jobURL)
	if err != nil {
		return TailorResult{}, fmt.Errorf("failed to fetch job details: %w", err)
	}
	logger.Debug("Fetched job details", "url", jobURL, "chars", len(jobDetails))

	result := TailorResult{Resume: resume}
	gen, err := p.generators(ctx, apiKey)
	if err != nil {
		logger.Error("Failed to create generator, returning resume untailored", "error", err)
	} else {
		defer gen.Close()
		result.Resume = tailor.New(gen, p.tailorOpts...).Tailor(ctx, resume, jobDetails)
	}

	if p.records != nil {
		rec := storage.ResumeRecord{Original: resume, Tailored: result.Resume, JobURL: jobURL}
		if err := p.records.SaveResume(context.WithoutCancel(ctx), &rec); err != nil {
			logger.Warn("Failed to store tailored resume", "error", err)
		} else {
			result.RecordID = rec.ID
		}
	}

	logger.Info("Tailoring finished",
		"url", jobURL,
		"record_id", result.RecordID,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (p *Processor) AskQuestion(ctx context.Context, resume types.ResumeData, question, apiKey string) (string, error) {
	if question == "" || apiKey == "" {
		return "", fmt.Errorf("%w: resume, question and API key are required", ErrMissingInput)
	}

	gen, err := p.generators(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("failed to create generator: %w", err)
	}
	defer gen.Close()

	return tailor.New(gen, p.tailorOpts...).Answer(ctx, resume, question)
}

// Records is the repository tailored resumes are stored in, or nil.
func (p *Processor) Records() storage.Repository {
	return p.records
}
