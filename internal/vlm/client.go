// Package vlm is a small client for the VLM Run document API. It uploads a
// PDF, requests a resume prediction and waits for it to complete.
package vlm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	DefaultBaseURL      = "https://api.vlm.run/v1"
	DefaultModel        = "vlm-1"
	DefaultDomain       = "document.resume"
	DefaultPollInterval = 2 * time.Second
	DefaultMaxWait      = 2 * time.Minute

	maxErrorBody = 4096
)

var (
	ErrPredictionFailed  = errors.New("prediction failed")
	ErrPredictionTimeout = errors.New("prediction did not complete in time")
	ErrUnauthorized      = errors.New("vlm api key rejected")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vlm %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap exposes ErrUnauthorized for 401 and 403 answers.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

type Config struct {
	BaseURL      string
	Model        string
	Domain       string
	PollInterval time.Duration
	MaxWait      time.Duration
	HTTP         *http.Client
}

type Client struct {
	baseURL      string
	model        string
	domain       string
	pollInterval time.Duration
	maxWait      time.Duration
	http         *http.Client
}

func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		domain:       cfg.Domain,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
		http:         cfg.HTTP,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.domain == "" {
		c.domain = DefaultDomain
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.maxWait <= 0 {
		c.maxWait = DefaultMaxWait
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 60 * time.Second}
	}
	return c
}

type fileResponse struct {
	ID string `json:"id"`
}

type prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (p prediction) pending() bool {
	switch p.Status {
	case "pending", "enqueued", "running":
		return true
	}
	return false
}

// Parse uploads pdf and returns the raw prediction JSON once it completed.
// The structured resume sits under its "response" key.
func (c *Client) Parse(ctx context.Context, apiKey, filename string, pdf []byte) ([]byte, error) {
	logger := slog.With("component", "vlm", "operation", "Parse")
	start := time.Now()

	fileID, err := c.upload(ctx, apiKey, filename, pdf)
	if err != nil {
		return nil, err
	}
	logger.Debug("Uploaded document", "file_id", fileID, "bytes", len(pdf))

	body, err := c.doJSON(ctx, apiKey, http.MethodPost, "/document/generate", "generate", map[string]any{
		"file_id": fileID,
		"model":   c.model,
		"domain":  c.domain,
	})
	if err != nil {
		return nil, err
	}

	body, err = c.wait(ctx, apiKey, body)
	if err != nil {
		return nil, err
	}

	logger.Info("Document parsed",
		"file_id", fileID,
		"duration_ms", time.Since(start).Milliseconds())
	return body, nil
}

func (c *Client) wait(ctx context.Context, apiKey string, body []byte) ([]byte, error) {
	deadline := time.Now().Add(c.maxWait)
	for {
		var pred prediction
		if err := json.Unmarshal(body, &pred); err != nil {
			return nil, fmt.Errorf("decode prediction: %w", err)
		}
		if pred.Status == "failed" {
			return nil, fmt.Errorf("%w: %s", ErrPredictionFailed, pred.ID)
		}
		if !pred.pending() {
			return body, nil
		}
		if pred.ID == "" {
			return nil, fmt.Errorf("%w: pending prediction without id", ErrPredictionFailed)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrPredictionTimeout, pred.ID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		var err error
		body, err = c.doJSON(ctx, apiKey, http.MethodGet, "/predictions/"+pred.ID, "poll", nil)
		if err != nil {
			return nil, err
		}
	}
}

func (c *Client) upload(ctx context.Context, apiKey, filename string, pdf []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(req, apiKey, "upload")
	if err != nil {
		return "", err
	}
	var file fileResponse
	if err := json.Unmarshal(body, &file); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if file.ID == "" {
		return "", errors.New("upload response has no file id")
	}
	return file.ID, nil
}

func (c *Client) doJSON(ctx context.Context, apiKey, method, path, op string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, apiKey, op)
}

func (c *Client) do(req *http.Request, apiKey, op string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vlm %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vlm %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
