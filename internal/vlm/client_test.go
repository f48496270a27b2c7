package vlm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestServer(t *testing.T, polls int32, finalStatus string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var pollCount atomic.Int32
	mux := http.NewServeMux()

	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer vlm-key", r.Header.Get("Authorization"))
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "resume.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4 fake", string(data))
		w.Write([]byte(`{"id": "file-1", "filename": "resume.pdf"}`))
	})

	mux.HandleFunc("POST /document/generate", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{"file_id": "file-1", "model": "vlm-1", "domain": "document.resume"}, req)
		w.Write([]byte(`{"id": "pred-1", "status": "enqueued"}`))
	})

	mux.HandleFunc("GET /predictions/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pred-1", r.PathValue("id"))
		if pollCount.Add(1) < polls {
			w.Write([]byte(`{"id": "pred-1", "status": "running"}`))
			return
		}
		w.Write([]byte(`{"id": "pred-1", "status": "` + finalStatus + `", "response": {"contact_info": {"full_name": "Ada"}}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &pollCount
}

func TestParsePollsUntilCompleted(t *testing.T) {
	srv, polls := newTestServer(t, 3, "completed")
	c := NewClient(Config{BaseURL: srv.URL + "/", PollInterval: time.Millisecond})

	body, err := c.Parse(context.Background(), "vlm-key", "resume.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "Ada", gjson.GetBytes(body, "response.contact_info.full_name").String())
	assert.EqualValues(t, 3, polls.Load())
}

func TestParseFailedPrediction(t *testing.T) {
	srv, _ := newTestServer(t, 1, "failed")
	c := NewClient(Config{BaseURL: srv.URL, PollInterval: time.Millisecond})

	_, err := c.Parse(context.Background(), "vlm-key", "resume.pdf", []byte("%PDF-1.4 fake"))
	assert.ErrorIs(t, err, ErrPredictionFailed)
}

func TestParseTimesOut(t *testing.T) {
	srv, _ := newTestServer(t, 1_000_000, "completed")
	c := NewClient(Config{BaseURL: srv.URL, PollInterval: time.Millisecond, MaxWait: 20 * time.Millisecond})

	_, err := c.Parse(context.Background(), "vlm-key", "resume.pdf", []byte("%PDF-1.4 fake"))
	assert.ErrorIs(t, err, ErrPredictionTimeout)
}

func TestParseAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Parse(context.Background(), "bad", "resume.pdf", []byte("x"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "upload", apiErr.Op)
	assert.Contains(t, apiErr.Error(), "Invalid API key")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, &APIError{Op: "generate", StatusCode: http.StatusBadGateway}, ErrUnauthorized)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultModel, c.model)
	assert.Equal(t, DefaultDomain, c.domain)
	assert.Equal(t, DefaultPollInterval, c.pollInterval)
}
