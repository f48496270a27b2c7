package tailor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-shah256/resume-tailor/internal/llm"
	"github.com/p-shah256/resume-tailor/pkg/types"
)

// NoAnswer is returned when the model answers with nothing.
const NoAnswer = "No answer could be generated for this question."

// Answer asks one question about resume. An empty model response yields
// NoAnswer; other generation errors are returned.
func (t *Tailor) Answer(ctx context.Context, resume types.ResumeData, question string) (string, error) {
	logger := slog.With("component", "tailor", "operation", "Answer")
	start := time.Now()

	resumeJSON, err := json.MarshalIndent(resume, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode resume: %w", err)
	}

	if t.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.callTimeout)
		defer cancel()
	}

	out, err := t.gen.Generate(ctx, systemPrompt, questionPrompt(string(resumeJSON), question))
	if errors.Is(err, llm.ErrEmptyResponse) {
		out, err = "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to answer question: %w", err)
	}

	answer := strings.TrimSpace(out)
	if answer == "" {
		logger.Warn("Empty answer from LLM")
		return NoAnswer, nil
	}

	logger.Info("Question answered", "duration_ms", time.Since(start).Milliseconds())
	return answer, nil
}
