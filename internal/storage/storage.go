// Package storage keeps a history of tailored resumes behind a Repository.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/p-shah256/resume-tailor/pkg/types"
)

var ErrNotFound = errors.New("resume record not found")

// DefaultListLimit caps ListResumes when the caller passes zero or less.
const DefaultListLimit = 50

// ResumeRecord pairs a parsed resume with the version tailored for one job.
type ResumeRecord struct {
	ID        uuid.UUID        `json:"id"`
	Original  types.ResumeData `json:"originalResume"`
	Tailored  types.ResumeData `json:"tailoredResume"`
	JobURL    string           `json:"jobUrl"`
	CreatedAt time.Time        `json:"createdAt"`
}

type Repository interface {
	// SaveResume stores rec, filling ID and CreatedAt when they are zero.
	SaveResume(ctx context.Context, rec *ResumeRecord) error
	GetResume(ctx context.Context, id uuid.UUID) (ResumeRecord, error)
	// ListResumes returns the newest records first.
	ListResumes(ctx context.Context, limit int) ([]ResumeRecord, error)
	DeleteResume(ctx context.Context, id uuid.UUID) error
	Close() error
}

func prepare(rec *ResumeRecord) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
