package storage

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-shah256/resume-tailor/pkg/types"
)

func sampleRecord(summary string, created time.Time) ResumeRecord {
	original := types.DefaultResume()
	original.Contact.Name = "Ada Lovelace"
	original.Summary = "Mathematician"
	original.Skills.Languages = []string{"Go", "Python"}
	original.Extra = types.Fields{{Key: "patents", Value: json.RawMessage(`["P1"]`)}}

	tailored := original.Clone()
	tailored.Summary = summary

	return ResumeRecord{
		Original:  original,
		Tailored:  tailored,
		JobURL:    "https://example.com/jobs/1",
		CreatedAt: created,
	}
}

func TestMemorySaveAssignsIDAndTime(t *testing.T) {
	repo := NewMemoryRepository()
	rec := sampleRecord("Tailored", time.Time{})

	require.NoError(t, repo.SaveResume(context.Background(), &rec))
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := repo.GetResume(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tailored", got.Tailored.Summary)
	assert.Equal(t, "Mathematician", got.Original.Summary)
	assert.Equal(t, rec.JobURL, got.JobURL)
}

func TestMemoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	rec := sampleRecord("Tailored", time.Now())
	require.NoError(t, repo.SaveResume(context.Background(), &rec))

	rec.Original.Skills.Languages[0] = "changed"

	got, err := repo.GetResume(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", got.Original.Skills.Languages[0])

	got.Tailored.Skills.Languages[0] = "also changed"
	again, err := repo.GetResume(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", again.Tailored.Skills.Languages[0])
}

func TestMemoryListNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, summary := range []string{"first", "second", "third"} {
		rec := sampleRecord(summary, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.SaveResume(context.Background(), &rec))
	}

	all, err := repo.ListResumes(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Tailored.Summary)
	assert.Equal(t, "first", all[2].Tailored.Summary)

	two, err := repo.ListResumes(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, "second", two[1].Tailored.Summary)
}

func TestMemoryDelete(t *testing.T) {
	repo := NewMemoryRepository()
	rec := sampleRecord("Tailored", time.Now())
	require.NoError(t, repo.SaveResume(context.Background(), &rec))

	require.NoError(t, repo.DeleteResume(context.Background(), rec.ID))
	_, err := repo.GetResume(context.Background(), rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteResume(context.Background(), rec.ID), ErrNotFound)
}

func TestMemoryGetUnknown(t *testing.T) {
	_, err := NewMemoryRepository().GetResume(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, clampLimit(0))
	assert.Equal(t, DefaultListLimit, clampLimit(-3))
	assert.Equal(t, DefaultListLimit, clampLimit(DefaultListLimit+1))
	assert.Equal(t, 7, clampLimit(7))
}

func TestRowConversionRoundTrip(t *testing.T) {
	rec := sampleRecord("Tailored", time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	rec.ID = uuid.New()

	row, err := toRow(rec)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, row.ID)
	assert.JSONEq(t, `["P1"]`, extractJSON(t, row.OriginalResume, "patents"))

	back, err := fromRow(row)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.JobURL, back.JobURL)
	assert.Equal(t, rec.CreatedAt, back.CreatedAt)
	assert.Equal(t, "Tailored", back.Tailored.Summary)
	assert.Equal(t, []string{"Go", "Python"}, back.Original.Skills.Languages)
	assert.True(t, back.Original.Extra.Has("patents"))
}

func TestFromRowWithoutTailored(t *testing.T) {
	row := resumeRow{ID: uuid.New(), OriginalResume: []byte(`{"summary":"x"}`)}
	rec, err := fromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "x", rec.Original.Summary)
	assert.Empty(t, rec.Tailored.Summary)
}

func TestFromRowRejectsCorruptJSON(t *testing.T) {
	_, err := fromRow(resumeRow{ID: uuid.New(), OriginalResume: []byte(`not json`)})
	assert.Error(t, err)
}

// TestPostgresRepository runs against a live database when
// TEST_DATABASE_URL is set.
func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	repo, err := OpenPostgres(dsn)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	rec := sampleRecord("Tailored", time.Time{})
	require.NoError(t, repo.SaveResume(ctx, &rec))
	defer repo.DeleteResume(ctx, rec.ID)

	got, err := repo.GetResume(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tailored", got.Tailored.Summary)

	list, err := repo.ListResumes(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	require.NoError(t, repo.DeleteResume(ctx, rec.ID))
	_, err = repo.GetResume(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func extractJSON(t *testing.T, doc []byte, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc, &m))
	return string(m[key])
}
