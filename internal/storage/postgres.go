package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type resumeRow struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OriginalResume datatypes.JSON `gorm:"type:jsonb;not null"`
	TailoredResume datatypes.JSON `gorm:"type:jsonb"`
	JobURL         string         `gorm:"type:text"`
	CreatedAt      time.Time      `gorm:"index"`
}

func (resumeRow) TableName() string {
	return "resumes"
}

// GormRepository stores records in Postgres through gorm.
type GormRepository struct {
	db *gorm.DB
}

// OpenPostgres connects with dsn and migrates the resumes table.
func OpenPostgres(dsn string) (*GormRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewGormRepository(db)
}

func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	slog.Info("Running migrations", "component", "storage", "table", "resumes")
	if err := db.AutoMigrate(&resumeRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate resumes table: %w", err)
	}
	return &GormRepository{db: db}, nil
}

func (g *GormRepository) SaveResume(ctx context.Context, rec *ResumeRecord) error {
	prepare(rec)
	row, err := toRow(*rec)
	if err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save resume: %w", err)
	}
	return nil
}

func (g *GormRepository) GetResume(ctx context.Context, id uuid.UUID) (ResumeRecord, error) {
	var row resumeRow
	err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ResumeRecord{}, ErrNotFound
	}
	if err != nil {
		return ResumeRecord{}, fmt.Errorf("failed to load resume: %w", err)
	}
	return fromRow(row)
}

func (g *GormRepository) ListResumes(ctx context.Context, limit int) ([]ResumeRecord, error) {
	var rows []resumeRow
	err := g.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}

	out := make([]ResumeRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (g *GormRepository) DeleteResume(ctx context.Context, id uuid.UUID) error {
	res := g.db.WithContext(ctx).Delete(&resumeRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete resume: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormRepository) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(rec ResumeRecord) (resumeRow, error) {
	original, err := json.Marshal(rec.Original)
	if err != nil {
		return resumeRow{}, fmt.Errorf("encode original resume: %w", err)
	}
	tailored, err := json.Marshal(rec.Tailored)
	if err != nil {
		return resumeRow{}, fmt.Errorf("encode tailored resume: %w", err)
	}
	return resumeRow{
		ID:             rec.ID,
		OriginalResume: datatypes.JSON(original),
		TailoredResume: datatypes.JSON(tailored),
		JobURL:         rec.JobURL,
		CreatedAt:      rec.CreatedAt,
	}, nil
}

func fromRow(row resumeRow) (ResumeRecord, error) {
	rec := ResumeRecord{
		ID:        row.ID,
		JobURL:    row.JobURL,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.OriginalResume, &rec.Original); err != nil {
		return ResumeRecord{}, fmt.Errorf("decode original resume %s: %w", row.ID, err)
	}
	if len(row.TailoredResume) > 0 {
		if err := json.Unmarshal(row.TailoredResume, &rec.Tailored); err != nil {
			return ResumeRecord{}, fmt.Errorf("decode tailored resume %s: %w", row.ID, err)
		}
	}
	return rec, nil
}
