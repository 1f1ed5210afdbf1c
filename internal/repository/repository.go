package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Syllabus) error
	GetByID(ctx context.Context, id string) (*models.Syllabus, error)
	List(ctx context.Context, limit, offset int) ([]models.Syllabus, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *models.Syllabus) error {
	query := `
		INSERT INTO syllabi (id, filename, file_size, content_type, s3_key, created_at, updated_at)
		VALUES (:id, :filename, :file_size, :content_type, :s3_key, :created_at, :updated_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return eris.Wrapf(err, "insert syllabus %s", s.ID)
	}
	return nil
}

// GetByID returns nil, nil when no syllabus has the id.
func (r *repository) GetByID(ctx context.Context, id string) (*models.Syllabus, error) {
	var s models.Syllabus

	query := `
		SELECT id, filename, file_size, content_type, s3_key, created_at, updated_at
		FROM syllabi
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &s, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get syllabus %s", id)
	}

	return &s, nil
}

// List returns syllabi newest first.
func (r *repository) List(ctx context.Context, limit, offset int) ([]models.Syllabus, error) {
	out := []models.Syllabus{}

	query := `
		SELECT id, filename, file_size, content_type, s3_key, created_at, updated_at
		FROM syllabi
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	if err := r.db.SelectContext(ctx, &out, query, limit, offset); err != nil {
		return nil, eris.Wrap(err, "list syllabi")
	}
	return out, nil
}
