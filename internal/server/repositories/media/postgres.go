package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/dbx"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/models"
)

const recordColumns = `id, report_id, device_id, kind, mime_type, byte_size, content_digest,
	storage_key, captured_at, caption, gps, duration_seconds, transcription, created_at`

// PostgresRepository implements media record storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a verified record. Uniqueness violations are mapped onto
// the shared sentinels so the service layer can distinguish a same-id replay
// from a same-content duplicate.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.MediaRecord) error {
	query := `
		INSERT INTO media_records
			(id, report_id, device_id, kind, mime_type, byte_size, content_digest,
			 storage_key, captured_at, caption, gps, duration_seconds, transcription)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.ReportID, rec.DeviceID, rec.Kind, rec.MimeType, rec.ByteSize,
		rec.ContentDigest, rec.StorageKey, rec.CapturedAt,
		rec.Caption, rec.GPS, rec.DurationSeconds, rec.Transcription)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "media_records_report_digest_uniq" {
				return common.ErrDuplicateContent
			}
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanRecord(row *sql.Row) (*models.MediaRecord, error) {
	var rec models.MediaRecord
	err := row.Scan(
		&rec.ID, &rec.ReportID, &rec.DeviceID, &rec.Kind, &rec.MimeType, &rec.ByteSize,
		&rec.ContentDigest, &rec.StorageKey, &rec.CapturedAt,
		&rec.Caption, &rec.GPS, &rec.DurationSeconds, &rec.Transcription, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &rec, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM media_records WHERE id = $1`
	return r.scanRecord(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByReportAndDigest(ctx context.Context, reportID, digest string) (*models.MediaRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM media_records WHERE report_id = $1 AND content_digest = $2`
	return r.scanRecord(r.db.QueryRowContext(ctx, query, reportID, digest))
}

func (r *PostgresRepository) ListByReport(ctx context.Context, reportID string) ([]*models.MediaRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM media_records WHERE report_id = $1 ORDER BY captured_at DESC`
	rows, err := r.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to select media records: %w", err)
	}
	defer rows.Close()

	var result []*models.MediaRecord
	for rows.Next() {
		var rec models.MediaRecord
		if err := rows.Scan(
			&rec.ID, &rec.ReportID, &rec.DeviceID, &rec.Kind, &rec.MimeType, &rec.ByteSize,
			&rec.ContentDigest, &rec.StorageKey, &rec.CapturedAt,
			&rec.Caption, &rec.GPS, &rec.DurationSeconds, &rec.Transcription, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
