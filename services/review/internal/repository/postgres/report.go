package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/pkg/database"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
)

// ReportRepository implements repository.ReportRepository using PostgreSQL.
type ReportRepository struct {
	pool database.DBTX
}

// NewReportRepository creates a new PostgreSQL-backed report repository.
func NewReportRepository(pool database.DBTX) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Create inserts a report. System reports are stored without a target.
func (r *ReportRepository) Create(ctx context.Context, rep *domain.StoredReport) error {
	query := `
		INSERT INTO reports (id, type, target_id, reason, message, severity, reporter_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var target *string
	if rep.Type.NeedsTarget() {
		target = &rep.TargetID
	}

	_, err := r.pool.Exec(ctx, query,
		rep.ID,
		string(rep.Type),
		target,
		rep.Reason,
		rep.Message,
		string(rep.Severity),
		rep.ReporterID,
		rep.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert report: %w", apperrors.ErrAlreadyExists)
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// List returns a page of reports, newest first.
func (r *ReportRepository) List(ctx context.Context, kind domain.ReportKind, offset, limit int) ([]domain.StoredReport, int, error) {
	query := `
		SELECT id, type, target_id, reason, message, severity, reporter_id, created_at,
		       count(*) OVER() AS total_count
		FROM reports
		WHERE ($1 = '' OR type = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, string(kind), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var (
		reports    = []domain.StoredReport{}
		totalCount int
	)
	for rows.Next() {
		var (
			rep    domain.StoredReport
			typ    string
			sev    string
			target *string
		)
		if err := rows.Scan(
			&rep.ID,
			&typ,
			&target,
			&rep.Reason,
			&rep.Message,
			&sev,
			&rep.ReporterID,
			&rep.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan report row: %w", err)
		}
		rep.Type = domain.ReportKind(typ)
		rep.Severity = domain.Severity(sev)
		if target != nil {
			rep.TargetID = *target
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate report rows: %w", err)
	}
	return reports, totalCount, nil
}
