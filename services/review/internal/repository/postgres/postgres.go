// Package postgres implements the review service repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/pkg/database"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
)

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// toggleArrayMember is the SET expression shared by the like toggles: $1 is
// the user, and the array column is named likes.
const toggleArrayMember = `likes = CASE WHEN $1 = ANY(likes) THEN array_remove(likes, $1) ELSE array_append(likes, $1) END`

// marksQuery loads report marks for reviews or replies.
const marksQuery = `
	SELECT target_id, reporter_id, reason
	FROM reports
	WHERE type = $1 AND target_id = ANY($2)
	ORDER BY created_at`

// loadMarks returns the report marks of the given targets keyed by target id.
func loadMarks(ctx context.Context, db database.DBTX, kind domain.ReportKind, ids []string) (map[string][]domain.ReportMark, error) {
	marks := make(map[string][]domain.ReportMark)
	if len(ids) == 0 {
		return marks, nil
	}

	rows, err := db.Query(ctx, marksQuery, string(kind), ids)
	if err != nil {
		return nil, fmt.Errorf("list %s report marks: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			target string
			m      domain.ReportMark
		)
		if err := rows.Scan(&target, &m.User, &m.Reason); err != nil {
			return nil, fmt.Errorf("scan report mark: %w", err)
		}
		marks[target] = append(marks[target], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report marks: %w", err)
	}
	return marks, nil
}

// notFoundOr maps pgx.ErrNoRows to the not-found sentinel.
func notFoundOr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperrors.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
