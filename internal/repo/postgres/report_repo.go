package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
)

var ErrReportNotFound = errors.New("report not found")

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

const reportColumns = `id, reporter_user_id, target_user_id, reason, status, created_at`

func (r *ReportRepo) Create(ctx context.Context, reporterID, targetID int64, reason string) (model.Report, error) {
	if reporterID <= 0 || targetID <= 0 || reporterID == targetID {
		return model.Report{}, fmt.Errorf("invalid report payload")
	}
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO reports (
	reporter_user_id,
	target_user_id,
	reason,
	status,
	created_at
) VALUES ($1, $2, $3, 'pending', NOW())
RETURNING `+reportColumns+`
`, reporterID, targetID, strings.TrimSpace(reason))

	report, err := scanReport(row)
	if err != nil {
		return model.Report{}, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

// CountAgainst returns how many reports the target has accumulated,
// regardless of review status. The auto hide threshold reads this.
func (r *ReportRepo) CountAgainst(ctx context.Context, targetID int64) (int, error) {
	if targetID <= 0 {
		return 0, fmt.Errorf("invalid target id")
	}
	if r.pool == nil {
		return 0, nil
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM reports
WHERE target_user_id = $1
`, targetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reports against user: %w", err)
	}

	return count, nil
}

func (r *ReportRepo) ListByStatus(ctx context.Context, status enums.ReportStatus, limit int) ([]model.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []model.Report{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+reportColumns+`
FROM reports
WHERE status = $1
ORDER BY created_at ASC, id ASC
LIMIT $2
`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]model.Report, 0, limit)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reports: %w", rows.Err())
	}

	return reports, nil
}

func (r *ReportRepo) UpdateStatus(ctx context.Context, reportID int64, status enums.ReportStatus) (model.Report, error) {
	if reportID <= 0 {
		return model.Report{}, fmt.Errorf("invalid report id")
	}
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
UPDATE reports
SET status = $2
WHERE id = $1
RETURNING `+reportColumns+`
`, reportID, string(status))

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return model.Report{}, ErrReportNotFound
		}
		return model.Report{}, fmt.Errorf("update report status: %w", err)
	}
	return report, nil
}

func scanReport(row pgx.Row) (model.Report, error) {
	var report model.Report
	var status string
	err := row.Scan(
		&report.ID,
		&report.ReporterID,
		&report.TargetID,
		&report.Reason,
		&status,
		&report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Report{}, ErrReportNotFound
		}
		return model.Report{}, err
	}

	report.Status, _ = enums.ParseReportStatus(status)
	return report, nil
}
