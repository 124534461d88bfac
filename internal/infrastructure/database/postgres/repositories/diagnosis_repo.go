package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

const (
	upsertDiagnosisSQL = `
		INSERT INTO diagnoses (id, status, query_hash, report, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			query_hash = EXCLUDED.query_hash,
			report = EXCLUDED.report`

	getDiagnosisSQL = `SELECT report, report_key FROM diagnoses WHERE id = $1`

	listDiagnosesSQL = `
		SELECT id, status, report_key, created_at
		FROM diagnoses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	setReportKeySQL = `UPDATE diagnoses SET report_key = $2 WHERE id = $1`
)

// DiagnosisSummary is one row of the diagnosis history.
type DiagnosisSummary struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	ReportKey string    `json:"report_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DiagnosisRepository stores finished reports as JSONB.
type DiagnosisRepository struct {
	db     DBTX
	logger logging.Logger
}

func NewDiagnosisRepository(db DBTX, log logging.Logger) *DiagnosisRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DiagnosisRepository{db: db, logger: log.Named("diagnosis_repo")}
}

// Save inserts or replaces the report. The id must be a UUID.
func (r *DiagnosisRepository) Save(ctx context.Context, report *diagnosis.Report) error {
	if report == nil || report.ID == "" {
		return errors.New(errors.ErrCodeValidation, "report id is required")
	}
	body, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode report")
	}
	created := report.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err = r.db.Exec(ctx, upsertDiagnosisSQL,
		report.ID, report.Status.String(), diagnosis.QueryHash(report.SearchQuery), body, created)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save diagnosis").WithDetail(report.ID)
	}
	return nil
}

func (r *DiagnosisRepository) Get(ctx context.Context, id string) (*diagnosis.Report, error) {
	var (
		body []byte
		key  string
	)
	if err := r.db.QueryRow(ctx, getDiagnosisSQL, id).Scan(&body, &key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeDiagnosisNotFound, "diagnosis not found").WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load diagnosis").WithDetail(id)
	}

	var report diagnosis.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode stored report").WithDetail(id)
	}
	return &report, nil
}

// List returns summaries, newest first.
func (r *DiagnosisRepository) List(ctx context.Context, limit, offset int) ([]DiagnosisSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, listDiagnosesSQL, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list diagnoses")
	}
	defer rows.Close()

	out := []DiagnosisSummary{}
	for rows.Next() {
		var s DiagnosisSummary
		if err := rows.Scan(&s.ID, &s.Status, &s.ReportKey, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan diagnosis")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list diagnoses")
	}
	return out, nil
}

// SetReportKey records where the rendered report was uploaded.
func (r *DiagnosisRepository) SetReportKey(ctx context.Context, id, key string) error {
	tag, err := r.db.Exec(ctx, setReportKeySQL, id, key)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update report key").WithDetail(id)
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeDiagnosisNotFound, "diagnosis not found").WithDetail(id)
	}
	r.logger.Debug("report key recorded", logging.String("diagnosis_id", id), logging.String("key", key))
	return nil
}
