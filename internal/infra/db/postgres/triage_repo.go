package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/aulianza/mindsignal/internal/domain/analysis"
	domain "github.com/aulianza/mindsignal/internal/domain/triage"
)

type TriageRepository struct {
	db *sql.DB
}

func NewTriageRepository(db *sql.DB) *TriageRepository {
	return &TriageRepository{db: db}
}

// Save inserts or updates a triage entry
func (r *TriageRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO triage_entries
  (id, tenant_id, subject_id, assessment_json, tier, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  assessment_json=EXCLUDED.assessment_json,
  tier=EXCLUDED.tier,
  status=EXCLUDED.status,
  updated_at=EXCLUDED.updated_at;
`
	assessment, err := json.Marshal(e.Assessment)
	if err != nil {
		return err
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err = r.db.ExecContext(ctx, q,
		e.ID, stringOrDash(e.TenantID), stringOrDash(e.SubjectID), assessment,
		e.Tier.String(), e.Status, created, updated,
	)
	return err
}

func (r *TriageRepository) Get(ctx context.Context, tenant string, id domain.EntryID) (*domain.Entry, error) {
	const q = `
SELECT id, tenant_id, subject_id, assessment_json, tier, status, created_at, updated_at
FROM triage_entries
WHERE tenant_id=$1 AND id=$2 LIMIT 1;
`
	return scanEntry(r.db.QueryRowContext(ctx, q, tenant, id))
}

func (r *TriageRepository) FindActiveBySubject(ctx context.Context, tenant, subject string) (*domain.Entry, error) {
	const q = `
SELECT id, tenant_id, subject_id, assessment_json, tier, status, created_at, updated_at
FROM triage_entries
WHERE tenant_id=$1 AND subject_id=$2 AND status IN ('open','acknowledged')
ORDER BY created_at ASC LIMIT 1;
`
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, tenant, subject))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *TriageRepository) ListActive(ctx context.Context, tenant string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, tenant_id, subject_id, assessment_json, tier, status, created_at, updated_at
FROM triage_entries
WHERE tenant_id=$1 AND status IN ('open','acknowledged')
ORDER BY CASE tier
  WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'moderate' THEN 2 ELSE 3
END, created_at ASC
LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *TriageRepository) UpdateStatus(ctx context.Context, tenant string, id domain.EntryID, status domain.Status) error {
	const q = `
UPDATE triage_entries SET status=$1, updated_at=$2 WHERE tenant_id=$3 AND id=$4;
`
	res, err := r.db.ExecContext(ctx, q, status, time.Now(), tenant, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var e domain.Entry
	var assessment []byte
	var tier string
	if err := row.Scan(
		&e.ID, &e.TenantID, &e.SubjectID, &assessment,
		&tier, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(assessment, &e.Assessment); err != nil {
		return nil, err
	}
	e.Tier = analysis.TierFromString(tier)
	e.TierLabel = tier
	return &e, nil
}
