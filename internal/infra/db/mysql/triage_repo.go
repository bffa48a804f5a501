package mysql

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

// Save insert/update TriageEntry record
func (r *TriageRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO triage_entries
(id, tenant_id, subject_id, assessment_json, tier, status, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 assessment_json=VALUES(assessment_json),
 tier=VALUES(tier),
 status=VALUES(status),
 updated_at=VALUES(updated_at);
`
	assessment, err := json.Marshal(e.Assessment)
	if err != nil {
		return err
	}
	tenant := stringOrDash(e.TenantID)
	subject := stringOrDash(e.SubjectID)
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err = r.db.ExecContext(ctx, q,
		e.ID, tenant, subject, assessment,
		e.Tier.String(), e.Status, created, updated,
	)
	return err
}

// Get by ID + Tenant
func (r *TriageRepository) Get(ctx context.Context, tenant string, id domain.EntryID) (*domain.Entry, error) {
	const q = `
SELECT id, tenant_id, subject_id, assessment_json, tier, status, created_at, updated_at
FROM triage_entries
WHERE tenant_id=? AND id=? LIMIT 1;
`
	return scanEntry(r.db.QueryRowContext(ctx, q, tenant, id))
}

// FindActiveBySubject returns the subject's open/acknowledged entry, nil when none.
func (r *TriageRepository) FindActiveBySubject(ctx context.Context, tenant, subject string) (*domain.Entry, error) {
	const q = `
SELECT id, tenant_id, subject_id, assessment_json, tier, status, created_at, updated_at
FROM triage_entries
WHERE tenant_id=? AND subject_id=? AND status IN ('open','acknowledged')
ORDER BY created_at ASC LIMIT 1;
`
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, tenant, subject))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListActive returns the queue ordered by tier desc then creation time asc.
func (r *TriageRepository) ListActive(ctx context.Context, tenant string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, tenant_id, subject_id, assessment_json, tier, status, created_at, updated_at
FROM triage_entries
WHERE tenant_id=? AND status IN ('open','acknowledged')
ORDER BY FIELD(tier,'critical','high','moderate','low'), created_at ASC
LIMIT ?;
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

// UpdateStatus moves an entry to a new status
func (r *TriageRepository) UpdateStatus(ctx context.Context, tenant string, id domain.EntryID, status domain.Status) error {
	const q = `
UPDATE triage_entries SET status=?, updated_at=? WHERE tenant_id=? AND id=?;
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
