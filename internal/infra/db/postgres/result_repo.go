package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/aulianza/mindsignal/internal/domain/analysis"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Save appends a completed analysis result (append-only table)
func (r *ResultRepository) Save(ctx context.Context, res *domain.AnalysisResult) error {
	const q = `
INSERT INTO analysis_results
  (id, tenant_id, subject_id, submitted_at, assessment_json, tier,
   recommended_json, outcomes_json, escalated, triage_entry_id, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);
`
	assessment, err := json.Marshal(res.Assessment)
	if err != nil {
		return err
	}
	recommended, err := json.Marshal(res.Recommended)
	if err != nil {
		return err
	}
	outcomes, err := json.Marshal(res.Outcomes)
	if err != nil {
		return err
	}
	submitted := res.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q,
		res.ID, stringOrDash(res.TenantID), stringOrDash(res.SubjectID), submitted,
		assessment, res.Tier.String(), recommended, outcomes,
		res.Escalated, res.TriageEntryID, res.DurationMS,
	)
	return err
}

// Latest results per tenant ordered by submission time desc
func (r *ResultRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.AnalysisResult, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, subject_id, submitted_at, assessment_json, tier,
       recommended_json, outcomes_json, escalated, triage_entry_id, duration_ms
FROM analysis_results
WHERE tenant_id=$1 ORDER BY submitted_at DESC, id DESC LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AnalysisResult
	for rows.Next() {
		var res domain.AnalysisResult
		var assessment, recommended, outcomes []byte
		var tier string
		var entryID sql.NullString
		if err := rows.Scan(
			&res.ID, &res.TenantID, &res.SubjectID, &res.SubmittedAt,
			&assessment, &tier, &recommended, &outcomes,
			&res.Escalated, &entryID, &res.DurationMS,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(assessment, &res.Assessment); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(recommended, &res.Recommended); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(outcomes, &res.Outcomes); err != nil {
			return nil, err
		}
		res.Tier = domain.TierFromString(tier)
		res.TierLabel = tier
		res.TriageEntryID = entryID.String
		out = append(out, &res)
	}
	return out, rows.Err()
}
