package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/labelscan/labelscan/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts an analysis record. Records are immutable: no upsert.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (id, owner_id, input_text, judgment, key_factors, tradeoffs, uncertainty, confidence, source, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);
`
	factors, err := json.Marshal(a.KeyFactors)
	if err != nil {
		return err
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q,
		a.ID, a.OwnerID, a.InputText, a.Judgment, factors,
		a.Tradeoffs, a.Uncertainty, a.Confidence, a.Source, createdAt)
	return err
}

const selectColumns = `id, owner_id, input_text, judgment, key_factors, tradeoffs, uncertainty, confidence, source, created_at`

func (r *AnalysisRepository) Get(ctx context.Context, owner string, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT ` + selectColumns + `
FROM analyses
WHERE owner_id=$1 AND id=$2;
`
	a, err := scanRecord(r.db.QueryRowContext(ctx, q, owner, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AnalysisRepository) Latest(ctx context.Context, owner string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT ` + selectColumns + `
FROM analyses
WHERE owner_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *AnalysisRepository) Paginate(ctx context.Context, owner string, page, pageSize int) ([]*domain.Analysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT ` + selectColumns + `
FROM analyses
WHERE owner_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.db.QueryContext(ctx, q, owner, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *AnalysisRepository) Delete(ctx context.Context, owner string, id domain.AnalysisID) error {
	const q = `DELETE FROM analyses WHERE owner_id=$1 AND id=$2;`
	res, err := r.db.ExecContext(ctx, q, owner, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AnalysisRepository) DeleteAll(ctx context.Context, owner string) (int64, error) {
	const q = `DELETE FROM analyses WHERE owner_id=$1;`
	res, err := r.db.ExecContext(ctx, q, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var factors []byte
	var created time.Time
	if err := row.Scan(&a.ID, &a.OwnerID, &a.InputText, &a.Judgment, &factors,
		&a.Tradeoffs, &a.Uncertainty, &a.Confidence, &a.Source, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(factors, &a.KeyFactors); err != nil {
		return nil, err
	}
	a.CreatedAt = created
	return &a, nil
}

func scanAll(rows *sql.Rows) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
