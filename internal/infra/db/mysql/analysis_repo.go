package mysql

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

// Save inserts an analysis record. Records are immutable: no upsert, a
// duplicate id is an error.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (id, owner_id, input_text, judgment, key_factors, tradeoffs, uncertainty, confidence, source, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?);
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

// Get fetches one record scoped to its owner.
func (r *AnalysisRepository) Get(ctx context.Context, owner string, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT ` + selectColumns + `
FROM analyses
WHERE owner_id=? AND id=?;
`
	return scanOne(r.db.QueryRowContext(ctx, q, owner, id))
}

// Latest returns the owner's most recent records, newest first.
func (r *AnalysisRepository) Latest(ctx context.Context, owner string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT ` + selectColumns + `
FROM analyses
WHERE owner_id=?
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

// Paginate returns a page of records ordered by created_at desc.
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
WHERE owner_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, owner, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

// Delete removes one record, owner-scoped.
func (r *AnalysisRepository) Delete(ctx context.Context, owner string, id domain.AnalysisID) error {
	const q = `DELETE FROM analyses WHERE owner_id=? AND id=?;`
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

// DeleteAll removes every record belonging to the owner and reports the count.
func (r *AnalysisRepository) DeleteAll(ctx context.Context, owner string) (int64, error) {
	const q = `DELETE FROM analyses WHERE owner_id=?;`
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

func scanOne(row *sql.Row) (*domain.Analysis, error) {
	a, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
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
