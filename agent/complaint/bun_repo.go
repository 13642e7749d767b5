package complaint

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

// BunRepo stores complaints in Postgres through bun.
type BunRepo struct {
	db *bun.DB
}

var _ Repository = (*BunRepo)(nil)

func NewBunRepo(db *bun.DB) *BunRepo {
	return &BunRepo{db: db}
}

func (r *BunRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().
		Model((*Record)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}
	_, err := r.db.NewCreateIndex().
		Model((*Record)(nil)).
		Index("idx_complaints_safety_risk_score").
		Column("safety_risk_score").
		IfNotExists().
		Exec(ctx)
	return err
}

func (r *BunRepo) Insert(ctx context.Context, rec *Record) error {
	_, err := r.db.NewInsert().Model(rec).Exec(ctx)
	return err
}

func (r *BunRepo) Get(ctx context.Context, id string) (*Record, error) {
	rec := new(Record)
	if err := r.db.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *BunRepo) List(ctx context.Context, limit int) ([]Record, error) {
	var out []Record
	if err := r.listQuery(&out, limit).Scan(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BunRepo) HighRisk(ctx context.Context, minSafety int, limit int) ([]Record, error) {
	var out []Record
	if err := r.highRiskQuery(&out, minSafety, limit).Scan(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BunRepo) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	var out []CategoryCount
	if err := r.categoryCountsQuery().Scan(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BunRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.db.NewSelect().Model((*Record)(nil)).Count(ctx)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (r *BunRepo) listQuery(dest *[]Record, limit int) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(dest).
		Order("created_at DESC").
		Limit(normalizeLimit(limit))
}

func (r *BunRepo) highRiskQuery(dest *[]Record, minSafety int, limit int) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(dest).
		Where("safety_risk_score >= ?", minSafety).
		Order("created_at DESC").
		Limit(normalizeLimit(limit))
}

func (r *BunRepo) categoryCountsQuery() *bun.SelectQuery {
	return r.db.NewSelect().
		Model((*Record)(nil)).
		Column("category").
		ColumnExpr("count(*) AS count").
		Group("category").
		OrderExpr("count DESC")
}
