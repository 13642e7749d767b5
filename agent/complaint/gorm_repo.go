package complaint

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormRepo stores complaints through gorm (sqlite or mysql).
type GormRepo struct {
	db *gorm.DB
}

var _ Repository = (*GormRepo)(nil)

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Record{})
}

func (r *GormRepo) Insert(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormRepo) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// List returns complaints newest first.
func (r *GormRepo) List(ctx context.Context, limit int) ([]Record, error) {
	var out []Record
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) HighRisk(ctx context.Context, minSafety int, limit int) ([]Record, error) {
	var out []Record
	if err := r.db.WithContext(ctx).
		Where("safety_risk_score >= ?", minSafety).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	var out []CategoryCount
	if err := r.db.WithContext(ctx).
		Model(&Record{}).
		Select("category, count(*) AS count").
		Group("category").
		Order("count DESC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Record{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
