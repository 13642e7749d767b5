package complaint

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("complaint not found")

const (
	HighRiskThreshold = 8
	StatusReceived    = "접수완료"
)

// Record is one persisted civil complaint. It is written once by the save
// tool and never updated.
type Record struct {
	bun.BaseModel `bun:"table:complaints,alias:c" gorm:"-" json:"-"`

	ID                      string    `bun:"id,pk" gorm:"primaryKey;type:varchar(36)" json:"id"`
	Summary                 string    `bun:"summary" gorm:"type:text" json:"summary"`
	OriginalText            string    `bun:"original_text" gorm:"type:text" json:"original_text"`
	Location                string    `bun:"location" gorm:"type:varchar(255)" json:"location"`
	Lat                     float64   `bun:"lat" json:"lat"`
	Lng                     float64   `bun:"lng" json:"lng"`
	Category                string    `bun:"category" gorm:"type:varchar(64);index" json:"category"`
	UrgencyScore            int       `bun:"urgency_score" json:"urgency_score"`
	SafetyRiskScore         int       `bun:"safety_risk_score" gorm:"index" json:"safety_risk_score"`
	InconvenienceScore      int       `bun:"inconvenience_score" json:"inconvenience_score"`
	VisualImpactScore       int       `bun:"visual_impact_score" json:"visual_impact_score"`
	SentimentScore          int       `bun:"sentiment_score" json:"sentiment_score"`
	EstimatedCost           string    `bun:"estimated_cost" gorm:"type:varchar(16)" json:"estimated_cost"`
	RequiredPersonnel       string    `bun:"required_personnel" gorm:"type:varchar(128)" json:"required_personnel"`
	LegalRisk               string    `bun:"legal_risk" gorm:"type:varchar(16)" json:"legal_risk"`
	ProbabilityOfEscalation float64   `bun:"probability_of_escalation" json:"probability_of_escalation"`
	DepartmentInCharge      string    `bun:"department_in_charge" gorm:"type:varchar(64)" json:"department_in_charge"`
	Status                  string    `bun:"status" gorm:"type:varchar(32)" json:"status"`
	CreatedAt               time.Time `bun:"created_at,notnull" gorm:"index" json:"created_at"`
}

func (Record) TableName() string { return "complaints" }

func (r Record) IsHighRisk() bool {
	return r.SafetyRiskScore >= HighRiskThreshold
}

type CategoryCount struct {
	Category string `bun:"category" json:"category"`
	Count    int64  `bun:"count" json:"count"`
}

// Sink is the narrow write side used by the save tool.
type Sink interface {
	Insert(ctx context.Context, rec *Record) error
}

// Repository is the full persistence surface used by the dashboard.
type Repository interface {
	Sink
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
	HighRisk(ctx context.Context, minSafety int, limit int) ([]Record, error)
	CategoryCounts(ctx context.Context) ([]CategoryCount, error)
	Count(ctx context.Context) (int64, error)
	Migrate(ctx context.Context) error
}

type Stats struct {
	Total      int64           `json:"total"`
	ByCategory []CategoryCount `json:"by_category"`
}

func Summarize(ctx context.Context, repo Repository) (Stats, error) {
	total, err := repo.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	counts, err := repo.CategoryCounts(ctx)
	if err != nil {
		return Stats{}, err
	}
	if counts == nil {
		counts = []CategoryCount{}
	}
	return Stats{Total: total, ByCategory: counts}, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
