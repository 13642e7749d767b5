package complaint

import (
	"context"
	"errors"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestRepo(t *testing.T) *GormRepo {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := NewGormRepo(db)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func seedRecord(id, category string, safety int, createdAt time.Time) *Record {
	return &Record{
		ID:              id,
		Summary:         "summary " + id,
		OriginalText:    "text " + id,
		Location:        "부산진구",
		Lat:             35.15,
		Lng:             129.05,
		Category:        category,
		UrgencyScore:    5,
		SafetyRiskScore: safety,
		Status:          StatusReceived,
		CreatedAt:       createdAt,
	}
}

func TestGormRepoInsertAndGet(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	rec := seedRecord("c-1", "도로/교통", 9, time.Now().UTC())
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.Get(ctx, "c-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Summary != rec.Summary || got.SafetyRiskScore != 9 {
		t.Fatalf("unexpected record: %#v", got)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGormRepoInsertDuplicateIDFails(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	if err := repo.Insert(ctx, seedRecord("dup", "소음", 3, time.Now())); err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	if err := repo.Insert(ctx, seedRecord("dup", "소음", 3, time.Now())); err == nil {
		t.Fatal("expected duplicate primary key error")
	}
}

func TestGormRepoHighRiskOrdering(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, rec := range []*Record{
		seedRecord("low", "소음", 3, base),
		seedRecord("old", "안전", 8, base.Add(time.Hour)),
		seedRecord("new", "도로/교통", 10, base.Add(2*time.Hour)),
	} {
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert(%s) error = %v", rec.ID, err)
		}
	}

	got, err := repo.HighRisk(ctx, HighRiskThreshold, 10)
	if err != nil {
		t.Fatalf("HighRisk() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 high risk records, got %d", len(got))
	}
	if got[0].ID != "new" || got[1].ID != "old" {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestSummarizeCountsByCategory(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, cat := range []string{"소음", "소음", "주차"} {
		rec := seedRecord(string(rune('a'+i)), cat, 2, now)
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	stats, err := Summarize(ctx, repo)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("Total = %d, want 3", stats.Total)
	}
	if len(stats.ByCategory) != 2 {
		t.Fatalf("expected 2 categories, got %#v", stats.ByCategory)
	}
	if stats.ByCategory[0].Category != "소음" || stats.ByCategory[0].Count != 2 {
		t.Fatalf("unexpected first bucket: %#v", stats.ByCategory[0])
	}
}

func TestSummarizeEmptyStore(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	stats, err := Summarize(context.Background(), repo)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if stats.Total != 0 || stats.ByCategory == nil || len(stats.ByCategory) != 0 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
