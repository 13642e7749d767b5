package complaint

import (
	"context"
	"fmt"
	"io"

	databasex "github.com/tanpawarit/Busan-Civil-Complaint-Agent/pkg/database"
)

// Open picks the repository implementation for the configured driver and
// migrates the schema.
func Open(ctx context.Context, cfg databasex.Config) (Repository, io.Closer, error) {
	var (
		repo   Repository
		closer io.Closer
	)

	switch cfg.NormalizedDriver() {
	case databasex.DriverPostgres:
		db, err := databasex.OpenBun(cfg)
		if err != nil {
			return nil, nil, err
		}
		repo, closer = NewBunRepo(db), db
	default:
		db, err := databasex.OpenGorm(cfg)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		repo, closer = NewGormRepo(db), sqlDB
	}

	if err := repo.Migrate(ctx); err != nil {
		_ = closer.Close()
		return nil, nil, fmt.Errorf("migrate complaints: %w", err)
	}
	return repo, closer, nil
}
