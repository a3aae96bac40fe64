package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"examsim-server/config"
	"examsim-server/models"
)

// ErrNotFound is returned when an exam set id is not stored.
var ErrNotFound = errors.New("exam set not found")

// Store keeps assembled exam sets and the operational logs shown on the
// admin dashboard.
type Store interface {
	SaveExamSet(ctx context.Context, set *models.ExamSet) error
	GetExamSet(ctx context.Context, id string) (*models.ExamSet, error)
	ListExamSets(ctx context.Context, limit int) ([]models.ExamSetInfo, error)

	// LogError and LogAdminEvent never fail the caller; storage errors are logged.
	LogError(ctx context.Context, source, section, errMsg, detail string)
	LogAdminEvent(ctx context.Context, actor, action, target, notes string)
	RecentErrors(ctx context.Context, limit int) ([]models.ErrorLog, error)
	RecentAdminEvents(ctx context.Context, limit int) ([]models.AdminEvent, error)

	Close() error
}

// Open connects to the store selected by cfg.Driver and ensures its schema.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Driver {
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return OpenSQLite(ctx, cfg.DatabaseURL)
	case "redis":
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisTTL)
	}
	return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
}

func infoOf(set *models.ExamSet) models.ExamSetInfo {
	return models.ExamSetInfo{
		ID:        set.ID,
		CreatedAt: set.CreatedAt,
		Status:    set.Status,
		Questions: len(set.Questions),
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}

func logStoreFailure(what string, err error, detail string) {
	log.Printf("ERROR: Failed to record %s: %v. Original: %s", what, err, detail)
}
