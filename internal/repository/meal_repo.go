package repository

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/foodlens/internal/domain"
	"gorm.io/gorm"
)

// ErrUnavailable is returned when the database cannot be reached. Callers
// decide whether that degrades the response or fails it.
var ErrUnavailable = errors.New("database not connected")

const readyTimeout = 2 * time.Second

// MealRepository is the durable meal history log. Every operation checks
// connection readiness first so a database outage is detected up front
// instead of surfacing as a driver-specific error mid-query.
type MealRepository struct {
	db *gorm.DB
}

// NewMealRepository creates a repository bound to db. A nil db yields a
// repository that reports unavailable for every operation.
func NewMealRepository(db *gorm.DB) *MealRepository {
	return &MealRepository{db: db}
}

// Ready reports whether the underlying database connection is usable.
func (r *MealRepository) Ready(ctx context.Context) bool {
	if r == nil || r.db == nil {
		return false
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	return sqlDB.PingContext(pingCtx) == nil
}

// Create appends a meal record.
func (r *MealRepository) Create(ctx context.Context, meal *domain.Meal) error {
	if !r.Ready(ctx) {
		return ErrUnavailable
	}
	return r.db.WithContext(ctx).Create(meal).Error
}

// ListRecent returns at most limit meals, newest first.
func (r *MealRepository) ListRecent(ctx context.Context, limit int) ([]domain.Meal, error) {
	if !r.Ready(ctx) {
		return nil, ErrUnavailable
	}
	var meals []domain.Meal
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&meals).Error; err != nil {
		return nil, err
	}
	return meals, nil
}

// DeleteAll removes every meal record and returns the number deleted.
func (r *MealRepository) DeleteAll(ctx context.Context) (int64, error) {
	if !r.Ready(ctx) {
		return 0, ErrUnavailable
	}
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.Meal{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
