// Package history stores finished calculations locally in SQLite.
package history

import (
	"context"
	"fmt"
	"time"

	"toolbox/internal/calculator"
	"toolbox/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Kinds of records.
const (
	KindFormula = "formula"
	KindBasic   = "basic"
)

// Record is one stored calculation.
type Record struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	Kind           string             `gorm:"not null;index" json:"kind"`
	FormulaID      string             `gorm:"index" json:"formulaId,omitempty"`
	FormulaName    string             `json:"formulaName,omitempty"`
	OutputVariable string             `json:"outputVariable,omitempty"`
	Inputs         map[string]float64 `gorm:"serializer:json" json:"inputs,omitempty"`
	Expression     string             `json:"expression,omitempty"`
	Result         float64            `json:"result"`
	CreatedAt      time.Time          `gorm:"index" json:"createdAt"`
}

// FromFormula converts a formula calculation.
func FromFormula(r models.CalculationResult) *Record {
	return &Record{
		Kind:           KindFormula,
		FormulaID:      string(r.FormulaID),
		FormulaName:    r.FormulaName,
		OutputVariable: r.OutputVariable,
		Inputs:         r.Inputs,
		Result:         r.Result,
		CreatedAt:      r.At,
	}
}

// FromBasic converts a basic calculator entry.
func FromBasic(e calculator.Entry, at time.Time) *Record {
	return &Record{Kind: KindBasic, Expression: e.Expression, Result: e.Result, CreatedAt: at}
}

// Repository defines calculation history operations.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context, kind string, limit int) ([]*Record, error)
	Clear(ctx context.Context) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository wraps an open database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Open opens (creating if needed) the SQLite file at path and migrates it.
// ":memory:" gives a throwaway database.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if path == ":memory:" {
		// each connection would get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open history db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return db, nil
}

func (r *repository) Create(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// List returns the newest records first. An empty kind lists every kind; a
// non-positive limit means no limit.
func (r *repository) List(ctx context.Context, kind string, limit int) ([]*Record, error) {
	var out []*Record
	q := r.db.WithContext(ctx).Order("created_at desc, id desc")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (r *repository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&Record{}).Error
}
