package models

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NecessityCodeSeries backs the sequential human-readable code, one row per
// year. The row is locked FOR UPDATE inside the generation transaction so
// two commits can never take the same number.
type NecessityCodeSeries struct {
	ID         int `gorm:"primary_key" json:"id"`
	Year       int `gorm:"uniqueIndex;not null" json:"year"`
	LastNumber int `gorm:"not null;default:0" json:"last_number"`
}

// NextNecessityCode allocates the next NEC-YYYY-NNNN code for the year.
// Must run inside the caller's transaction.
func NextNecessityCode(tx *gorm.DB, ctx context.Context, year int) (string, error) {
	var series NecessityCodeSeries
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ?", year).
		First(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		series = NecessityCodeSeries{Year: year, LastNumber: 0}
		if err := tx.WithContext(ctx).Create(&series).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	series.LastNumber++
	if err := tx.WithContext(ctx).Model(&NecessityCodeSeries{}).
		Where("id = ?", series.ID).
		Update("last_number", series.LastNumber).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("NEC-%d-%04d", year, series.LastNumber), nil
}
