package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceCounter is a durable named counter. One row per stream, bumped under
// a row lock inside the caller's transaction so two concurrent writers can
// never mint the same number.
type SequenceCounter struct {
	Name      string    `json:"name" gorm:"primaryKey;size:32"`
	Current   int64     `json:"current" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	PaymentSequence        = "payment"
	ReconciliationSequence = "reconciliation"
)

// NextSequence increments and returns the named counter. Must run inside tx;
// the FOR UPDATE read serializes concurrent increments.
func NextSequence(tx *gorm.DB, name string) (int64, error) {
	var counter SequenceCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		counter = SequenceCounter{Name: name, Current: 0}
		if err := tx.Create(&counter).Error; err != nil {
			return 0, wrapStore("sequence create", err)
		}
	} else if err != nil {
		return 0, wrapStore("sequence read", err)
	}

	counter.Current++
	if err := tx.Model(&SequenceCounter{}).
		Where("name = ?", name).
		Update("current", counter.Current).Error; err != nil {
		return 0, wrapStore("sequence update", err)
	}
	return counter.Current, nil
}

// FormatSessionNumber renders a reconciliation sequence value as C-NNN.
func FormatSessionNumber(n int64) string {
	return fmt.Sprintf("C-%03d", n)
}
