// Package keys persists named stream destination suffixes.
package keys

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skiffbot/skiff/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store reads and writes StreamKey records. Every mutation is written
// through synchronously; there is no caching layer.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store.
func NewStore(gdb *gorm.DB) (*Store, error) {
	if gdb == nil {
		return nil, fmt.Errorf("keys: db is required")
	}
	return &Store{db: gdb}, nil
}

// Add inserts or updates a named key.
func (s *Store) Add(name, suffix string) error {
	rec := models.StreamKey{Name: name, Suffix: strings.TrimSpace(suffix)}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"suffix", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("keys: add %s: %w", name, err)
	}
	return nil
}

// Delete removes a named key. Returns false if the name was not present.
func (s *Store) Delete(name string) (bool, error) {
	res := s.db.Delete(&models.StreamKey{}, "name = ?", name)
	if res.Error != nil {
		return false, fmt.Errorf("keys: delete %s: %w", name, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Get returns the suffix for a named key, or "" and false if absent.
func (s *Store) Get(name string) (string, bool, error) {
	var rec models.StreamKey
	err := s.db.First(&rec, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("keys: get %s: %w", name, err)
	}
	return rec.Suffix, true, nil
}

// All returns every stored key in insertion order.
func (s *Store) All() ([]models.StreamKey, error) {
	var recs []models.StreamKey
	if err := s.db.Order("created_at, name").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("keys: list: %w", err)
	}
	return recs, nil
}

// Default returns the first-inserted key as the default destination. Which
// entry is "first" is an arbitrary tiebreak, not a guarantee callers should
// build on beyond "non-null whenever the store is non-empty".
func (s *Store) Default() (*models.StreamKey, error) {
	var rec models.StreamKey
	err := s.db.Order("created_at, name").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keys: default: %w", err)
	}
	return &rec, nil
}
