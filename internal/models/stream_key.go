// Package models defines the gorm persistence types for Skiff.
package models

import "time"

// StreamKey is a named stream destination suffix. The full push URL is the
// configured base address with the suffix appended.
type StreamKey struct {
	Name      string `gorm:"primaryKey;size:64"`
	Suffix    string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
