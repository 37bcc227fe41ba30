package models

import "time"

// DispatchRecord is the durable log of one streaming job submission.
type DispatchRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Repo      string `gorm:"size:128;index"`
	Mode      string `gorm:"size:16"` // "standard" or "radio"
	MediaURL  string `gorm:"type:text"`
	OK        bool
	Message   string `gorm:"type:text"`
	CreatedAt time.Time
}
