package models

import "time"

// CartEntry is one persisted key/value pair of a session's durable cart storage.
type CartEntry struct {
	Namespace string    `gorm:"column:namespace;primaryKey;size:128"`
	Key       string    `gorm:"column:entry_key;primaryKey;size:128"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartEntry) TableName() string {
	return "cart_entries"
}
