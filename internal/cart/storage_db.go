package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phonelife/storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStorage persists one session's cart as a row of cart_entries.
type DBStorage struct {
	conn      *gorm.DB
	namespace string
}

func NewDBStorage(conn *gorm.DB, sessionID string) *DBStorage {
	return &DBStorage{conn: conn, namespace: sessionID}
}

func (s *DBStorage) Read(ctx context.Context, key string) (string, bool, error) {
	var entry models.CartEntry
	err := s.conn.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cart entry: %w", err)
	}
	return entry.Value, true, nil
}

func (s *DBStorage) Write(ctx context.Context, key, value string) error {
	entry := models.CartEntry{
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	err := s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("upsert cart entry: %w", err)
	}
	return nil
}
