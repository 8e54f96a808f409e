package sqlstore

import (
	"context"
	"sync"
	"time"

	"github.com/caesium-cloud/jobassist/internal/event"
	"github.com/caesium-cloud/jobassist/internal/store"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Item is one key/value row. Values are JSON documents.
type Item struct {
	Key       string         `gorm:"column:item_key;primaryKey;size:255"`
	Value     datatypes.JSON `gorm:"column:value;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

// TableName implements gorm's tabler interface.
func (Item) TableName() string {
	return "kv_items"
}

// Store is a store.Store persisted through gorm. It runs on the
// sqlite and postgres dialectors.
type Store struct {
	db    *gorm.DB
	quota int64
	bus   event.Bus

	// writeMu serializes quota accounting with the write it guards.
	writeMu sync.Mutex
}

// New migrates the kv_items table and returns a store enforcing quota
// bytes. A quota <= 0 disables enforcement.
func New(db *gorm.DB, quota int64) (*Store, error) {
	if err := db.AutoMigrate(&Item{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate kv_items")
	}
	if quota < 0 {
		quota = 0
	}
	return &Store{db: db, quota: quota, bus: event.New()}, nil
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var items []Item
	if err := s.db.WithContext(ctx).Where("item_key IN ?", keys).Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "failed to read items")
	}

	for _, item := range items {
		out[item.Key] = []byte(item.Value)
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	keys := make([]string, 0, len(items))
	rows := make([]Item, 0, len(items))
	var incoming int64
	for key, value := range items {
		keys = append(keys, key)
		rows = append(rows, Item{Key: key, Value: datatypes.JSON(value), UpdatedAt: now})
		incoming += store.ItemSize(key, value)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.quota > 0 {
			used, err := s.bytesInUse(tx)
			if err != nil {
				return err
			}

			var existing []Item
			if err := tx.Where("item_key IN ?", keys).Find(&existing).Error; err != nil {
				return errors.Wrap(err, "failed to read replaced items")
			}
			for _, item := range existing {
				used -= store.ItemSize(item.Key, item.Value)
			}

			if used+incoming > s.quota {
				return store.ErrQuotaExceeded
			}
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			return err
		}
		return errors.Wrap(err, "failed to write items")
	}

	s.bus.Publish(event.Event{Type: event.TypeItemsSet, Keys: keys})
	return nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := s.db.WithContext(ctx).Where("item_key IN ?", keys).Delete(&Item{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to remove items")
	}

	if res.RowsAffected > 0 {
		s.bus.Publish(event.Event{Type: event.TypeItemsRemoved, Keys: keys})
	}
	return nil
}

func (s *Store) BytesInUse(ctx context.Context) (int64, error) {
	return s.bytesInUse(s.db.WithContext(ctx))
}

func (s *Store) QuotaBytes() int64 {
	return s.quota
}

// Subscribe streams change events until ctx is done.
func (s *Store) Subscribe(ctx context.Context) (<-chan event.Event, error) {
	return s.bus.Subscribe(ctx, event.Filter{})
}

func (s *Store) bytesInUse(tx *gorm.DB) (int64, error) {
	var used int64
	row := tx.Model(&Item{}).Select(s.sizeExpr()).Row()
	if err := row.Scan(&used); err != nil {
		return 0, errors.Wrap(err, "failed to measure bytes in use")
	}
	return used, nil
}

// sizeExpr returns a SQL expression summing key and value byte lengths.
// Postgres uses octet_length over the text form of the JSON value,
// sqlite measures the blob cast of each column.
func (s *Store) sizeExpr() string {
	if s.db.Dialector.Name() == "postgres" {
		return "COALESCE(SUM(octet_length(item_key) + octet_length(value::text)), 0)"
	}
	return "COALESCE(SUM(LENGTH(CAST(item_key AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0)"
}
