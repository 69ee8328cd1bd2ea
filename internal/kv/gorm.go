package kv

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/db"
)

type Entry struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     []byte    `gorm:"type:bytea" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Entry) TableName() string { return "automap_kv.entries" }

// Init ensures the kv schema and table exist.
func Init(d *gorm.DB) error {
	if err := db.EnsureSchema(d, "automap_kv"); err != nil {
		return err
	}
	return d.AutoMigrate(&Entry{})
}

// GormStore persists key-value entries in postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(d *gorm.DB) *GormStore {
	return &GormStore{db: d}
}

func (s *GormStore) Get(key string) ([]byte, bool, error) {
	var entry Entry
	err := s.db.First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (s *GormStore) Set(key string, value []byte) error {
	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&entry).Error
}

func (s *GormStore) Remove(key string) error {
	return s.db.Delete(&Entry{}, "key = ?", key).Error
}
