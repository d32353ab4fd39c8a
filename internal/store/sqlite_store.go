package store

import (
	"errors"
	"fmt"

	"github.com/ntkhang/classline/config"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type credential struct {
	Key   string `gorm:"primarykey"`
	Value string `gorm:"not null"`
}

// SQLiteStore keeps credentials in a small on-device sqlite database. Pair
// writes happen inside one transaction, which is the only atomicity the
// contract requires.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLite(cfg *config.Config) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Store.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening credential store at %s: %w", cfg.Store.Path, err)
	}
	if err := db.AutoMigrate(&credential{}); err != nil {
		return nil, fmt.Errorf("migrating credential store: %w", err)
	}
	log.Debug().Str("path", cfg.Store.Path).Msg("Credential store ready")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Tokens() (string, string, error) {
	access, err := s.get(authTokenKey)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.get(refreshTokenKey)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *SQLiteStore) get(key string) (string, error) {
	var row credential
	err := s.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading credential %q: %w", key, err)
	}
	return row.Value, nil
}

func (s *SQLiteStore) SaveTokens(access, refresh string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		rows := []credential{
			{Key: authTokenKey, Value: access},
			{Key: refreshTokenKey, Value: refresh},
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("persisting token pair: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear() error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&credential{}, "key IN ?", []string{authTokenKey, refreshTokenKey}).Error
	})
	if err != nil {
		return fmt.Errorf("clearing token pair: %w", err)
	}
	return nil
}
