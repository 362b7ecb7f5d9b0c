package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/awfufu/go-dstbot/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrDisabled = errors.New("audit log disabled")

// ControlLog is one call made to a control daemon.
type ControlLog struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement;column:id"`
	Server   string    `gorm:"not null;column:server;index"`
	Verb     string    `gorm:"not null;column:verb"`
	UserID   string    `gorm:"not null;column:user_id;index"`
	UserName string    `gorm:"column:user_name"`
	Ret      int       `gorm:"not null;column:ret"`
	Info     string    `gorm:"column:info"`
	Time     time.Time `gorm:"not null;column:time;index"`
}

func (ControlLog) TableName() string {
	return "control_logs"
}

// Store wraps the audit database. A nil *Store is valid and behaves as a
// disabled log.
type Store struct {
	db *gorm.DB
}

func Open(cfg config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	if cfg.Driver == "sqlite" {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := gdb.AutoMigrate(&ControlLog{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: gdb}, nil
}

func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

func (s *Store) SaveControlLog(entry *ControlLog) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	return s.db.Create(entry).Error
}

// RecentControlLogs returns up to limit entries for server, newest first.
func (s *Store) RecentControlLogs(server string, limit int) ([]ControlLog, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	var logs []ControlLog
	err := s.db.Where("server = ?", server).
		Order("time DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
