package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anoixa/image-helper/config"
	"github.com/anoixa/image-helper/database/models"
	"github.com/anoixa/image-helper/utils"
)

const defaultSQLitePath = "./data/image-helper.db"

// Models 带图片字段、需要迁移的模型
func Models() []interface{} {
	return []interface{}{
		&models.Photo{},
	}
}

// NewDB 按配置连接 SQLite 或 PostgreSQL
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, target, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      newGormLogger(),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database %s: %w", dialector.Name(), target, err)
	}

	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}

	utils.Logger.Debug().Str("driver", dialector.Name()).Str("target", target).Msg("database connected")
	return db, nil
}

// dialectorFor 选择驱动，target 用于日志，不含密码
func dialectorFor(cfg *config.Config) (gorm.Dialector, string, error) {
	switch strings.ToLower(cfg.DBType) {
	case "", "sqlite", "sqlite3":
		path := cfg.DBFilePath
		if path == "" {
			path = defaultSQLitePath
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, "", fmt.Errorf("failed to create database directory: %w", err)
		}
		return sqlite.Open(path + "?_journal_mode=WAL"), path, nil
	case "postgres", "postgresql":
		target := fmt.Sprintf("%s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
		return postgres.Open(PostgresDSN(cfg)), target, nil
	default:
		return nil, "", fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}
}

// PostgresDSN 由配置拼出 PostgreSQL 连接串
func PostgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUsername, cfg.DBPassword, cfg.DBName)
}

// gormWriter 把 GORM 的日志转给 zerolog
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	utils.Logger.Warn().Str("component", "gorm").Msgf(strings.TrimSpace(format), args...)
}

func newGormLogger() logger.Interface {
	level := logger.Silent
	if config.IsDevelopment() {
		level = logger.Warn
	}
	return logger.New(gormWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// configurePool 只覆盖配置了正值的连接池参数
func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Second)
	}
	return nil
}

// AutoMigrate 迁移给定模型，未指定时迁移 Models()
func AutoMigrate(db *gorm.DB, dst ...interface{}) error {
	if len(dst) == 0 {
		dst = Models()
	}
	return db.AutoMigrate(dst...)
}

// Close 关闭数据库连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
