package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoixa/image-helper/config"
	"github.com/anoixa/image-helper/database/models"
)

func TestNewDB_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "photos.db")
	db, err := NewDB(&config.Config{DBType: "sqlite", DBFilePath: path, DBMaxOpenConns: 1})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, AutoMigrate(db))
	assert.True(t, db.Migrator().HasTable(&models.Photo{}))
	assert.FileExists(t, path)
}

func TestNewDB_UnsupportedType(t *testing.T) {
	_, err := NewDB(&config.Config{DBType: "oracle"})
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "db",
		DBPort:     5433,
		DBUsername: "app",
		DBPassword: "secret",
		DBName:     "photos",
	}
	assert.Equal(t, "host=db port=5433 user=app password=secret dbname=photos sslmode=disable", PostgresDSN(cfg))

	_, target, err := dialectorFor(&config.Config{DBType: "PostgreSQL", DBHost: "db", DBPort: 5433, DBName: "photos"})
	require.NoError(t, err)
	assert.Equal(t, "db:5433/photos", target)
}
