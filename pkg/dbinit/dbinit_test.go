package dbinit

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEmbeddedMigrations verifies that all migration files are properly embedded
func TestEmbeddedMigrations(t *testing.T) {
	migrationFiles, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err, "Should be able to read embedded migrations directory")

	var foundFiles []string
	for _, file := range migrationFiles {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			foundFiles = append(foundFiles, file.Name())
		}
	}

	assert.Contains(t, foundFiles, "20250901000000_create_catalog.sql")
}

// TestMigrationContent verifies the catalog migration creates the expected schema
func TestMigrationContent(t *testing.T) {
	migrationContent, err := fs.ReadFile(migrations, "migrations/20250901000000_create_catalog.sql")
	require.NoError(t, err, "Should be able to read catalog migration")

	content := string(migrationContent)
	assert.Contains(t, content, "CREATE TABLE folders", "Migration should create the folders table")
	assert.Contains(t, content, "CREATE TABLE photos", "Migration should create the photos table")
	assert.Contains(t, content, "CREATE TABLE scan_jobs", "Migration should create the scan_jobs table")
	assert.Contains(t, content, "object_key TEXT NOT NULL UNIQUE",
		"Photos must be unique per object key for idempotent upserts")
	assert.Contains(t, content, "-- migrate:down", "Migration should be reversible")
}
