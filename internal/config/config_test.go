package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
)

// clearEnv makes sure that the environment of the developer does not leak into the tests.
func clearEnv(t *testing.T) {
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, store.DriverMySQL, cfg.DBDriver)
	assert.Equal(t, "test", cfg.DBName)
	assert.Equal(t, "data", cfg.BackupDir)
	assert.Equal(t, "address_book_backup.json", cfg.BackupFile)
	assert.Equal(t, store.DeleteOwn, cfg.DeleteAllScope)
	assert.True(t, cfg.RequestLogging())
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DBDRIVER", "sqlite")
	t.Setenv("DBPATH", ":memory:")
	t.Setenv("GIN_LOGGING", "OFF")
	t.Setenv("BACKUP_DIR", "/var/backups/contacts")
	t.Setenv("BACKUP_FILE", "backup.json")
	t.Setenv("DELETE_ALL_SCOPE", "all")
	t.Setenv("PASSWORD_COST", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, store.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, ":memory:", cfg.DSN())
	assert.False(t, cfg.RequestLogging())
	assert.Equal(t, "/var/backups/contacts", cfg.BackupDir)
	assert.Equal(t, "backup.json", cfg.BackupFile)
	assert.Equal(t, store.DeleteEverything, cfg.DeleteAllScope)
	assert.Equal(t, 4, cfg.PasswordCost)
}

// TestLoadFromFile expects values from the config file, overridden by the environment.
func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7070"
db:
  host: db.example.com:3306
  user: dirk
  name: contacts
backup:
  dir: /srv/backups
`), 0o644))
	t.Setenv("CONFIG", path)
	t.Setenv("DBPWD", "bullo92")
	t.Setenv("PORT", "6060")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Port)
	assert.Equal(t, "/srv/backups", cfg.BackupDir)
	dsn := cfg.DSN()
	assert.Contains(t, dsn, "dirk:bullo92@tcp(db.example.com:3306)/contacts")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"PORT":             "eighty",
		"DBDRIVER":         "postgres",
		"DELETE_ALL_SCOPE": "everyone",
		"PASSWORD_COST":    "99",
	}
	for env, value := range tests {
		t.Run(env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(env, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
