// Package config loads the settings of the address book service.
//
// Settings are taken from environment variables. If the variable CONFIG names a YAML file then
// that file is read first and the environment overrides its values.
//
// Usage example:
//
//	> PORT=8080 DBHOST=localhost DBUSER=dirk DBPWD=bullo92 BACKUP_DIR=data go run ./cmd/service
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all settings of the service.
type Config struct {
	Port string

	DBDriver   string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	GinLogging string
	LogLevel   string

	BackupDir      string
	BackupFile     string
	DeleteAllScope store.DeleteScope
	PasswordCost   int
}

// envBindings maps configuration keys to the environment variables that set them.
var envBindings = map[string]string{
	"port":             "PORT",
	"db.driver":        "DBDRIVER",
	"db.host":          "DBHOST",
	"db.user":          "DBUSER",
	"db.password":      "DBPWD",
	"db.name":          "DBNAME",
	"db.path":          "DBPATH",
	"gin_logging":      "GIN_LOGGING",
	"log_level":        "LOG_LEVEL",
	"backup.dir":       "BACKUP_DIR",
	"backup.file":      "BACKUP_FILE",
	"delete_all_scope": "DELETE_ALL_SCOPE",
	"password_cost":    "PASSWORD_COST",
	"config":           "CONFIG",
}

// Load reads the configuration from the optional config file and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("db.driver", store.DriverMySQL)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.name", "test")
	v.SetDefault("db.path", "address-book.db")
	v.SetDefault("gin_logging", "on")
	v.SetDefault("log_level", "info")
	v.SetDefault("backup.dir", "data")
	v.SetDefault("backup.file", "address_book_backup.json")
	v.SetDefault("delete_all_scope", string(store.DeleteOwn))
	v.SetDefault("password_cost", bcrypt.DefaultCost)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	scope, err := store.ParseDeleteScope(v.GetString("delete_all_scope"))
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Port:           v.GetString("port"),
		DBDriver:       v.GetString("db.driver"),
		DBHost:         v.GetString("db.host"),
		DBUser:         v.GetString("db.user"),
		DBPassword:     v.GetString("db.password"),
		DBName:         v.GetString("db.name"),
		DBPath:         v.GetString("db.path"),
		GinLogging:     v.GetString("gin_logging"),
		LogLevel:       v.GetString("log_level"),
		BackupDir:      v.GetString("backup.dir"),
		BackupFile:     v.GetString("backup.file"),
		DeleteAllScope: scope,
		PasswordCost:   v.GetInt("password_cost"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("could not parse PORT %q: %w", c.Port, err)
	}
	if c.DBDriver != store.DriverMySQL && c.DBDriver != store.DriverSQLite {
		return fmt.Errorf("unsupported DBDRIVER %q", c.DBDriver)
	}
	if c.BackupDir == "" {
		return errors.New("BACKUP_DIR must not be empty")
	}
	if c.PasswordCost < bcrypt.MinCost || c.PasswordCost > bcrypt.MaxCost {
		return fmt.Errorf("PASSWORD_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// RequestLogging returns false if HTTP request logging has been turned off.
func (c *Config) RequestLogging() bool {
	return !strings.EqualFold(c.GinLogging, "off")
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == store.DriverSQLite {
		return c.DBPath
	}
	mysqlConfig := mysql.NewConfig()
	mysqlConfig.User = c.DBUser
	mysqlConfig.Passwd = c.DBPassword
	mysqlConfig.Net = "tcp"
	mysqlConfig.Addr = c.DBHost
	mysqlConfig.DBName = c.DBName
	mysqlConfig.ParseTime = true
	return mysqlConfig.FormatDSN()
}
