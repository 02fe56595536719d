package store

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when no contact with the requested id exists.
	ErrNotFound = errors.New("contact not found")

	// ErrForbidden is returned when the caller does not own the contact.
	ErrForbidden = errors.New("contact belongs to another user")

	// ErrDuplicateKey is returned when a phone number or username is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
)

// mysqlDuplicateEntry is the MySQL server error number for a violated unique index.
const mysqlDuplicateEntry = 1062

// ValidationError reports malformed or missing values. Fields maps the JSON name of every
// offending value to a human readable message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// check validates the struct and converts validator errors into a ValidationError.
func (s *Store) check(value any) error {
	err := s.validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("validate: %w", err)
	}
	validationError := &ValidationError{Fields: make(map[string]string, len(fieldErrors))}
	for _, fieldError := range fieldErrors {
		validationError.Fields[fieldError.Field()] = describe(fieldError)
	}
	return validationError
}

func describe(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fieldError.Param() + " characters long"
	case "min":
		return "must be at least " + fieldError.Param() + " characters long"
	case "number":
		return "must contain digits only"
	case "email":
		return "must be a valid email address"
	case "excludesall":
		return "contains forbidden characters"
	}
	return "is invalid"
}

// isDuplicateKey returns true if the driver error reports a violated unique index or primary key.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// connections without extended result codes only report the primary code
			return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
		}
		return false
	}
	return false
}
