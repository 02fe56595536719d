// Package store keeps contacts and users in a relational database. Every contact write runs in
// its own transaction, and ownership is checked inside that transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/policy"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// contactColumns lists the columns of the contacts table in the order of model.Contact.
const contactColumns = "id, name, phone_number, email, notes, owner"

const (
	selectWhereIdSQL = `SELECT ` + contactColumns + ` FROM contacts WHERE id = ?`
	insertSQL        = `INSERT INTO contacts (name, phone_number, email, notes, owner) VALUES (?, ?, ?, ?, ?)`
	updateSQL        = `UPDATE contacts SET name = ?, phone_number = ?, email = ?, notes = ? WHERE id = ?`
	deleteSQL        = `DELETE FROM contacts WHERE id = ?`
)

// DeleteScope decides which contacts a bulk delete removes.
type DeleteScope string

const (
	// DeleteOwn removes only the contacts of the calling user.
	DeleteOwn DeleteScope = "owner"
	// DeleteEverything removes the contacts of all users.
	DeleteEverything DeleteScope = "all"
)

// ParseDeleteScope converts a configuration value into a DeleteScope.
func ParseDeleteScope(value string) (DeleteScope, error) {
	switch scope := DeleteScope(value); scope {
	case DeleteOwn, DeleteEverything:
		return scope, nil
	}
	return "", fmt.Errorf("unknown delete scope %q", value)
}

// Store is the persistent collection of contacts and the users owning them.
type Store struct {
	db           *sqlx.DB
	validate     *validator.Validate
	passwordCost int

	// Prepared statements offer a significant speed increase if executed many times.
	selectAll        *sqlx.Stmt
	selectWhereOwner *sqlx.Stmt
	selectWhereId    *sqlx.Stmt
	selectPassword   *sqlx.Stmt
}

// Open opens a database handle for the given driver. An SQLite database is limited to a single
// connection because every connection to ":memory:" would see its own empty database.
func Open(driver string, dsn string) (*sql.DB, error) {
	if driver != DriverMySQL && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	return sqlDB, nil
}

// New wraps the sql database and prepares all statements. The database argument can be a real
// database for production use or a mock database within unit tests.
func New(sqlDB *sql.DB, driver string) (*Store, error) {
	s := &Store{
		db:           sqlx.NewDb(sqlDB, driver),
		validate:     newValidator(),
		passwordCost: bcrypt.DefaultCost,
	}
	var err error
	s.selectAll, err = s.db.Preparex(`SELECT ` + contactColumns + ` FROM contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("prepare select all: %w", err)
	}
	s.selectWhereOwner, err = s.db.Preparex(`SELECT ` + contactColumns + ` FROM contacts WHERE owner = ? ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("prepare select by owner: %w", err)
	}
	s.selectWhereId, err = s.db.Preparex(selectWhereIdSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare select by id: %w", err)
	}
	s.selectPassword, err = s.db.Preparex(`SELECT password_hash FROM users WHERE username = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare select password: %w", err)
	}
	return s, nil
}

// SetPasswordCost sets the bcrypt cost used for new password hashes.
func (s *Store) SetPasswordCost(cost int) {
	s.passwordCost = cost
}

// Close releases the prepared statements and the database.
func (s *Store) Close() error {
	for _, stmt := range []*sqlx.Stmt{s.selectAll, s.selectWhereOwner, s.selectWhereId, s.selectPassword} {
		stmt.Close()
	}
	return s.db.Close()
}

// ListAll returns every contact of every user in the order they were created.
func (s *Store) ListAll(ctx context.Context) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if err := s.selectAll.SelectContext(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("select all contacts: %w", err)
	}
	return contacts, nil
}

// List returns the contacts of one owner in the order they were created.
func (s *Store) List(ctx context.Context, owner string) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if err := s.selectWhereOwner.SelectContext(ctx, &contacts, owner); err != nil {
		return nil, fmt.Errorf("select contacts of %s: %w", owner, err)
	}
	return contacts, nil
}

// Get returns the contact with the given id regardless of its owner.
func (s *Store) Get(ctx context.Context, id int64) (model.Contact, error) {
	var contacts []model.Contact
	if err := s.selectWhereId.SelectContext(ctx, &contacts, id); err != nil {
		return model.Contact{}, fmt.Errorf("select contact %d: %w", id, err)
	}
	if len(contacts) == 0 {
		return model.Contact{}, ErrNotFound
	}
	return contacts[0], nil
}

// Create validates the fields and stores a new contact owned by owner. It fails with a
// ValidationError for malformed fields and with ErrDuplicateKey if the phone number is already
// used by any contact of any user.
func (s *Store) Create(ctx context.Context, fields model.Fields, owner string) (model.Contact, error) {
	if err := s.check(fields); err != nil {
		return model.Contact{}, err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Contact{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, insertSQL,
		fields.Name, fields.PhoneNumber, fields.Email, fields.Notes, owner)
	if err != nil {
		if isDuplicateKey(err) {
			return model.Contact{}, fmt.Errorf("phone number %s: %w", fields.PhoneNumber, ErrDuplicateKey)
		}
		return model.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Contact{}, fmt.Errorf("read id of new contact: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Contact{}, fmt.Errorf("commit new contact: %w", err)
	}
	return model.Contact{
		Id:          id,
		Name:        fields.Name,
		PhoneNumber: fields.PhoneNumber,
		Email:       fields.Email,
		Notes:       fields.Notes,
		Owner:       &owner,
	}, nil
}

// Update applies the patch to the contact with the given id and returns the new version of the
// contact. Only the owner may update a contact.
func (s *Store) Update(ctx context.Context, id int64, patch model.Patch, owner string) (model.Contact, error) {
	// It only makes sense to continue if we have at least one value to update.
	if patch.Empty() {
		return model.Contact{}, &ValidationError{Fields: map[string]string{"contact": "has no values to be updated"}}
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Contact{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	contact, err := ownedContact(ctx, tx, id, owner)
	if err != nil {
		return model.Contact{}, err
	}
	fields := patch.Apply(contact.Fields())
	if err := s.check(fields); err != nil {
		return model.Contact{}, err
	}
	_, err = tx.ExecContext(ctx, updateSQL,
		fields.Name, fields.PhoneNumber, fields.Email, fields.Notes, id)
	if err != nil {
		if isDuplicateKey(err) {
			return model.Contact{}, fmt.Errorf("phone number %s: %w", fields.PhoneNumber, ErrDuplicateKey)
		}
		return model.Contact{}, fmt.Errorf("update contact %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Contact{}, fmt.Errorf("commit contact %d: %w", id, err)
	}
	contact.Name = fields.Name
	contact.PhoneNumber = fields.PhoneNumber
	contact.Email = fields.Email
	contact.Notes = fields.Notes
	return contact, nil
}

// Delete removes the contact with the given id. Only the owner may delete a contact.
func (s *Store) Delete(ctx context.Context, id int64, owner string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := ownedContact(ctx, tx, id, owner); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, deleteSQL, id); err != nil {
		return fmt.Errorf("delete contact %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit deletion of contact %d: %w", id, err)
	}
	return nil
}

// DeleteAll removes the contacts selected by scope and returns how many were removed.
func (s *Store) DeleteAll(ctx context.Context, owner string, scope DeleteScope) (int64, error) {
	var result sql.Result
	var err error
	switch scope {
	case DeleteOwn:
		result, err = s.db.ExecContext(ctx, `DELETE FROM contacts WHERE owner = ?`, owner)
	case DeleteEverything:
		result, err = s.db.ExecContext(ctx, `DELETE FROM contacts`)
	default:
		return 0, fmt.Errorf("unknown delete scope %q", scope)
	}
	if err != nil {
		return 0, fmt.Errorf("delete contacts: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted contacts: %w", err)
	}
	return rowsAffected, nil
}

// ownedContact loads the contact within the transaction and verifies that owner may change it.
func ownedContact(ctx context.Context, tx *sqlx.Tx, id int64, owner string) (model.Contact, error) {
	var contacts []model.Contact
	if err := tx.SelectContext(ctx, &contacts, selectWhereIdSQL, id); err != nil {
		return model.Contact{}, fmt.Errorf("select contact %d: %w", id, err)
	}
	if len(contacts) == 0 {
		return model.Contact{}, ErrNotFound
	}
	if !policy.IsOwner(contacts[0], owner) {
		return model.Contact{}, ErrForbidden
	}
	return contacts[0], nil
}

// CreateUser registers a user with a bcrypt hash of the password.
func (s *Store) CreateUser(ctx context.Context, credentials model.Credentials) error {
	if err := s.check(credentials); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(credentials.Password), s.passwordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		credentials.Username, string(hash))
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("username %s: %w", credentials.Username, ErrDuplicateKey)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Authenticate returns true if a user with the given name exists and the password matches.
func (s *Store) Authenticate(ctx context.Context, username string, password string) (bool, error) {
	var hashes []string
	if err := s.selectPassword.SelectContext(ctx, &hashes, username); err != nil {
		return false, fmt.Errorf("select user %s: %w", username, err)
	}
	if len(hashes) == 0 {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashes[0]), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password of %s: %w", username, err)
	}
	return true, nil
}
