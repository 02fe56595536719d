// Package backup writes contacts to JSON backup files and reads them back.
//
// A backup file is a JSON array. Every element has the form
//
//	{"model": "addressbook.contact", "pk": 1, "fields": {"name": ..., "phone_number": ..., "email": ..., "notes": ...}}
//
// Only the fields are read on import; imported contacts receive new ids.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
	"go.uber.org/zap"
)

// ModelName is written into the model property of every exported record.
const ModelName = "addressbook.contact"

// ErrInvalidFilename is returned for file names that would leave the backup directory.
var ErrInvalidFilename = errors.New("invalid backup file name")

// CreateFunc stores one imported contact.
type CreateFunc func(fields model.Fields) error

// Codec reads and writes backup files in a single directory. Exports and imports of one codec
// never run at the same time.
type Codec struct {
	dir         string
	defaultFile string
	logger      *zap.Logger
	mu          sync.Mutex
}

// NewCodec returns a codec for the backup directory dir. Backups without an explicit name are
// written to and read from defaultFile.
func NewCodec(dir string, defaultFile string, logger *zap.Logger) *Codec {
	return &Codec{dir: dir, defaultFile: defaultFile, logger: logger}
}

// ResolveFilename turns a user supplied name into the name of a file in the backup directory.
// An empty name is replaced by the default file name; a missing ".json" suffix is appended.
func (c *Codec) ResolveFilename(name string) (string, error) {
	if name == "" {
		name = c.defaultFile
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return name, nil
}

// Export writes the contacts to the named backup file and returns the resolved file name. An
// existing file is replaced only after the new content has been written completely.
func (c *Codec) Export(contacts []model.Contact, name string) (string, error) {
	filename, err := c.ResolveFilename(name)
	if err != nil {
		return "", err
	}
	records := make([]model.BackupRecord, 0, len(contacts))
	for _, contact := range contacts {
		records = append(records, model.BackupRecord{
			Model:  ModelName,
			Pk:     contact.Id,
			Fields: contact.Fields(),
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	if err := writeFile(filepath.Join(c.dir, filename), data); err != nil {
		return "", err
	}
	c.logger.Info("exported contacts", zap.String("file", filename), zap.Int("contacts", len(records)))
	return filename, nil
}

// Import reads the named backup file and calls create for every record. Records that are
// invalid or whose phone number is already taken are skipped. A missing file imports nothing and
// is not an error. Import returns the number of contacts created.
func (c *Codec) Import(name string, create CreateFunc) (int, error) {
	filename, err := c.ResolveFilename(name)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	file, err := os.Open(filepath.Join(c.dir, filename))
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Info("backup file does not exist, nothing imported", zap.String("file", filename))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open backup: %w", err)
	}
	defer file.Close()

	var records []model.BackupRecord
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		return 0, fmt.Errorf("decode backup %s: %w", filename, err)
	}
	imported := 0
	for i, record := range records {
		err := create(record.Fields)
		var validationError *store.ValidationError
		switch {
		case err == nil:
			imported++
		case errors.Is(err, store.ErrDuplicateKey):
			c.logger.Debug("skipped duplicate record", zap.Int("record", i), zap.String("phone_number", record.Fields.PhoneNumber))
		case errors.As(err, &validationError):
			c.logger.Debug("skipped invalid record", zap.Int("record", i), zap.Error(err))
		default:
			return imported, fmt.Errorf("import record %d of %s: %w", i, filename, err)
		}
	}
	c.logger.Info("imported contacts", zap.String("file", filename),
		zap.Int("records", len(records)), zap.Int("imported", imported))
	return imported, nil
}

// writeFile replaces path atomically using the temp-file, fsync, rename pattern.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename backup: %w", err)
	}
	return nil
}
