package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
	"go.uber.org/zap"
)

const defaultFile = "address_book_backup.json"

func stringPtr(s string) *string {
	return &s
}

func newTestCodec(t *testing.T) (*Codec, string) {
	dir := filepath.Join(t.TempDir(), "data")
	return NewCodec(dir, defaultFile, zap.NewNop()), dir
}

func TestResolveFilename(t *testing.T) {
	codec, _ := newTestCodec(t)
	tests := []struct {
		name     string
		resolved string
	}{
		{"", "address_book_backup.json"},
		{"contacts", "contacts.json"},
		{"contacts.json", "contacts.json"},
		{"contacts.JSON", "contacts.JSON.json"},
		{"my contacts", "my contacts.json"},
	}
	for _, tt := range tests {
		resolved, err := codec.ResolveFilename(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.resolved, resolved, tt.name)
	}
}

// TestResolveFilenameOutsideDirectory expects that names with path separators are rejected.
func TestResolveFilenameOutsideDirectory(t *testing.T) {
	codec, _ := newTestCodec(t)
	for _, name := range []string{"../secret", "sub/dir.json", `..\windows`, "/etc/passwd", ".", ".."} {
		_, err := codec.ResolveFilename(name)
		assert.ErrorIs(t, err, ErrInvalidFilename, name)
	}
}

// TestExportFormat writes one contact and compares the file content with the expected JSON.
func TestExportFormat(t *testing.T) {
	codec, dir := newTestCodec(t)
	contacts := []model.Contact{
		{Id: 1, Name: "Ada", PhoneNumber: "5551234", Email: "ada@x.com", Owner: stringPtr("ada")},
		{Id: 5, Name: "Bob", PhoneNumber: "5555678", Email: "bob@x.com", Notes: stringPtr("plumber"), Owner: stringPtr("ada")},
	}

	filename, err := codec.Export(contacts, "")
	require.NoError(t, err)
	assert.Equal(t, "address_book_backup.json", filename)

	data, err := os.ReadFile(filepath.Join(dir, "address_book_backup.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"model": "addressbook.contact", "pk": 1, "fields": {"name": "Ada", "phone_number": "5551234", "email": "ada@x.com", "notes": null}},
		{"model": "addressbook.contact", "pk": 5, "fields": {"name": "Bob", "phone_number": "5555678", "email": "bob@x.com", "notes": "plumber"}}
	]`, string(data))
}

// TestExportNothing expects an empty JSON array.
func TestExportNothing(t *testing.T) {
	codec, dir := newTestCodec(t)
	filename, err := codec.Export(nil, "empty")
	require.NoError(t, err)
	assert.Equal(t, "empty.json", filename)
	data, err := os.ReadFile(filepath.Join(dir, "empty.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

// TestExportReplacesFile expects that a second export overwrites the first one and leaves no
// temporary files behind.
func TestExportReplacesFile(t *testing.T) {
	codec, dir := newTestCodec(t)
	_, err := codec.Export([]model.Contact{{Id: 1, Name: "Ada", PhoneNumber: "1", Email: "a@x.com"}}, "b")
	require.NoError(t, err)
	_, err = codec.Export(nil, "b")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.json", entries[0].Name())
	data, err := os.ReadFile(filepath.Join(dir, "b.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

// TestExportImportRoundTrip expects that the imported fields equal the exported ones.
func TestExportImportRoundTrip(t *testing.T) {
	codec, _ := newTestCodec(t)
	contacts := []model.Contact{
		{Id: 10, Name: "Ada", PhoneNumber: "5551234", Email: "ada@x.com"},
		{Id: 11, Name: "Bob", PhoneNumber: "5555678", Email: "bob@x.com", Notes: stringPtr("plumber")},
	}
	_, err := codec.Export(contacts, "roundtrip")
	require.NoError(t, err)

	var created []model.Fields
	count, err := codec.Import("roundtrip", func(fields model.Fields) error {
		created = append(created, fields)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []model.Fields{contacts[0].Fields(), contacts[1].Fields()}, created)
}

// TestImportMissingFile expects that nothing is imported and no error is reported.
func TestImportMissingFile(t *testing.T) {
	codec, _ := newTestCodec(t)
	count, err := codec.Import("missing.json", func(model.Fields) error {
		t.Fatal("no record expected")
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

// TestImportSkipsConflicts expects that duplicates and invalid records are skipped and the rest
// of the batch is imported.
func TestImportSkipsConflicts(t *testing.T) {
	codec, dir := newTestCodec(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mixed.json"), []byte(`[
		{"model": "addressbook.contact", "pk": 1, "fields": {"name": "Ada", "phone_number": "1", "email": "ada@x.com", "notes": null}},
		{"model": "addressbook.contact", "pk": 2, "fields": {"name": "Dup", "phone_number": "2", "email": "dup@x.com", "notes": null}},
		{"model": "addressbook.contact", "pk": 3, "fields": {"name": "Bad", "phone_number": "x", "email": "bad@x.com", "notes": null}},
		{"pk": 4, "fields": {"name": "Cleo", "phone_number": "4", "email": "cleo@x.com", "notes": "friend"}}
	]`), 0o644))

	var names []string
	count, err := codec.Import("mixed", func(fields model.Fields) error {
		switch fields.PhoneNumber {
		case "2":
			return store.ErrDuplicateKey
		case "x":
			return &store.ValidationError{Fields: map[string]string{"phone_number": "must contain digits only"}}
		}
		names = append(names, fields.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"Ada", "Cleo"}, names)
}

// TestImportStorageFailure expects that an unexpected error aborts the batch.
func TestImportStorageFailure(t *testing.T) {
	codec, _ := newTestCodec(t)
	_, err := codec.Export([]model.Contact{
		{Id: 1, Name: "Ada", PhoneNumber: "1", Email: "ada@x.com"},
		{Id: 2, Name: "Bob", PhoneNumber: "2", Email: "bob@x.com"},
		{Id: 3, Name: "Cleo", PhoneNumber: "3", Email: "cleo@x.com"},
	}, "")
	require.NoError(t, err)

	failure := errors.New("database gone")
	calls := 0
	count, err := codec.Import("", func(fields model.Fields) error {
		calls++
		if fields.Name == "Bob" {
			return failure
		}
		return nil
	})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, calls)
}

// TestImportMalformedFile expects an error for a file that is not a JSON array of records.
func TestImportMalformedFile(t *testing.T) {
	codec, dir := newTestCodec(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("not JSON"), 0o644))

	_, err := codec.Import("broken.json", func(model.Fields) error { return nil })
	assert.Error(t, err)
}

// TestImportInvalidFilename expects that the file system is not touched for invalid names.
func TestImportInvalidFilename(t *testing.T) {
	codec, _ := newTestCodec(t)
	_, err := codec.Import("../../etc/passwd", func(model.Fields) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidFilename)
}
