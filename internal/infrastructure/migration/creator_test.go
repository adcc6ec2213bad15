package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add collection rules", "add_collection_rules"},
		{"Add-Bank-Accounts", "add_bank_accounts"},
		{"ADD_RULE_INDEX", "add_rule_index"},
		{"add__entry__index", "add_entry_index"},
		{"Add Titles 123", "add_titles_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "add bank accounts", "Bank account registry")
	require.NoError(t, err)

	assert.Equal(t, "000001", mf.Version)
	upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
	downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
	assert.Equal(t, upBase, downBase)
	assert.True(t, strings.HasSuffix(upBase, "_add_bank_accounts"))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Bank account registry")
	assert.Contains(t, string(up), "PostgreSQL and SQLite")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "rollback")

	next, err := CreateMigration(dir, "add rule index", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", next.Version)

	listed, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{upBase, "000002_add_rule_index"}, listed)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestNextVersion(t *testing.T) {
	assert.Equal(t, 1, nextVersion(nil))
	assert.Equal(t, 4, nextVersion([]string{"000001_a", "000003_b", "notes"}))
}

func TestListMigrations(t *testing.T) {
	source := fstest.MapFS{
		"000002_bank_reconciliation.up.sql":   {Data: []byte("--")},
		"000002_bank_reconciliation.down.sql": {Data: []byte("--")},
		"000001_finance_schema.up.sql":        {Data: []byte("--")},
		"000001_finance_schema.down.sql":      {Data: []byte("--")},
		"README.md":                           {Data: []byte("docs")},
		"subdir.up.sql/keep":                  {Data: []byte("")},
	}

	migrations, err := ListMigrations(source)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_finance_schema", "000002_bank_reconciliation"}, migrations)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	migrations, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, migrations)
}
