package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Fields(t *testing.T) {
	s := Default()

	fields, err := s.Fields("EmissionsAgg")
	require.NoError(t, err)
	assert.Equal(t, []string{"emissions_id", "actor_id", "year", "total_emissions", "methodology_id", "datasource_id"}, fields)

	fields, err = s.Fields("gdp")
	require.NoError(t, err)
	assert.Equal(t, []string{"actor_id", "gdp", "year", "datasource_id"}, fields)

	_, err = s.Fields("Pledges")
	assert.ErrorIs(t, err, ErrUnknownTable)
	assert.Contains(t, err.Error(), "publisher")
}

func TestFields_ReturnsCopy(t *testing.T) {
	s := Default()
	fields, err := s.Fields("publisher")
	require.NoError(t, err)
	fields[0] = "changed"

	again, err := s.Fields("publisher")
	require.NoError(t, err)
	assert.Equal(t, "id", again[0])
}

func TestCheck(t *testing.T) {
	s := Default()

	require.NoError(t, s.Check("Publisher", []string{"URL", "id", "name"}))

	err := s.Check("Publisher", []string{"id", "name", "website"})
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{"URL"}, mismatch.Missing)
	assert.Equal(t, []string{"website"}, mismatch.Extra)
	assert.Equal(t, "table Publisher: missing URL; unexpected website", err.Error())
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Custom:\n  - a\n  - b\n"), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, s.Tables())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("{}"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"empty": []}`))
	assert.Error(t, err)
}
