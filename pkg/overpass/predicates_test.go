package overpass

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPredicates_CoversAllCategories(t *testing.T) {
	preds := DefaultPredicates()
	assert.Len(t, preds, 8)
	assert.Equal(t, `["shop"="second_hand"]`, preds["second_hand_shop"])
	assert.Equal(t, `["amenity"="recycling"]`, preds["recycling_point"])
}

func TestLoadPredicates_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predicates.yaml")
	content := `predicates:
  repair_cafe: '["amenity"="repair_cafe"]'
  book_swap: '["amenity"="public_bookcase"]'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	preds, err := LoadPredicates(path)
	require.NoError(t, err)

	assert.Equal(t, `["amenity"="repair_cafe"]`, preds["repair_cafe"])
	assert.Equal(t, `["amenity"="public_bookcase"]`, preds["book_swap"])
	assert.Equal(t, `["shop"="organic"]`, preds["organic_shop"])
}

func TestLoadPredicates_MissingFile(t *testing.T) {
	_, err := LoadPredicates(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadPredicates_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("predicates: [not a map"), 0o644))

	_, err := LoadPredicates(path)
	assert.Error(t, err)
}
