package preferences

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_LanguageSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.db")
	ctx := context.Background()

	s, err := OpenFile(path)
	require.NoError(t, err)

	lang, err := Language(ctx, s, "en")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	require.NoError(t, SetLanguage(ctx, s, "fr"))
	require.NoError(t, SetLanguage(ctx, s, "fr"))
	require.NoError(t, s.Close())

	s, err = OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	lang, err = Language(ctx, s, "en")
	require.NoError(t, err)
	assert.Equal(t, "fr", lang)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewSQLiteStore_Validation(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	assert.Error(t, err)
	_, err = DSNForFile("")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	lang, err := Language(ctx, s, "en")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
	require.NoError(t, SetLanguage(ctx, s, "fr"))
	lang, err = Language(ctx, s, "en")
	require.NoError(t, err)
	assert.Equal(t, "fr", lang)
}
