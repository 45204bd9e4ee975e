package i18n

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_BundledLanguages(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)
	assert.Equal(t, []Language{English, French}, c.Languages())

	s, ok := c.Lookup(English, "suggested.matches")
	require.True(t, ok)
	assert.Equal(t, "What matches are scheduled for tomorrow?", s)

	s, ok = c.Lookup(French, "loading.thinking")
	require.True(t, ok)
	assert.Equal(t, "Je réfléchis...", s)
}

func TestLocalizer_SwitchAndFallback(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)
	require.NoError(t, c.Add("xx", []byte("login: \"Entrar\"\n")))

	l, err := NewLocalizer(c, English)
	require.NoError(t, err)
	assert.Equal(t, "Login", l.T("login"))

	require.NoError(t, l.SetLanguage(French))
	assert.Equal(t, "Connexion", l.T("login"))

	require.NoError(t, l.SetLanguage("xx"))
	assert.Equal(t, "Entrar", l.T("login"))
	assert.Equal(t, "Logout", l.T("logout"), "missing keys fall back to the default language")
	assert.Equal(t, "no.such.key", l.T("no.such.key"))

	err = l.SetLanguage("de")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLanguage))
	assert.Equal(t, Language("xx"), l.Language())
}

func TestLocalizer_Interpolation(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)
	l, err := NewLocalizer(c, French)
	require.NoError(t, err)

	assert.Equal(t, "Erreur serveur : boom", l.T("errors.server", P("message", "boom")))
	assert.Equal(t, "a {{b}} c", Interpolate("a {{b}} c", P("x", "y")))
	assert.Equal(t, "plain", Interpolate("plain", P("x", "y")))
}
