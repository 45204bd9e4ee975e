package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	v := viper.New()
	require.NoError(t, InitViper(v, ""))
	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, TransportHTTP, s.Transport.Kind)
	assert.Equal(t, "http://localhost:8000", s.Transport.BaseURL)
	assert.Equal(t, time.Second, s.Loading.SearchingAfter)
	assert.Equal(t, 2*time.Second, s.Loading.ProcessingAfter)
	assert.Equal(t, "en", s.Language)
	assert.False(t, s.Redis.Enabled)
	assert.Equal(t, "localhost:6379", s.Redis.Addr)
	assert.Equal(t, "info", s.Log.Level)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
transport:
  kind: static
  timeout: 5s
loading:
  searching-after: 500ms
  processing-after: 1500ms
language: fr
redis:
  enabled: true
`), 0o600))
	t.Setenv("CAN_ASSISTANT_SERVER_ADDR", ":9999")

	v := viper.New()
	require.NoError(t, InitViper(v, path))
	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, TransportStatic, s.Transport.Kind)
	assert.Equal(t, 5*time.Second, s.Transport.Timeout)
	assert.Equal(t, 500*time.Millisecond, s.Loading.SearchingAfter)
	assert.Equal(t, 1500*time.Millisecond, s.Loading.ProcessingAfter)
	assert.Equal(t, "fr", s.Language)
	assert.True(t, s.Redis.Enabled)
	assert.Equal(t, ":9999", s.Server.Addr)
}

func TestInitViper_ExplicitFileMustExist(t *testing.T) {
	err := InitViper(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	s, err := Load(v)
	require.NoError(t, err)

	bad := *s
	bad.Transport.Kind = "carrier-pigeon"
	assert.Error(t, bad.Validate())

	bad = *s
	bad.Transport.Kind = TransportOpenAI
	assert.Error(t, bad.Validate())

	bad = *s
	bad.Loading.ProcessingAfter = bad.Loading.SearchingAfter
	assert.Error(t, bad.Validate())
}
