// Package config loads the assistant settings from flags, environment and the config file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/go-go-golems/can-assistant/pkg/logging"
	"github.com/go-go-golems/can-assistant/pkg/redisstream"
	"github.com/go-go-golems/can-assistant/pkg/transport/openaitransport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	AppName   = "can-assistant"
	EnvPrefix = "CAN_ASSISTANT"
)

type TransportKind string

const (
	TransportHTTP   TransportKind = "http"
	TransportOpenAI TransportKind = "openai"
	TransportStatic TransportKind = "static"
)

type TransportSettings struct {
	Kind    TransportKind            `mapstructure:"kind"`
	BaseURL string                   `mapstructure:"base-url"`
	Timeout time.Duration            `mapstructure:"timeout"`
	OpenAI  openaitransport.Settings `mapstructure:"openai"`
}

type LoadingSettings struct {
	SearchingAfter  time.Duration `mapstructure:"searching-after"`
	ProcessingAfter time.Duration `mapstructure:"processing-after"`
}

type PreferencesSettings struct {
	// Path of the sqlite database. Empty keeps preferences in memory.
	Path string `mapstructure:"path"`
}

type ServerSettings struct {
	Addr string `mapstructure:"addr"`
}

type Settings struct {
	Transport   TransportSettings    `mapstructure:"transport"`
	Loading     LoadingSettings      `mapstructure:"loading"`
	Language    string               `mapstructure:"language"`
	Preferences PreferencesSettings  `mapstructure:"preferences"`
	Redis       redisstream.Settings `mapstructure:"redis"`
	Server      ServerSettings       `mapstructure:"server"`
	Log         logging.Settings     `mapstructure:"log"`
}

// DefaultDir is $HOME/.can-assistant.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, "."+AppName)
}

// SetDefaults registers every key with its default so that environment variables and
// Unmarshal see them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("transport.kind", string(TransportHTTP))
	v.SetDefault("transport.base-url", "http://localhost:8000")
	v.SetDefault("transport.timeout", 60*time.Second)
	v.SetDefault("transport.openai.api-key", "")
	v.SetDefault("transport.openai.base-url", "")
	v.SetDefault("transport.openai.model", openaitransport.DefaultModel)
	v.SetDefault("transport.openai.temperature", 0.2)

	v.SetDefault("loading.searching-after", loading.DefaultSearchingAfter)
	v.SetDefault("loading.processing-after", loading.DefaultProcessingAfter)

	v.SetDefault("language", string(i18n.DefaultLanguage))
	v.SetDefault("preferences.path", filepath.Join(DefaultDir(), "preferences.db"))

	rs := redisstream.DefaultSettings()
	v.SetDefault("redis.enabled", rs.Enabled)
	v.SetDefault("redis.addr", rs.Addr)
	v.SetDefault("redis.password", rs.Password)
	v.SetDefault("redis.db", rs.DB)
	v.SetDefault("redis.group", rs.Group)
	v.SetDefault("redis.consumer", rs.Consumer)

	v.SetDefault("server.addr", ":8080")

	ls := logging.DefaultSettings()
	v.SetDefault("log.level", ls.Level)
	v.SetDefault("log.format", ls.Format)
	v.SetDefault("log.file", ls.File)
	v.SetDefault("log.with-caller", ls.WithCaller)
}

// InitViper sets up defaults, the environment and the config file. A missing config file is
// not an error.
func InitViper(v *viper.Viper, configFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
		if xdg, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(xdg, AppName))
		}
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "could not read config file")
	}
	log.Debug().Str("config", v.ConfigFileUsed()).Msg("Loaded configuration")
	return nil
}

func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) Validate() error {
	switch s.Transport.Kind {
	case TransportHTTP, TransportStatic:
	case TransportOpenAI:
		if s.Transport.OpenAI.APIKey == "" {
			return errors.New("transport.openai.api-key is required for the openai transport")
		}
	default:
		return errors.Errorf("unknown transport kind %q (want http, openai or static)", s.Transport.Kind)
	}
	if s.Loading.SearchingAfter <= 0 || s.Loading.ProcessingAfter <= s.Loading.SearchingAfter {
		return errors.Errorf("loading delays must satisfy 0 < searching-after < processing-after, got %s and %s",
			s.Loading.SearchingAfter, s.Loading.ProcessingAfter)
	}
	if s.Transport.Timeout < 0 {
		return errors.New("transport.timeout must not be negative")
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return err
	}
	return nil
}
