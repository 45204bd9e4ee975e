// Package cmds holds the can-assistant cobra commands.
package cmds

import (
	"github.com/go-go-golems/can-assistant/pkg/config"
	"github.com/go-go-golems/can-assistant/pkg/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flag name -> settings key
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"log-format":      "log.format",
	"log-file":        "log.file",
	"with-caller":     "log.with-caller",
	"transport":       "transport.kind",
	"base-url":        "transport.base-url",
	"timeout":         "transport.timeout",
	"openai-api-key":  "transport.openai.api-key",
	"openai-model":    "transport.openai.model",
	"openai-base-url": "transport.openai.base-url",
	"language":        "language",
	"preferences-db":  "preferences.path",
	"redis-enabled":   "redis.enabled",
	"redis-addr":      "redis.addr",
	"addr":            "server.addr",
}

func NewRootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Chat with the AFCON 2025 assistant",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			if err := config.InitViper(v, configFile); err != nil {
				return err
			}
			for flag, key := range flagKeys {
				if f := cmd.Flags().Lookup(flag); f != nil {
					if err := v.BindPFlag(key, f); err != nil {
						return errors.Wrapf(err, "could not bind --%s", flag)
					}
				}
			}
			return logging.InitLogger(logging.Settings{
				Level:      v.GetString("log.level"),
				Format:     v.GetString("log.format"),
				File:       v.GetString("log.file"),
				WithCaller: v.GetBool("log.with-caller"),
			})
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default $HOME/.can-assistant/config.yaml)")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("log-file", "", "also log to this file")
	pf.Bool("with-caller", false, "log the caller")
	pf.String("transport", "http", "assistant transport (http, openai, static)")
	pf.String("base-url", "http://localhost:8000", "assistant service url")
	pf.Duration("timeout", 0, "assistant request timeout (0 keeps the configured one)")
	pf.String("openai-api-key", "", "api key for the openai transport")
	pf.String("openai-model", "", "model for the openai transport")
	pf.String("openai-base-url", "", "base url for the openai transport")
	pf.String("language", "", "answer language (en, fr), defaults to the saved preference")
	pf.String("preferences-db", "", "preferences database path")
	pf.Bool("redis-enabled", false, "publish session events and diagnostics on redis streams")
	pf.String("redis-addr", "localhost:6379", "redis address")

	rootCmd.AddCommand(
		newChatCommand(),
		newServeCommand(),
		newAskCommand(),
		newLanguageCommand(),
	)
	return rootCmd
}

// loadSettings decodes the settings once flags have been bound.
func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}
