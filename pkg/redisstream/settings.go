package redisstream

// Settings holds Redis Streams configuration for watermill.
type Settings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Group    string `mapstructure:"group"`
	Consumer string `mapstructure:"consumer"`
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:  false,
		Addr:     "localhost:6379",
		Group:    "can-assistant",
		Consumer: "assistant-1",
	}
}
