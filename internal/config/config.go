package config

import "github.com/spf13/viper"

type Config struct {
	Port              string `mapstructure:"PORT"`
	DB_DSN            string `mapstructure:"DB_DSN"`
	NatsURL           string `mapstructure:"NATS_URL"`
	RemoteEngineURL   string `mapstructure:"REMOTE_ENGINE_URL"`
	MaxConcurrentRuns int    `mapstructure:"MAX_CONCURRENT_RUNS"`
	RunTimeoutSeconds int    `mapstructure:"RUN_TIMEOUT_SECONDS"`
}

func LoadConfig() (config Config, err error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("app")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DB_DSN", "")
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("REMOTE_ENGINE_URL", "")
	viper.SetDefault("MAX_CONCURRENT_RUNS", 8)
	viper.SetDefault("RUN_TIMEOUT_SECONDS", 120)

	err = viper.ReadInConfig()
	// If config file not found, we can still use env vars
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	}

	if err != nil {
		return Config{}, err
	}
	err = viper.Unmarshal(&config)
	return
}
