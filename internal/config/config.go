package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	// Movement pipeline knobs. The throttle interval is a tunable, not
	// a contract; 50ms keeps write amplification bounded.
	MoveMinInterval time.Duration `mapstructure:"move_min_interval"`
	MoveEpsilon     float64       `mapstructure:"move_epsilon"`

	RoomFetchTimeout time.Duration `mapstructure:"room_fetch_timeout"`
	JoinRetries      int           `mapstructure:"join_retries"`
	JoinRetryBackoff time.Duration `mapstructure:"join_retry_backoff"`

	ChatMaxLen  int `mapstructure:"chat_max_len"`
	ChatHistory int `mapstructure:"chat_history"`

	AuthSecret string `mapstructure:"auth_secret"`
	MongoURI   string `mapstructure:"mongo_uri"`
	MongoDB    string `mapstructure:"mongo_db"`
	RedisAddr  string `mapstructure:"redis_addr"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("move_min_interval", "50ms")
	v.SetDefault("move_epsilon", 0.1)
	v.SetDefault("room_fetch_timeout", "3s")
	v.SetDefault("join_retries", 3)
	v.SetDefault("join_retry_backoff", "250ms")
	v.SetDefault("chat_max_len", 500)
	v.SetDefault("chat_history", 50)
	v.SetDefault("auth_secret", "dev-secret")
	v.SetDefault("mongo_db", "plaza")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d\n", cfg.Mode, cfg.Port)
	return &cfg, nil
}
