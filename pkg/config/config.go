package config

import "time"

// Client definition chat_client YAML structure
type Client struct {
	Token     string          `mapstructure:"token"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	API       APIConfig       `mapstructure:"api"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Typing    TypingConfig    `mapstructure:"typing"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
}

// GatewayConfig websocket gateway setting
type GatewayConfig struct {
	URL            string        `mapstructure:"url"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

// APIConfig REST api setting
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig definition redis setting, empty Addr disables the cache
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	RedisDB  int           `mapstructure:"redis_db"`
	ChatTTL  time.Duration `mapstructure:"chat_ttl"`
}

// TypingConfig typing indicator setting
type TypingConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ReconnectConfig transport backoff setting
type ReconnectConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// Defaults values applied before the YAML is read
var Defaults = map[string]interface{}{
	"gateway.url":                "ws://localhost:8080/ws",
	"gateway.write_wait":         10 * time.Second,
	"gateway.pong_wait":          60 * time.Second,
	"gateway.max_message_size":   64 * 1024,
	"gateway.send_buffer":        256,
	"api.base_url":               "http://localhost:8081",
	"api.timeout":                10 * time.Second,
	"redis.redis_db":             0,
	"redis.chat_ttl":             24 * time.Hour,
	"typing.timeout":             3 * time.Second,
	"reconnect.initial_interval": 500 * time.Millisecond,
	"reconnect.max_interval":     30 * time.Second,
	"reconnect.max_elapsed_time": 0,
}
