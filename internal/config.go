package internal

import "time"

type Config struct {
	Host      string `env:"HOST,required=true"`
	Port      int    `env:"PORT,required=true"`
	JWTSecret string `env:"JWT_SECRET,required=true"`

	GatewayWSURL  string `env:"GATEWAY_WS_URL,required=true"`
	GatewayAPIURL string `env:"GATEWAY_API_URL,required=true"`

	EventBufferSize int `env:"EVENT_BUFFER_SIZE,required=true"`
	SendBufferSize  int `env:"SEND_BUFFER_SIZE,required=true"`

	FormatTimeout     time.Duration `env:"FORMAT_TIMEOUT,required=true"`
	UpstreamTimeout   time.Duration `env:"UPSTREAM_TIMEOUT,required=true"`
	ReconnectInterval time.Duration `env:"RECONNECT_INTERVAL,required=true"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,required=true"`

	LogLevel string `env:"LOG_LEVEL,required=true"`
}
