package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr      string `envconfig:"ADDR" default:":8080"`
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	RedisAddr string `envconfig:"REDIS_ADDR"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	OllamaHost        string        `envconfig:"OLLAMA_HOST" default:"http://127.0.0.1:11434"`
	TextModel         string        `envconfig:"OLLAMA_TEXT_MODEL" default:"llama3:8b"`
	ImageModel        string        `envconfig:"OLLAMA_IMAGE_MODEL" default:"x/flux2-klein:latest"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"120s"`

	DigestPeriod  time.Duration `envconfig:"DIGEST_PERIOD" default:"5m"`
	DigestChannel string        `envconfig:"DIGEST_CHANNEL" default:"general"`
	DigestSecret  string        `envconfig:"DIGEST_SECRET" default:"development-secret"`
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
