package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"colsp-attachments"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	HuggingFaceAPIKey string `envconfig:"HUGGINGFACE_API_KEY"`
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY"`

	// Moderation policy knobs. Defaults match the tuned production values;
	// FailOpen controls what an unavailable classifier contributes (true:
	// score 0.0, false: the submission errors out instead of passing).
	GamblingThreshold  float64 `envconfig:"GAMBLING_THRESHOLD" default:"0.25"`
	ViolationThreshold float64 `envconfig:"VIOLATION_THRESHOLD" default:"0.44"`
	ModerationFailOpen bool    `envconfig:"MODERATION_FAIL_OPEN" default:"true"`

	// Submission rate limit: accepted reports per identity per window.
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"5m"`
	RateLimitMax    int64         `envconfig:"RATE_LIMIT_MAX" default:"1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("COLSP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasHuggingFace() bool {
	return c.HuggingFaceAPIKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}
