// Package config loads the server configuration from HANDS_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	NATSURL      string // HANDS_NATS_URL (default "nats://127.0.0.1:4222")
	EmbedNATS    bool   // HANDS_EMBED_NATS (default false)
	NATSStoreDir string // HANDS_NATS_STORE_DIR (embedded server only; default temp dir)
	DatabaseURL  string // HANDS_DATABASE_URL (optional, empty = no meeting directory)
	GRPCAddr     string `validate:"required"` // HANDS_GRPC_ADDR (default ":9090")
	HTTPAddr     string `validate:"required"` // HANDS_HTTP_ADDR (default ":8080")
	AuthToken    string // HANDS_AUTH_TOKEN (optional, empty = auth disabled)

	MaxQueue        int           `validate:"min=1,max=10000"`            // HANDS_MAX_QUEUE (default 200)
	MaxNameLen      int           `validate:"min=1,max=1000"`             // HANDS_MAX_NAME_LEN (default 50)
	AckGrace        time.Duration `validate:"min=1s,max=1h"`              // HANDS_ACK_GRACE (default 30s)
	StoreTimeout    time.Duration `validate:"min=100ms,max=1m"`           // HANDS_STORE_TIMEOUT (default 5s)
	StrictHostCheck bool          // HANDS_STRICT_HOST_CHECK (default false)
	IdleTimeout     time.Duration `validate:"gte=0s"`                     // HANDS_SESSION_IDLE_TIMEOUT (default 0, sessions never expire)
	LogLevel        string        `validate:"oneof=debug info warn error"` // HANDS_LOG_LEVEL (default "info")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Load() (*Config, error) {
	c := &Config{
		NATSURL:      envOrDefault("HANDS_NATS_URL", "nats://127.0.0.1:4222"),
		NATSStoreDir: os.Getenv("HANDS_NATS_STORE_DIR"),
		DatabaseURL:  os.Getenv("HANDS_DATABASE_URL"),
		GRPCAddr:     envOrDefault("HANDS_GRPC_ADDR", ":9090"),
		HTTPAddr:     envOrDefault("HANDS_HTTP_ADDR", ":8080"),
		AuthToken:    os.Getenv("HANDS_AUTH_TOKEN"),
		LogLevel:     strings.ToLower(envOrDefault("HANDS_LOG_LEVEL", "info")),
	}

	var errs []error
	var err error
	if c.EmbedNATS, err = envBool("HANDS_EMBED_NATS", false); err != nil {
		errs = append(errs, err)
	}
	if c.StrictHostCheck, err = envBool("HANDS_STRICT_HOST_CHECK", false); err != nil {
		errs = append(errs, err)
	}
	if c.MaxQueue, err = envInt("HANDS_MAX_QUEUE", 200); err != nil {
		errs = append(errs, err)
	}
	if c.MaxNameLen, err = envInt("HANDS_MAX_NAME_LEN", 50); err != nil {
		errs = append(errs, err)
	}
	if c.AckGrace, err = envDuration("HANDS_ACK_GRACE", 30*time.Second); err != nil {
		errs = append(errs, err)
	}
	if c.StoreTimeout, err = envDuration("HANDS_STORE_TIMEOUT", 5*time.Second); err != nil {
		errs = append(errs, err)
	}
	if c.IdleTimeout, err = envDuration("HANDS_SESSION_IDLE_TIMEOUT", 0); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
