package api

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const EnvProduction = "production"

type Config struct {
	Addr           string        `split_words:"true" default:":8080"`
	Environment    string        `split_words:"true" default:"development"`
	AllowedOrigins []string      `split_words:"true"`
	RateLimitRPS   float64       `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int           `split_words:"true" default:"10"`
	ReadTimeout    time.Duration `split_words:"true" default:"15s"`
	WriteTimeout   time.Duration `split_words:"true" default:"120s"`
	RequestTimeout time.Duration `split_words:"true" default:"90s"`
	MaxBodyBytes   int64         `split_words:"true" default:"65536"`
}

func (c Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvProduction)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("http addr is required")
	}
	if c.Production() && slices.Contains(c.AllowedOrigins, "*") {
		return errors.New("wildcard CORS origin is not allowed in production")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit must not be negative: rps=%v burst=%d", c.RateLimitRPS, c.RateLimitBurst)
	}
	return nil
}
