package memory

import (
	"fmt"
	"time"
)

const (
	ModeInProcess = "inprocess"
	ModeQStash    = "qstash"
	ModeOff       = "off"
)

// Config is read with the MEMORY_ prefix.
type Config struct {
	Mode         string        `split_words:"true" default:"inprocess"`
	Concurrency  int64         `split_words:"true" default:"4"`
	Timeout      time.Duration `split_words:"true" default:"30s"`
	OutlineLimit int           `split_words:"true" default:"12"`
	CallbackURL  string        `envconfig:"CALLBACK_URL"`
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeInProcess, ModeOff:
	case ModeQStash:
		if c.CallbackURL == "" {
			return fmt.Errorf("memory: MEMORY_CALLBACK_URL is required in %s mode", ModeQStash)
		}
	default:
		return fmt.Errorf("memory: unknown mode %q", c.Mode)
	}
	return nil
}
