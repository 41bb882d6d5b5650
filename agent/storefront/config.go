package storefront

import "time"

// Config is read with the SHOPWARE_ prefix.
type Config struct {
	APIBase        string        `envconfig:"API_BASE" required:"true"`
	AccessKey      string        `split_words:"true" required:"true"`
	LanguageID     string        `split_words:"true"`
	SalesChannelID string        `split_words:"true"`
	Timeout        time.Duration `split_words:"true" default:"60s"`
}
