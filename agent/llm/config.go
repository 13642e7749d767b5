package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
	openrouterx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	InsightModel       string  `envconfig:"INSIGHT_MODEL" split_words:"true"`
	InsightTemperature float32 `envconfig:"INSIGHT_TEMPERATURE" split_words:"true" default:"-1"`
}

// Offline reports whether no credential is configured. The gateway then runs
// against a deterministic stand-in model.
func (c Config) Offline() bool {
	return strings.TrimSpace(c.APIKey) == ""
}

func (c Config) Validate() error {
	if c.Offline() {
		return nil
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be >= 0", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouter() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// InsightOpenRouter is the client config for dashboard briefings; it may use
// a different model and temperature than the conversation.
func (c Config) InsightOpenRouter() openrouterx.Config {
	cfg := c.OpenRouter()
	if v := strings.TrimSpace(c.InsightModel); v != "" {
		cfg.Model = v
	}
	if c.InsightTemperature >= 0 {
		cfg.Temperature = c.InsightTemperature
	}
	return cfg
}
