package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	openrouterx "github.com/tanpawarit/chative-workplace-assistant/pkg/openrouter"
)

// Config is loaded with prefix OPENROUTER. Per-agent model and temperature
// overrides fall back to the defaults; a negative temperature means unset.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
	Driver             string        `envconfig:"DRIVER" split_words:"true" default:"eino"`

	ProxyModel            string  `envconfig:"PROXY_MODEL" split_words:"true"`
	DirectoryModel        string  `envconfig:"DIRECTORY_MODEL" split_words:"true"`
	SchedulingModel       string  `envconfig:"SCHEDULING_MODEL" split_words:"true"`
	LocationModel         string  `envconfig:"LOCATION_MODEL" split_words:"true"`
	ProxyTemperature      float32 `envconfig:"PROXY_TEMPERATURE" split_words:"true" default:"-1"`
	DirectoryTemperature  float32 `envconfig:"DIRECTORY_TEMPERATURE" split_words:"true" default:"-1"`
	SchedulingTemperature float32 `envconfig:"SCHEDULING_TEMPERATURE" split_words:"true" default:"-1"`
	LocationTemperature   float32 `envconfig:"LOCATION_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) overrides(agent contractx.AgentName) (string, float32) {
	switch agent {
	case contractx.AgentProxy:
		return c.ProxyModel, c.ProxyTemperature
	case contractx.AgentDirectory:
		return c.DirectoryModel, c.DirectoryTemperature
	case contractx.AgentScheduling:
		return c.SchedulingModel, c.SchedulingTemperature
	case contractx.AgentLocation:
		return c.LocationModel, c.LocationTemperature
	default:
		return "", -1
	}
}

// OpenRouterFor resolves the completion backend config of one agent.
func (c Config) OpenRouterFor(agent contractx.AgentName) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	m, t := c.overrides(agent)
	if v := strings.TrimSpace(m); v != "" {
		modelName = v
	}
	if t >= 0 {
		temp = t
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
		Driver:             strings.TrimSpace(c.Driver),
	}
}
