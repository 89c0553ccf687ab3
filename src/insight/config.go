package insight

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIKey  string        `envconfig:"INSIGHT_API_KEY"`
	BaseURL string        `envconfig:"INSIGHT_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Model   string        `envconfig:"INSIGHT_MODEL" default:"gemini-2.5-flash-preview-09-2025"`
	Timeout time.Duration `envconfig:"INSIGHT_TIMEOUT" default:"30s"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
