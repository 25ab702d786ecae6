package live

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LoopPeriod      time.Duration `envconfig:"LOOP_PERIOD" default:"30s"`
	ServerPort      string        `envconfig:"SERVER_PORT" default:"8080"`
	VenueBaseURL    string        `envconfig:"VENUE_BASE_URL" default:"https://api.example-venue.com"`
	VenueWSURL      string        `envconfig:"VENUE_WS_URL" default:"wss://stream.example-venue.com/fills"`
	VenueAPIKeyEnc  string        `envconfig:"VENUE_API_KEY_ENC"`
	VenueSecretEnc  string        `envconfig:"VENUE_API_SECRET_ENC"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
