package station

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/config"
)

type Config struct {
	config.Config

	StationID       string
	PublishInterval time.Duration
}

// LoadConfig reads the shared broker settings plus STATION_ID and PUBLISH_INTERVAL.
// Without MQTT_CLIENT_ID every simulator gets its own weather-station-<uuid> id.
func LoadConfig() (Config, error) {
	base, err := config.Load()
	if err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID")) == "" {
		base.MQTTClientID = "weather-station-" + uuid.NewString()
	}

	stationID := strings.TrimSpace(os.Getenv("STATION_ID"))
	if stationID == "" {
		stationID = "WS-XX"
	}

	intervalStr := strings.TrimSpace(os.Getenv("PUBLISH_INTERVAL"))
	if intervalStr == "" {
		intervalStr = "5s"
	}
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid PUBLISH_INTERVAL %q: %w", intervalStr, err)
	}
	if interval <= 0 {
		return Config{}, fmt.Errorf("PUBLISH_INTERVAL must be positive, got %v", interval)
	}

	return Config{Config: base, StationID: stationID, PublishInterval: interval}, nil
}
