package station

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
)

// Fault rates of the simulated sensors.
const (
	temperatureFaultRate = 0.02
	humidityFaultRate    = 0.02
)

// Payload is one simulated station message.
type Payload struct {
	StationID   string  `json:"stationId"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

// Generator produces plausible readings with occasional sensor faults: the -999 temperature
// code and humidity far outside 0..100.
type Generator struct {
	stationID string
	rng       *rand.Rand
}

func NewGenerator(stationID string, seed uint64) *Generator {
	return &Generator{
		stationID: stationID,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (g *Generator) Next(now time.Time) Payload {
	return Payload{
		StationID:   g.stationID,
		Temperature: g.temperature(),
		Humidity:    g.humidity(),
		Timestamp:   now.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func (g *Generator) temperature() float64 {
	if g.rng.Float64() < temperatureFaultRate {
		return types.TemperatureMissingCode
	}
	return round1(g.uniform(15, 30))
}

func (g *Generator) humidity() float64 {
	if g.rng.Float64() < humidityFaultRate {
		return round1(g.uniform(-100, 200))
	}
	return round1(g.uniform(30, 60))
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
