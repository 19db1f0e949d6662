// Package config holds generation and server settings. Defaults can be
// overridden from the environment or a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/talgya/tradewinds/internal/world"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid generation config")

// Generation holds world generation parameters.
type Generation struct {
	TileSize          float64 `json:"tile_size"`
	WaterThreshold    float64 `json:"water_threshold"`
	MountainThreshold float64 `json:"mountain_threshold"`
	TerritorySize     int     `json:"territory_size"`
	RelaxationCycles  int     `json:"relaxation_cycles"`
	KMeansIterations  int     `json:"kmeans_iterations"`
	TurnCostFactor    float64 `json:"turn_cost_factor"`
	LongPathHops      int     `json:"long_path_hops"`
	JitterNoise       string  `json:"jitter_noise"` // "simplex" or "perlin"

	SpawnRates map[world.ResourceType]float64 `json:"spawn_rates"`
}

// DefaultGeneration returns the standard generation parameters.
func DefaultGeneration() Generation {
	return Generation{
		TileSize:          12,
		WaterThreshold:    0.505,
		MountainThreshold: 0.5125,
		TerritorySize:     100,
		RelaxationCycles:  50,
		KMeansIterations:  300,
		TurnCostFactor:    -0.001,
		LongPathHops:      20,
		JitterNoise:       "simplex",
		SpawnRates: map[world.ResourceType]float64{
			world.ResourceWood:  0.021,
			world.ResourceStone: 0.014,
			world.ResourceIron:  0.025,
			world.ResourcePine:  0.005,
			world.ResourceAmber: 0.006,
		},
	}
}

// Validate rejects parameters that cannot produce a world. Thresholds above
// 1 are allowed: they force an all-water or mountain-free map.
func (g Generation) Validate() error {
	switch {
	case !(g.TileSize > 0) || math.IsInf(g.TileSize, 0):
		return fmt.Errorf("%w: tile size %v must be positive", ErrInvalidConfig, g.TileSize)
	case math.IsNaN(g.WaterThreshold) || g.WaterThreshold < 0:
		return fmt.Errorf("%w: water threshold %v", ErrInvalidConfig, g.WaterThreshold)
	case math.IsNaN(g.MountainThreshold) || g.MountainThreshold < 0:
		return fmt.Errorf("%w: mountain threshold %v", ErrInvalidConfig, g.MountainThreshold)
	case g.TerritorySize <= 0:
		return fmt.Errorf("%w: territory size %d must be positive", ErrInvalidConfig, g.TerritorySize)
	case g.RelaxationCycles < 0:
		return fmt.Errorf("%w: relaxation cycles %d", ErrInvalidConfig, g.RelaxationCycles)
	case g.KMeansIterations <= 0:
		return fmt.Errorf("%w: k-means iterations %d must be positive", ErrInvalidConfig, g.KMeansIterations)
	case g.LongPathHops <= 0:
		return fmt.Errorf("%w: long path hops %d must be positive", ErrInvalidConfig, g.LongPathHops)
	case math.IsNaN(g.TurnCostFactor):
		return fmt.Errorf("%w: turn cost factor is NaN", ErrInvalidConfig)
	}
	if g.JitterNoise != "" && g.JitterNoise != "simplex" && g.JitterNoise != "perlin" {
		return fmt.Errorf("%w: unknown jitter noise %q", ErrInvalidConfig, g.JitterNoise)
	}
	for rt, rate := range g.SpawnRates {
		if math.IsNaN(rate) || rate < 0 {
			return fmt.Errorf("%w: spawn rate for %s is %v", ErrInvalidConfig, rt, rate)
		}
	}
	if g.TurnCostFactor > 0 {
		slog.Warn("positive turn cost factor penalizes turns", "turn_cost_factor", g.TurnCostFactor)
	}
	return nil
}

// Server holds settings for the generation service and CLI.
type Server struct {
	Port          int
	DBPath        string
	LogLevel      string
	RatePerMinute int
	RateBurst     int
	MapWidth      float64
	MapHeight     float64
	ShutdownGrace time.Duration
}

// DefaultServer returns the standard service settings.
func DefaultServer() Server {
	return Server{
		Port:          8080,
		DBPath:        "data/tradewinds.db",
		LogLevel:      "info",
		RatePerMinute: 6,
		RateBurst:     2,
		MapWidth:      2400,
		MapHeight:     1350,
		ShutdownGrace: 10 * time.Second,
	}
}

// Config is the full runtime configuration.
type Config struct {
	Generation Generation
	Server     Server
}

// Load reads an optional .env file, then overlays environment variables on
// the defaults and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		Generation: loadGeneration(),
		Server:     loadServer(),
	}
	if err := cfg.Generation.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadGeneration() Generation {
	g := DefaultGeneration()
	g.TileSize = envFloat("TILE_SIZE", g.TileSize)
	g.WaterThreshold = envFloat("WATER_THRESHOLD", g.WaterThreshold)
	g.MountainThreshold = envFloat("MOUNTAIN_THRESHOLD", g.MountainThreshold)
	g.TerritorySize = envInt("TERRITORY_SIZE", g.TerritorySize)
	g.RelaxationCycles = envInt("RELAXATION_CYCLES", g.RelaxationCycles)
	g.KMeansIterations = envInt("KMEANS_ITERATIONS", g.KMeansIterations)
	g.TurnCostFactor = envFloat("TURN_COST_FACTOR", g.TurnCostFactor)
	g.LongPathHops = envInt("LONG_PATH_HOPS", g.LongPathHops)
	g.JitterNoise = envString("JITTER_NOISE", g.JitterNoise)
	return g
}

func loadServer() Server {
	s := DefaultServer()
	s.Port = envInt("PORT", s.Port)
	s.DBPath = envString("DB_PATH", s.DBPath)
	s.LogLevel = envString("LOG_LEVEL", s.LogLevel)
	s.RatePerMinute = envInt("RATE_PER_MINUTE", s.RatePerMinute)
	s.RateBurst = envInt("RATE_BURST", s.RateBurst)
	s.MapWidth = envFloat("MAP_WIDTH", s.MapWidth)
	s.MapHeight = envFloat("MAP_HEIGHT", s.MapHeight)
	return s
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(envString(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(envString(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}
