// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for simulation tuning and server settings.
//
// Every section has a Default*() constructor and, where operators need to
// tune it, a *FromEnv() variant that applies environment overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// MATCH CONFIGURATION
// =============================================================================

// MatchConfig holds match-level rules and the resource economy.
type MatchConfig struct {
	TickRate       int           // Simulation ticks per second
	Mode           string        // "showdown" or "knockout"
	ShowdownBots   int           // Bots spawned in showdown
	KnockoutBots   int           // Bots spawned in knockout (allies + enemies)
	Seed           int64         // 0 = time based
	RosterPath     string        // Optional YAML roster override
	Character      string        // Player character for server-started matches
	RestartDelay   time.Duration // Finished matches restart after this; 0 disables
	TileSize       float64       // World units per map cell
	ChargePerHit   int           // Ability charge granted per landed hit
	RevealDuration time.Duration // Visible in cover after attacking
	RegenDelay     time.Duration // No-damage time before passive regen
	RegenFraction  float64       // Fraction of max HP regenerated per second
}

// DefaultMatch returns the default match configuration.
func DefaultMatch() MatchConfig {
	return MatchConfig{
		TickRate:       30,
		Mode:           "showdown",
		ShowdownBots:   9,
		KnockoutBots:   5,
		TileSize:       50,
		ChargePerHit:   20, // 5 hits for a super
		RevealDuration: 2 * time.Second,
		RegenDelay:     3 * time.Second,
		RegenFraction:  0.13,
		RestartDelay:   5 * time.Second,
	}
}

// MatchFromEnv returns match configuration with environment variable overrides.
func MatchFromEnv() MatchConfig {
	cfg := DefaultMatch()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if mode := os.Getenv("MATCH_MODE"); mode != "" {
		cfg.Mode = mode
	}
	if bots := getEnvInt("MATCH_BOTS", 0); bots > 0 {
		cfg.ShowdownBots = bots
	}
	if seed := getEnvInt("MATCH_SEED", 0); seed != 0 {
		cfg.Seed = int64(seed)
	}
	cfg.RosterPath = os.Getenv("ROSTER_PATH")
	cfg.Character = os.Getenv("PLAYER_CHARACTER")
	cfg.RestartDelay = getEnvDuration("MATCH_RESTART_DELAY", cfg.RestartDelay)

	return cfg
}

// =============================================================================
// SAFE ZONE CONFIGURATION
// =============================================================================

// ZoneConfig controls the shrinking safe zone.
type ZoneConfig struct {
	Enabled          bool
	Delay            time.Duration // Dormant time before the gas starts moving
	GrowthRate       float64       // Inset growth in world units per second
	SafetyMargin     float64       // Inset never closes tighter than this
	ExposureInterval time.Duration // Time outside the zone per damage tick
	DamageFraction   float64       // Fraction of max HP per damage tick
}

// DefaultZone returns the default zone configuration.
func DefaultZone() ZoneConfig {
	return ZoneConfig{
		Enabled:          true,
		Delay:            5 * time.Second,
		GrowthRate:       15,
		SafetyMargin:     100,
		ExposureInterval: time.Second,
		DamageFraction:   0.2,
	}
}

// ZoneFromEnv returns zone configuration with environment variable overrides.
func ZoneFromEnv() ZoneConfig {
	cfg := DefaultZone()

	if d := getEnvDuration("ZONE_DELAY", 0); d > 0 {
		cfg.Delay = d
	}
	if g := getEnvFloat("ZONE_GROWTH", -1); g >= 0 {
		cfg.GrowthRate = g
	}
	if os.Getenv("ZONE_ENABLED") == "false" {
		cfg.Enabled = false
	}

	return cfg
}

// =============================================================================
// AI CONFIGURATION
// =============================================================================

// AIConfig tunes bot perception and patrol behavior.
type AIConfig struct {
	SightRange       float64       // Max distance a bot notices opponents
	CoverDetectRange float64       // Hidden opponents are seen inside this distance
	ArrivalRadius    float64       // Patrol point counts as reached inside this radius
	PatrolDwell      time.Duration // Pause before choosing the next patrol point
}

// DefaultAI returns the default AI configuration.
func DefaultAI() AIConfig {
	return AIConfig{
		SightRange:       600,
		CoverDetectRange: 120,
		ArrivalRadius:    20,
		PatrolDwell:      500 * time.Millisecond,
	}
}

// AIFromEnv returns AI configuration with environment variable overrides.
func AIFromEnv() AIConfig {
	cfg := DefaultAI()

	if r := getEnvFloat("AI_SIGHT_RANGE", 0); r > 0 {
		cfg.SightRange = r
	}

	return cfg
}

// =============================================================================
// HAZARD & STATUS CONFIGURATION
// =============================================================================

// HazardConfig holds pool, mine and poison timings.
type HazardConfig struct {
	PoolInterval   time.Duration
	PoolLifetime   time.Duration
	MineArmDelay   time.Duration
	MineLifetime   time.Duration
	PoisonInterval time.Duration
	PoisonDamage   int
	PoisonStacks   int
}

// DefaultHazards returns the default hazard configuration.
func DefaultHazards() HazardConfig {
	return HazardConfig{
		PoolInterval:   500 * time.Millisecond,
		PoolLifetime:   3 * time.Second,
		MineArmDelay:   time.Second,
		MineLifetime:   20 * time.Second,
		PoisonInterval: time.Second,
		PoisonDamage:   160,
		PoisonStacks:   4,
	}
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits caps live object counts so a runaway pattern cannot stall a tick.
type ResourceLimits struct {
	MaxEntities    int
	MaxProjectiles int
	MaxHazards     int
	MaxScheduled   int
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxEntities:    32,
		MaxProjectiles: 256,
		MaxHazards:     64,
		MaxScheduled:   512,
	}
}

// =============================================================================
// SPATIAL CONFIGURATION
// =============================================================================

// SpatialConfig holds spatial indexing settings.
type SpatialConfig struct {
	GridCellSize float64 // Entity grid cell size (covers the largest common query)
}

// DefaultSpatial returns the default spatial configuration.
func DefaultSpatial() SpatialConfig {
	return SpatialConfig{
		GridCellSize: 150,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int
	DebugAddr         string
	DebugServer       bool
	ControlToken      string        // when set, mutating routes require "Bearer <token>"
	CORSOrigins       []string      // nil keeps the router's localhost defaults
	BroadcastInterval time.Duration // websocket snapshot cadence
	MinimapSize       int           // default PNG edge in pixels
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:              3000,
		DebugAddr:         "127.0.0.1:6060",
		DebugServer:       true,
		BroadcastInterval: 50 * time.Millisecond,
		MinimapSize:       256,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.DebugServer = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	cfg.ControlToken = os.Getenv("CONTROL_TOKEN")
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	cfg.BroadcastInterval = getEnvDuration("BROADCAST_INTERVAL", cfg.BroadcastInterval)
	if n := getEnvInt("MINIMAP_SIZE", 0); n > 0 {
		cfg.MinimapSize = n
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// SimConfig is everything the simulation core consumes.
type SimConfig struct {
	Match   MatchConfig
	Zone    ZoneConfig
	AI      AIConfig
	Hazards HazardConfig
	Limits  ResourceLimits
	Spatial SpatialConfig
}

// DefaultSim returns simulation defaults without consulting the environment.
// Tests use this so results never depend on the caller's shell.
func DefaultSim() SimConfig {
	return SimConfig{
		Match:   DefaultMatch(),
		Zone:    DefaultZone(),
		AI:      DefaultAI(),
		Hazards: DefaultHazards(),
		Limits:  DefaultLimits(),
		Spatial: DefaultSpatial(),
	}
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server ServerConfig
	Sim    SimConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	sim := DefaultSim()
	sim.Match = MatchFromEnv()
	sim.Zone = ZoneFromEnv()
	sim.AI = AIFromEnv()

	return AppConfig{
		Server: ServerFromEnv(),
		Sim:    sim,
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go duration syntax ("5s") or bare milliseconds ("5000").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
