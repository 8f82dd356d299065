package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"showdown/internal/api"
	"showdown/internal/config"
	"showdown/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  SHOWDOWN - ARENA SIMULATION")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	simCfg := appConfig.Sim
	serverCfg := appConfig.Server

	roster := game.DefaultRoster()
	if path := simCfg.Match.RosterPath; path != "" {
		loaded, err := game.LoadRoster(path)
		if err != nil {
			log.Printf("⚠️ Roster %s unusable, using built-in table: %v", path, err)
		} else {
			roster = loaded
			log.Printf("📜 Roster: %s (%d characters)", path, roster.Len())
		}
	}

	log.Printf("🎮 Config: %d TPS, mode %s, %d showdown bots, zone after %v at %.0f/s",
		simCfg.Match.TickRate, simCfg.Match.Mode, simCfg.Match.ShowdownBots,
		simCfg.Zone.Delay, simCfg.Zone.GrowthRate)
	log.Printf("🛡️ Resource limits: %d entities, %d projectiles, %d hazards, %d scheduled",
		simCfg.Limits.MaxEntities, simCfg.Limits.MaxProjectiles, simCfg.Limits.MaxHazards, simCfg.Limits.MaxScheduled)

	engine := game.NewEngine(simCfg, roster)
	api.ObserveEngine(engine)

	if _, err := engine.StartMatch(game.MatchOptions{Character: simCfg.Match.Character}); err != nil {
		log.Fatalf("❌ Could not start match: %v", err)
	}
	engine.Start()

	stopRestarts := make(chan struct{})
	if simCfg.Match.RestartDelay > 0 {
		go restartFinishedMatches(engine, simCfg.Match, stopRestarts)
	}

	// Start debug server
	var debugServer interface {
		Shutdown(context.Context) error
	}
	if serverCfg.DebugServer {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = serverCfg.DebugAddr
		debugCfg.BasicAuthUser = os.Getenv("DEBUG_USER")
		debugCfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
		if srv := api.StartDebugServer(debugCfg, engine); srv != nil {
			debugServer = srv
		}
	} else {
		log.Println("📊 Debug server disabled")
	}

	server := api.NewServer(engine, serverCfg)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}()

	if serverCfg.ControlToken == "" {
		log.Println("⚠️ CONTROL_TOKEN not set - anyone can start matches and send input")
	}

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	close(stopRestarts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ API shutdown: %v", err)
	}
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	engine.Stop()
	log.Println("👋 Goodbye!")
}

// restartFinishedMatches starts a fresh match once the current one has been
// over for the configured delay.
func restartFinishedMatches(engine *game.Engine, cfg config.MatchConfig, stop <-chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var finishedID string
	var finishedAt time.Time
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		snap := engine.GetSnapshot()
		if snap == nil || snap.Outcome == game.InProgress {
			continue
		}
		if snap.MatchID != finishedID {
			finishedID, finishedAt = snap.MatchID, time.Now()
			log.Printf("🏁 Match %s over: %s (rank %d), restarting in %v", snap.MatchID, snap.Outcome, snap.Rank, cfg.RestartDelay)
			continue
		}
		if time.Since(finishedAt) < cfg.RestartDelay {
			continue
		}
		if _, err := engine.StartMatch(game.MatchOptions{Character: cfg.Character}); err != nil {
			log.Printf("⚠️ Restart failed: %v", err)
		}
	}
}
