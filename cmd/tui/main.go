package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"

	"showdown/internal/config"
	"showdown/internal/game"
	"showdown/internal/tui"
)

const frameInterval = 33 * time.Millisecond

type client struct {
	screen   tcell.Screen
	engine   *game.Engine
	view     *tui.View
	controls *tui.Controls
	opts     game.MatchOptions
}

func main() {
	godotenv.Load(".env")

	cfg := config.Load()

	character := flag.String("character", cfg.Sim.Match.Character, "player character")
	mode := flag.String("mode", cfg.Sim.Match.Mode, "match mode: showdown or knockout")
	bots := flag.Int("bots", 0, "bot count (0 uses the mode default)")
	seed := flag.Int64("seed", 0, "random seed (0 picks one)")
	rosterPath := flag.String("roster", cfg.Sim.Match.RosterPath, "roster YAML file")
	flag.Parse()

	roster := game.DefaultRoster()
	if *rosterPath != "" {
		var err error
		if roster, err = game.LoadRoster(*rosterPath); err != nil {
			fmt.Fprintf(os.Stderr, "roster: %v\n", err)
			os.Exit(1)
		}
	}

	// The screen owns the terminal, so engine logs go nowhere.
	log.SetOutput(io.Discard)

	c, err := newClient(cfg.Sim, roster, game.MatchOptions{
		Character: *character,
		Mode:      game.ParseMode(*mode),
		Bots:      *bots,
		Seed:      *seed,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	c.run()
}

func newClient(simCfg config.SimConfig, roster *game.Roster, opts game.MatchOptions) (*client, error) {
	engine := game.NewEngine(simCfg, roster)
	if _, err := engine.StartMatch(opts); err != nil {
		return nil, err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()

	return &client{
		screen:   screen,
		engine:   engine,
		view:     tui.NewView(screen),
		controls: tui.NewControls(),
		opts:     opts,
	}, nil
}

func (c *client) run() {
	defer c.screen.Fini()

	c.engine.Start()
	defer c.engine.Stop()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := c.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch c.controls.HandleKey(ev, time.Now()) {
				case tui.ActionQuit:
					return
				case tui.ActionRestart:
					c.restart()
				}
			case *tcell.EventResize:
				c.screen.Sync()
			}
		case <-ticker.C:
			snap := c.engine.GetSnapshot()
			if snap != nil && snap.Outcome == game.InProgress {
				c.engine.SetInput(c.controls.Input(snap, time.Now()))
			}
			c.screen.Clear()
			c.view.Draw(snap)
			c.screen.Show()
		}
	}
}

func (c *client) restart() {
	// a fixed seed replays the same match
	if _, err := c.engine.StartMatch(c.opts); err == nil {
		c.controls.Reset()
	}
}
