/*
animaview loads a skinned glTF character, plays its first clip and lets
the operator swap between a fixed set of models from the keyboard or the
HTTP control surface.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spaghettifunk/animaview/engine"
	"github.com/spaghettifunk/animaview/engine/config"
	"github.com/spaghettifunk/animaview/engine/control"
	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/platform"
	"github.com/spaghettifunk/animaview/engine/platform/window"
	"github.com/spaghettifunk/animaview/viewer"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (default ./"+config.DefaultFile+" if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("%s", err)
	}
	core.SetLogLevel(core.ParseLogLevel(cfg.Log.Level))

	var surface *control.Surface
	if cfg.Control.Enabled {
		surface = control.NewSurface()
	}

	v, err := viewer.New(cfg, surface)
	if err != nil {
		core.LogFatal("%s", err)
	}

	var p platform.Platform = platform.NewHeadless()
	if cfg.Window.Enabled {
		p = window.New()
	}

	e, err := engine.New(v.Game, p)
	if err != nil {
		core.LogFatal("%s", err)
	}
	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("%s", err)
	}

	var server *control.Server
	if surface != nil {
		server = control.NewServer(cfg.Control.Addr, surface, v, v.Diagnostics())
		if err := server.Start(); err != nil {
			_ = e.Shutdown()
			core.LogFatal("%s", err)
		}
	}

	// signal channel to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			core.LogWarn("control server shutdown: %s", err)
		}
		cancel()
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}
