package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"raid-rehearsal/server/internal/app"
)

func main() {
	cfg := app.Config{}
	flag.StringVar(&cfg.Addr, "addr", ":8080", "listen address")
	flag.StringVar(&cfg.ScriptPath, "script", "", "choreography YAML, empty for the built-in script")
	flag.BoolVar(&cfg.WatchScripts, "watch", false, "reload the script directory on change")
	flag.StringVar(&cfg.Seed, "seed", "", "deterministic seed, empty for the default")
	flag.StringVar(&cfg.LogJSONPath, "log-json", "", "append structured events to this file")
	flag.StringVar(&cfg.ClientDir, "client-dir", "", "serve a static client from this directory")
	flag.Parse()

	if cfg.Seed == "" {
		cfg.Seed = os.Getenv("REHEARSAL_SEED")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
