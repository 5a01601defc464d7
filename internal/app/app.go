package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	server "raid-rehearsal/server"
	servernet "raid-rehearsal/server/internal/net"
	"raid-rehearsal/server/logging"
	loggingSinks "raid-rehearsal/server/logging/sinks"
)

// Config carries everything main needs to hand over.
type Config struct {
	Addr         string
	ScriptPath   string
	WatchScripts bool
	Seed         string
	LogJSONPath  string
	ClientDir    string
	Logger       *log.Logger
}

// Run wires the logging router, the encounter, and the hub together and
// serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	logConfig := logging.DefaultConfig()
	if cfg.LogJSONPath != "" {
		logConfig.JSON.FilePath = cfg.LogJSONPath
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, "json")
	}

	namedSinks := make([]logging.NamedSink, 0, len(logConfig.EnabledSinks))
	if logConfig.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "console",
			Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console),
		})
	}
	var jsonFile *os.File
	if logConfig.HasSink("json") && logConfig.JSON.FilePath != "" {
		file, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logConfig.JSON.FilePath, err)
		}
		jsonFile = file
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSONSink(file, logConfig.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(nil, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
		if jsonFile != nil {
			jsonFile.Close()
		}
	}()

	script := server.DefaultScript()
	if cfg.ScriptPath != "" {
		loaded, err := server.LoadScript(cfg.ScriptPath)
		if err != nil {
			return fmt.Errorf("failed to load script: %w", err)
		}
		script = loaded
	}

	opts := server.DefaultEncounterOptions()
	if cfg.Seed != "" {
		opts.Seed = cfg.Seed
	}

	encounter := server.NewEncounter(opts, script, router)
	hub := server.NewHub(encounter)

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	if cfg.WatchScripts && cfg.ScriptPath != "" {
		watcher, err := server.NewScriptWatcher(filepath.Dir(cfg.ScriptPath))
		if err != nil {
			return fmt.Errorf("failed to watch scripts: %w", err)
		}
		defer watcher.Close()
		go func() {
			for {
				select {
				case path, ok := <-watcher.Events:
					if !ok {
						return
					}
					if err := hub.ReloadScript(path); err != nil {
						logger.Printf("rejected script %s: %v", path, err)
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					logger.Printf("script watcher error: %v", err)
				}
			}
		}()
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    logger,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Printf("server listening on %s", srv.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}
