// Command omrd runs the transposition daemon: it hosts the HTTP API,
// shells out to Audiveris and MuseScore, and sweeps expired sessions.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/HariKoor/OMR-API/internal/config"
	"github.com/HariKoor/OMR-API/internal/deps"
	"github.com/HariKoor/OMR-API/internal/logging"
	"github.com/HariKoor/OMR-API/internal/server"
	"github.com/HariKoor/OMR-API/internal/services/audiveris"
	"github.com/HariKoor/OMR-API/internal/services/musescore"
	"github.com/HariKoor/OMR-API/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, cfgPath, exists, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if exists {
		logger.Info("configuration loaded", logging.String("path", cfgPath))
	} else {
		logger.Info("no configuration file found, using defaults", logging.String("searched", cfgPath))
	}

	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		if !status.Available {
			logger.Warn("external tool unavailable",
				logging.String("name", status.Name),
				logging.String("detail", status.Detail),
			)
		}
	}

	store, err := session.Open(cfg)
	if err != nil {
		logger.Error("open session store", logging.Error(err))
		return
	}

	recognizer, err := audiveris.New(cfg.Tools.AudiverisBin, cfg.Tools.OMRTimeoutSeconds)
	if err != nil {
		logger.Error("init audiveris client", logging.Error(err))
		return
	}
	renderer, err := musescore.New(cfg.Tools.MuseScoreBin, cfg.Tools.RenderTimeoutSeconds)
	if err != nil {
		logger.Error("init musescore client", logging.Error(err))
		return
	}

	svc, err := server.NewService(cfg, logger, store, recognizer, renderer)
	if err != nil {
		logger.Error("init workflow service", logging.Error(err))
		return
	}

	d, err := server.New(cfg, store, svc, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("omrd shutting down")
}
