package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/HariKoor/OMR-API/internal/config"
	"github.com/HariKoor/OMR-API/internal/deps"
	"github.com/HariKoor/OMR-API/internal/logging"
	"github.com/HariKoor/OMR-API/internal/session"
)

// Daemon owns the long-running pieces of the service: the HTTP API, the
// retention sweeper, and the single-instance lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *session.Store
	svc    *Service

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	SessionDBPath string
	LockFilePath  string
	Dependencies  []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *session.Store, svc *Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || svc == nil {
		return nil, errors.New("daemon requires config, store, and service")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "omrd.lock")
	apiSrv, err := newAPIServer(cfg, svc, store, logger)
	if err != nil {
		return nil, err
	}

	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		svc:      svc,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		api:      apiSrv,
	}, nil
}

// Start acquires the instance lock, binds the API server, and launches the
// retention sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	d.wg.Add(1)
	go d.sweepLoop(runCtx)

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down background work and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the session store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the bound API address, empty before Start.
func (d *Daemon) Addr() string {
	if d.api == nil || d.api.listener == nil {
		return ""
	}
	return d.api.listener.Addr().String()
}

// Status reports runtime information for diagnostics.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		SessionDBPath: d.store.Path(),
		LockFilePath:  d.lockPath,
		Dependencies:  deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
}

// sweepLoop periodically removes sessions past the retention window.
func (d *Daemon) sweepLoop(ctx context.Context) {
	defer d.wg.Done()

	interval := time.Duration(d.cfg.Sessions.SweepMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.svc.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Warn("session sweep failed", logging.Error(err))
			}
		}
	}
}
