package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"animlab/internal/api"
	"animlab/internal/catalog"
	"animlab/internal/config"
	"animlab/internal/deps"
	"animlab/internal/jobs"
	"animlab/internal/logging"
	"animlab/internal/media"
	"animlab/internal/mirror"
	"animlab/internal/render"
	"animlab/internal/store"
	"animlab/internal/tts"
)

// ErrAlreadyRunning is returned when another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another animlab daemon instance is already running")

// Daemon owns the service lifecycle.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	store    store.Store
	pool     *jobs.Pool
	listener net.Listener
	group    *errgroup.Group
	cancel   context.CancelFunc

	running  atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Addr         string
	Store        string
	LockFilePath string
	PendingJobs  int
}

// New constructs a daemon. Nothing is opened until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start runs preflight, acquires the lock, opens the store, seeds it from the
// mirror, starts the worker pool, and begins serving the API. It returns once
// the listener is bound.
func (d *Daemon) Start(ctx context.Context) (err error) {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	if failed, ok := FirstFailure(Preflight(d.cfg)); ok {
		return fmt.Errorf("preflight %s: %s", failed.Name, failed.Detail)
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer func() {
		if err != nil {
			if d.pool != nil {
				d.pool.Stop()
				d.pool = nil
			}
			d.release()
		}
	}()

	st, err := store.Open(ctx, d.cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	d.store = st

	mir := mirror.New(d.cfg.Paths.MirrorFile, st, d.logger)
	if _, err := mir.Seed(ctx); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	library := media.NewLibrary(d.cfg.Paths.VideoDir, d.cfg.Paths.AudioDir)
	svc := catalog.New(st, mir, d.logger,
		catalog.WithPageSize(d.cfg.API.PageSize),
		catalog.WithAudioCounter(library),
	)

	d.pool = jobs.NewPool(d.cfg.Jobs.Workers, d.cfg.Jobs.QueueSize, d.logger)
	d.pool.Start(ctx)
	dispatcher := jobs.NewDispatcher(
		d.pool,
		st,
		tts.NewCommandSynthesizer(d.cfg.TTS),
		d.cfg.Paths.AudioDir,
		render.NewRunner(d.cfg, d.logger),
		d.logger,
	)

	requirements := deps.Requirements(d.cfg)
	logDependencySnapshot(d.logger, deps.CheckBinaries(requirements))
	server := api.NewServer(svc, dispatcher, library, api.Options{
		Token:          d.cfg.API.Token,
		AllowedOrigins: d.cfg.API.AllowedOrigins,
		Dependencies:   func() []deps.Status { return deps.CheckBinaries(requirements) },
	}, d.logger)

	listener, err := net.Listen("tcp", d.cfg.API.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	d.listener = listener

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return server.Serve(groupCtx, listener)
	})
	d.group = group
	d.cancel = cancel
	d.running.Store(true)

	d.logger.Info("animlab daemon started",
		logging.String("lock", d.lockPath),
		logging.String("store", store.Describe(d.cfg)),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

// Wait blocks until the API server stops, then drains the worker pool and
// releases resources.
func (d *Daemon) Wait() error {
	if !d.running.Load() {
		return nil
	}
	d.stopOnce.Do(func() {
		d.stopErr = d.group.Wait()
		d.cancel()
		d.pool.Stop()
		d.release()
		d.running.Store(false)
		d.logger.Info("animlab daemon stopped")
	})
	return d.stopErr
}

// Stop cancels serving and waits for shutdown.
func (d *Daemon) Stop() error {
	if !d.running.Load() {
		return nil
	}
	d.cancel()
	return d.Wait()
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	return d.Wait()
}

// Status reports runtime information.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		Store:        store.Describe(d.cfg),
		LockFilePath: d.lockPath,
	}
	if status.Running {
		status.Addr = d.listener.Addr().String()
		status.PendingJobs = d.pool.Pending()
	}
	return status
}

func (d *Daemon) release() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("failed to close store", logging.Error(err))
		}
		d.store = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

func logDependencySnapshot(logger *slog.Logger, statuses []deps.Status) {
	for _, status := range statuses {
		attrs := logging.Args(
			logging.String(logging.FieldEventType, "dependency_snapshot"),
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.Bool("available", status.Available),
		)
		switch {
		case status.Available:
			logger.Info("dependency available", attrs...)
		case status.Optional:
			logger.Info("optional dependency missing", append(attrs, logging.String("detail", status.Detail))...)
		default:
			logger.Warn("required dependency missing", append(attrs, logging.String("detail", status.Detail))...)
		}
	}
}
