package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/cache"
	"github.com/dmitrijs2005/backpack/internal/client/config"
	"github.com/dmitrijs2005/backpack/internal/client/metrics"
	"github.com/dmitrijs2005/backpack/internal/client/services"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/filex"
	"github.com/dmitrijs2005/backpack/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// pingTimeout bounds a single connectivity probe.
const pingTimeout = 3 * time.Second

// Deps are the collaborators of an App. NewApp builds the real ones.
type Deps struct {
	API      api.Client
	Cache    cache.Cache
	Logger   logging.Logger
	Metrics  *metrics.Metrics
	Prompter services.Prompter
	In       io.Reader
	Out      io.Writer
	Err      io.Writer
}

// App ties the client together for one CLI invocation.
type App struct {
	config  *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
	cache   cache.Cache
	api     api.Client

	store   *store.Store
	orch    *services.Orchestrator
	session *services.Session
	loader  *services.Loader

	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer

	mu        sync.Mutex
	reachable bool
	closeOnce sync.Once
}

// NewApp opens the cache, builds the API client and services, and leaves
// the store empty until Load.
func NewApp(ctx context.Context, cfg *config.Config, opts *RootOptions, stdin io.Reader, stdout, stderr io.Writer) (*App, error) {
	logger, err := logging.New(logging.Options{
		Backend: cfg.LogBackend,
		Level:   logLevel(cfg, opts),
		Format:  cfg.LogFormat,
		Output:  stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	dir := cfg.DataDir
	if cfg.CacheBackend != cache.BackendRedis {
		if dir, err = filex.EnsureDataDir(cfg.DataDir); err != nil {
			return nil, err
		}
	}

	c, err := cache.Open(ctx, cache.Options{
		Backend:    cfg.CacheBackend,
		DataDir:    dir,
		RedisURL:   cfg.RedisURL,
		Passphrase: cfg.CacheKey,
	})
	if err != nil {
		logger.Error(ctx, "error opening cache", "error", err)
		return nil, err
	}

	m := metrics.New()

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1)
	}

	client := api.New(api.Options{
		ServerRoot: cfg.ServerRoot,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		Tokens:     cache.Tokens{Cache: c},
		Limiter:    limiter,
		Logger:     logger,
		Metrics:    m,
	})

	in := bufio.NewReader(stdin)
	prompter := &ttyPrompter{reader: in, w: stderr, assumeYes: opts.AssumeOffline, interactive: stdinIsTerminal}

	return newApp(cfg, Deps{
		API:      client,
		Cache:    c,
		Logger:   logger,
		Metrics:  m,
		Prompter: prompter,
		In:       in,
		Out:      stdout,
		Err:      stderr,
	}), nil
}

func logLevel(cfg *config.Config, opts *RootOptions) string {
	if opts != nil && opts.Verbose {
		return "debug"
	}
	return cfg.LogLevel
}

func newApp(cfg *config.Config, d Deps) *App {
	logger := logging.OrNop(d.Logger)

	st := store.New(store.NewState(), d.Cache, logger, d.Metrics)
	session := services.NewSession(d.API, d.Cache, st, cfg.ClientID, cfg.RedirectURI, logger)

	reader, ok := d.In.(*bufio.Reader)
	if !ok {
		in := d.In
		if in == nil {
			in = os.Stdin
		}
		reader = bufio.NewReader(in)
	}
	out := d.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := d.Err
	if errOut == nil {
		errOut = os.Stderr
	}

	return &App{
		config:  cfg,
		logger:  logger,
		metrics: d.Metrics,
		cache:   d.Cache,
		api:     d.API,
		store:   st,
		orch: services.NewOrchestrator(d.API, st, services.Options{
			Prompter:        d.Prompter,
			SyncConcurrency: cfg.SyncConcurrency,
			Logger:          logger,
			Metrics:         d.Metrics,
		}),
		session:   session,
		loader:    services.NewLoader(d.API, d.Cache, st, session, logger),
		reader:    reader,
		out:       out,
		errOut:    errOut,
		reachable: true,
	}
}

// Close persists the state and releases the cache.
func (a *App) Close(ctx context.Context) error {
	var err error
	a.closeOnce.Do(func() {
		a.loader.Wait()
		err = errors.Join(a.store.Close(ctx), a.cache.Close())
		if z, ok := a.logger.(*logging.ZapLogger); ok {
			_ = z.Sync()
		}
	})
	return err
}

// Mode reports the mode recorded in the state.
func (a *App) Mode() Mode {
	if a.store.State().IsOffline {
		return ModeOffline
	}
	return ModeOnline
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	_, err := a.session.Token(ctx)
	return err == nil
}

// requireLogin fails with an ExitAuth error when no token is stored.
func (a *App) requireLogin(ctx context.Context) error {
	if _, err := a.session.Token(ctx); err != nil {
		return WrapExitError(ExitAuth, "not logged in, run `backpack login`", err)
	}
	return nil
}

// ensureLoaded brings the store up from the cache or the server.
func (a *App) ensureLoaded(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if a.store.State().Loaded {
		return nil
	}
	if _, err := a.loader.Load(ctx); err != nil {
		return err
	}
	return nil
}

func (a *App) setReachable(ctx context.Context, ok bool) (changed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reachable == ok {
		return false
	}
	a.reachable = ok
	if ok {
		a.logger.Info(ctx, "server reachable")
	} else {
		a.logger.Warn(ctx, "server unreachable")
	}
	return true
}

// StartOnlineStatusWatcher probes the server every interval until ctx ends.
// When the server comes back while the client is offline, queued changes
// are reconciled; a successful run switches back to online mode.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.api.Ping(pingCtx)
	cancel()

	ok := err == nil
	a.setReachable(ctx, ok)
	if !ok || !a.store.State().IsOffline {
		return
	}

	res, err := a.orch.Reconcile(ctx)
	if err != nil {
		a.logger.Warn(ctx, "automatic sync failed", "error", err, "failed", len(res.Failed))
		return
	}
	a.logger.Info(ctx, "back online", "entries", res.EntriesSynced, "awards", res.AwardsSynced)
}
