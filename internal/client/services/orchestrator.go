package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/metrics"
	"github.com/dmitrijs2005/backpack/internal/client/models"
	"github.com/dmitrijs2005/backpack/internal/client/store"
	"github.com/dmitrijs2005/backpack/internal/common"
	"github.com/dmitrijs2005/backpack/internal/logging"
)

// DefaultSyncConcurrency bounds the requests in flight during one
// reconciliation phase.
const DefaultSyncConcurrency = 4

// Prompter asks the user whether to continue in offline mode after an
// action failed for lack of connectivity.
type Prompter interface {
	ConfirmOffline(ctx context.Context, action string) bool
}

// PromptFunc adapts a function to Prompter.
type PromptFunc func(ctx context.Context, action string) bool

func (f PromptFunc) ConfirmOffline(ctx context.Context, action string) bool { return f(ctx, action) }

// AlwaysOffline accepts every offline switch. Useful for non-interactive use.
var AlwaysOffline = PromptFunc(func(context.Context, string) bool { return true })

// NeverOffline declines every offline switch.
var NeverOffline = PromptFunc(func(context.Context, string) bool { return false })

// Options tune an Orchestrator. Zero values select defaults.
type Options struct {
	Prompter        Prompter
	SyncConcurrency int
	Logger          logging.Logger
	Metrics         *metrics.Metrics
	Now             func() time.Time
	NewID           func() models.ID
}

// Orchestrator routes entity mutations to the server or to the local
// offline queue, and replays the queue in Reconcile.
type Orchestrator struct {
	api      api.Client
	store    *store.Store
	prompt   Prompter
	logger   logging.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate

	syncMu          sync.Mutex
	syncConcurrency int
	now             func() time.Time
	newID           func() models.ID
}

func NewOrchestrator(client api.Client, st *store.Store, opts Options) *Orchestrator {
	o := &Orchestrator{
		api:             client,
		store:           st,
		prompt:          opts.Prompter,
		logger:          logging.OrNop(opts.Logger),
		metrics:         opts.Metrics,
		validate:        validator.New(),
		syncConcurrency: opts.SyncConcurrency,
		now:             opts.Now,
		newID:           opts.NewID,
	}
	if o.prompt == nil {
		o.prompt = NeverOffline
	}
	if o.syncConcurrency <= 0 {
		o.syncConcurrency = DefaultSyncConcurrency
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = func() models.ID { return models.ID(common.NewLocalID()) }
	}
	return o
}

// Store returns the store the orchestrator dispatches to.
func (o *Orchestrator) Store() *store.Store { return o.store }

// IsOffline reports the current mode.
func (o *Orchestrator) IsOffline() bool { return o.store.State().IsOffline }

// SetOffline switches mode explicitly.
func (o *Orchestrator) SetOffline(offline bool) {
	o.store.Dispatch(store.SetOffline{Offline: offline})
	o.metrics.SetOnline(!offline)
}

// mutate runs online when the client is online. A connectivity failure
// asks the user to switch to offline mode and, if confirmed, runs offline
// with the same intended change.
func (o *Orchestrator) mutate(ctx context.Context, action string, online func(context.Context) error, offline func() error) error {
	if o.IsOffline() {
		return offline()
	}

	err := online(ctx)
	if err == nil || !api.IsConnectivity(err) {
		return err
	}

	o.logger.Warn(ctx, "server unreachable", "action", action, "error", err)
	if !o.prompt.ConfirmOffline(ctx, action) {
		return fmt.Errorf("%w: %w", common.ErrOfflineDeclined, err)
	}

	o.SetOffline(true)
	return offline()
}

// onlineOnly runs fn when online and fails with common.ErrOnlineOnly
// otherwise. Connectivity failures are reported the same way.
func (o *Orchestrator) onlineOnly(ctx context.Context, action string, fn func(context.Context) error) error {
	if o.IsOffline() {
		return fmt.Errorf("%s: %w", action, common.ErrOnlineOnly)
	}
	err := fn(ctx)
	if api.IsConnectivity(err) {
		return fmt.Errorf("%s: %w: %w", action, common.ErrOnlineOnly, err)
	}
	return err
}

func (o *Orchestrator) today() string {
	return o.now().UTC().Format(time.DateOnly)
}
