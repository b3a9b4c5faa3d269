package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/backpack/internal/client/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Health is the body of /healthz.
type Health struct {
	Mode      Mode       `json:"mode"`
	Reachable bool       `json:"reachable"`
	ToSync    int        `json:"toSync"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
}

func (a *App) health() Health {
	a.mu.Lock()
	reachable := a.reachable
	a.mu.Unlock()

	st := a.store.State()
	return Health{Mode: a.Mode(), Reachable: reachable, ToSync: st.ToSync, LastSync: st.LastSync}
}

// router serves the local status endpoints of `watch`.
func (a *App) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.health())
	})
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler())
	}
	return r
}

func newWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep probing the server and sync as soon as it is back",
		Long: `Probe the server every --online-check interval until interrupted. When
the server comes back while in offline mode, queued changes are synced.
With --metrics-addr, /healthz and /metrics are served on that address.`,
		Args: cobra.NoArgs,
		RunE: runWith(opts, func(ctx context.Context, a *App, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			return a.Watch(ctx, f.GetErrWriter())
		}),
	}
}

// Watch runs the online status watcher, and the status server when an
// address is configured, until ctx is done. Mode changes are reported on w.
func (a *App) Watch(ctx context.Context, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, unsubscribe := a.store.Subscribe(16)
	defer unsubscribe()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	if addr := a.config.MetricsAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: a.router(), ReadHeaderTimeout: readHeaderTimeout}

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			a.logger.Info(ctx, "stopping status server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.logger.Info(ctx, "starting status server", "address", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("status server: %w", err)
				cancel()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	fmt.Fprintf(w, "Watching %s, mode %s, %d unsynced changes. Press Ctrl+C to stop.\n", a.config.ServerRoot, a.Mode(), a.store.State().ToSync)

	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case e := <-events:
			switch act := e.Action.(type) {
			case store.SetOffline:
				if act.Offline {
					fmt.Fprintln(w, "Switched to offline mode.")
				} else {
					fmt.Fprintln(w, "Back online.")
				}
			case store.SyncSuccess:
				fmt.Fprintf(w, "Synced at %s.\n", act.LastSync.Local().Format(time.TimeOnly))
			}
		}
	}

	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
