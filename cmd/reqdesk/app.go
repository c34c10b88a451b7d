package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"reqdesk/internal/actions"
	"reqdesk/internal/apiclient"
	"reqdesk/internal/config"
	"reqdesk/internal/logging"
	"reqdesk/internal/persist"
	"reqdesk/internal/state"
	"reqdesk/internal/upload"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is everything a command needs, wired from the config.
type app struct {
	cfg       *config.Config
	store     *state.Store
	engine    persist.Engine
	persistor *persist.Persistor
	client    *apiclient.Client
	actions   *actions.Set
	uploads   *upload.Encoder

	// discard skips the final flush.
	discard bool
}

// bootstrap wires config, logging, storage, store, client and actions, and
// reloads the persisted slices into the store.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if verbose {
		cfg.Logging.DebugMode = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logging.Get(logging.CategoryBoot)

	a := &app{cfg: cfg, store: state.NewStore(), uploads: upload.New(cfg.Upload.MaxBytes)}

	if cfg.Persist.Enabled {
		a.engine, err = persist.Open(cfg.Storage)
		if err != nil {
			logging.CloseAll()
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		a.persistor = persist.New(a.store, a.engine, persist.Options{
			KeyPrefix: cfg.Persist.KeyPrefix,
			Debounce:  cfg.GetPersistDebounce(),
			Slices:    cfg.Persist.Slices,
		})
		// Corrupt slices start empty; the rest still load.
		if err := a.persistor.Rehydrate(ctx); err != nil {
			log.Warn("rehydrate: %v", err)
		}
		a.persistor.Start()
	}

	a.client, err = apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Prefix:    cfg.API.Prefix,
		Token:     cfg.API.Token,
		Tokens:    a.store,
		Timeout:   cfg.GetRequestTimeout(),
		UserAgent: cfg.API.UserAgent,

		MaxResponseBytes: cfg.API.MaxResponseBytes,
	})
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	a.actions = actions.New(a.client, a.store)

	log.Info("ready: api=%s storage=%s persist=%v", a.client.BaseURL(), cfg.Storage.Driver, cfg.Persist.Enabled)
	return a, nil
}

// close flushes the persisted slices and releases storage and log files.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.persistor != nil && !a.discard {
		errs = append(errs, a.persistor.Close(ctx))
	}
	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	logging.CloseAll()
	return errors.Join(errs...)
}

// session returns the signed-in account or an error telling the user to
// sign in.
func (a *app) session() (state.Session, error) {
	sess, ok := a.store.Account()
	if !ok {
		return state.Session{}, errors.New("not signed in: run \"reqdesk auth sign-in\" first")
	}
	return sess, nil
}

type runFunc func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error

// withApp adapts fn to a cobra RunE: it bounds the run by --timeout, cancels
// on SIGINT/SIGTERM, and always flushes the store on the way out.
func withApp(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// Handle graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case <-sigCh:
				logger.Info("Received shutdown signal")
				cancel()
			case <-ctx.Done():
			}
		}()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}

		runErr := fn(ctx, cmd, args, a)
		if err := a.close(context.Background()); err != nil {
			logger.Warn("Failed to flush state", zap.Error(err))
		}
		return runErr
	}
}
