package main

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"voicecart/internal/agent"
	"voicecart/internal/cart"
	"voicecart/internal/catalog"
	"voicecart/internal/config"
	"voicecart/internal/dispatch"
	"voicecart/internal/logging"
	"voicecart/internal/nlu"
	"voicecart/internal/resolver"
	"voicecart/internal/transcribe"
)

// App bundles the assembled pipeline and the resources behind it.
type App struct {
	Config   *config.UserConfig
	Catalog  *catalog.Catalog
	Store    *cart.Store
	Pipeline *agent.Pipeline

	watcher *catalog.Watcher
}

// buildApp wires catalog, cart, gateways and dispatcher from the user
// config. The navigation boundary is supplied by the caller: the TUI
// passes its simulated location, one-shot commands print directives.
func buildApp(nav dispatch.Navigator) (*App, error) {
	cfg, err := config.LoadUserConfig(filepath.Join(homePath, "config.json"))
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg}

	// Catalog and cart persistence initialize independently.
	var persister cart.Persister
	var g errgroup.Group

	g.Go(func() error {
		if cfg.CatalogPath != "" {
			cat, err := catalog.LoadFile(cfg.CatalogPath)
			if err != nil {
				return fmt.Errorf("failed to load catalog from %s: %w", cfg.CatalogPath, err)
			}
			w, err := catalog.Watch(cat, cfg.CatalogPath)
			if err != nil {
				logging.Catalog("Hot reload unavailable: %v", err)
			} else {
				app.watcher = w
			}
			app.Catalog = cat
			return nil
		}
		cat, err := catalog.LoadEmbedded()
		if err != nil {
			return fmt.Errorf("failed to load embedded catalog: %w", err)
		}
		app.Catalog = cat
		return nil
	})

	g.Go(func() error {
		dbPath := cfg.CartDatabasePath(homePath)
		if dbPath == "" {
			return nil // persistence disabled
		}
		p, err := cart.NewSQLitePersister(dbPath)
		if err != nil {
			// Degrade to an in-memory cart rather than failing startup.
			logging.Store("Cart persistence unavailable: %v", err)
			return nil
		}
		persister = p
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	app.Store = cart.NewStore(app.Catalog, persister)

	client, err := nlu.NewClientFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	interpreter := nlu.NewInterpreter(client, app.Catalog)

	// Transcription always goes through Groq Whisper; without a Groq key
	// the voice path is unavailable but text input still works.
	var transcriber transcribe.Transcriber
	if cfg.GroqAPIKey != "" {
		whisper := transcribe.NewGroqWhisperClient(cfg.GroqAPIKey)
		if cfg.TranscriptionModel != "" {
			whisper.SetModel(cfg.TranscriptionModel)
		}
		transcriber = whisper
	}

	dispatcher := dispatch.New(app.Store, resolver.New(app.Catalog), nav)
	app.Pipeline = agent.New(transcriber, interpreter, dispatcher)

	logging.Boot("App assembled: %d products, persistence=%v, transcriber=%v",
		app.Catalog.Len(), persister != nil, transcriber != nil)
	return app, nil
}

// Close releases the catalog watcher and the cart store's persister.
func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
