package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/rfaga/storyteller/internal/asset"
	"github.com/rfaga/storyteller/internal/auth"
	"github.com/rfaga/storyteller/internal/codegen"
	"github.com/rfaga/storyteller/internal/collab"
	"github.com/rfaga/storyteller/internal/config"
	"github.com/rfaga/storyteller/internal/db"
	"github.com/rfaga/storyteller/internal/editor"
	"github.com/rfaga/storyteller/internal/game"
	mw "github.com/rfaga/storyteller/internal/middleware"
	"github.com/rfaga/storyteller/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Saved games go to Postgres when configured, otherwise to one JSON file per game
	var repo game.Repository
	var fileStore *game.FileStore
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.EnsureSchema(ctx, pool); err != nil {
			slog.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		repo = game.NewPostgresStore(pool)
	} else {
		fileStore = game.NewFileStore(cfg.GamesDir)
		repo = fileStore
	}

	textures := render.NewMemoryTextures()
	pipeline := asset.NewPipeline(textures, cfg.AssetDir)
	if n, err := pipeline.Preload(); err != nil {
		slog.Warn("preload textures", "error", err)
	} else {
		slog.Info("textures loaded", "count", n)
	}

	authService := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(authService)

	tools := cfg.Tools()
	generator := codegen.New(cfg.Codegen())
	hub := collab.NewHub(func(id string, surface render.Surface) *editor.Session {
		return editor.New(id,
			editor.WithRenderer(render.NewAdapter(surface, textures)),
			editor.WithImporter(pipeline),
			editor.WithToolConfig(tools),
			editor.WithGenerator(generator),
		)
	}, cfg.SessionIdle)
	go hub.Run()

	// The file store has a directory watcher that reports saves itself
	notifySaved := func() { hub.NotifyGamesUpdated("") }
	if fileStore != nil && cfg.WatchGames {
		watcher, err := game.NewWatcher(fileStore.Dir())
		if err != nil {
			slog.Error("watch games dir", "error", err)
			os.Exit(1)
		}
		defer watcher.Close()
		go func() {
			for {
				select {
				case file, ok := <-watcher.Events:
					if !ok {
						return
					}
					slog.Debug("games changed", "file", file)
					hub.NotifyGamesUpdated(file)
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					slog.Warn("games watcher", "error", err)
				}
			}
		}()
		notifySaved = func() {}
	}

	sessionHandler := collab.NewHandler(collab.HandlerConfig{
		Hub:         hub,
		Tokens:      authService,
		Repo:        repo,
		Textures:    textures,
		TemplateDir: cfg.TemplateDir,
		Width:       cfg.CanvasWidth,
		Height:      cfg.CanvasHeight,
		OnSaved:     func(string) { notifySaved() },
	})
	gameHandler := game.NewHandler(repo, func() { notifySaved() })
	assetHandler := asset.NewHandler(cfg.AssetDir, pipeline, hub)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Saved games (public)
	r.HandleFunc("/api/games", gameHandler.List).Methods("GET")
	r.HandleFunc("/api/games", gameHandler.Save).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/games/{name}", gameHandler.Get).Methods("GET")

	// Session creation hands out the token for everything below
	r.HandleFunc("/api/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")

	// Session routes, token-scoped to {id}
	api := r.PathPrefix("/api/sessions/{id}").Subrouter()
	api.Use(authService.Middleware)

	api.HandleFunc("", sessionHandler.Get).Methods("GET")
	api.HandleFunc("/import", assetHandler.Upload).Methods("POST", "OPTIONS")
	api.HandleFunc("/save", sessionHandler.Save).Methods("POST", "OPTIONS")
	api.HandleFunc("/load", sessionHandler.Load).Methods("POST", "OPTIONS")
	api.HandleFunc("/snapshot.png", sessionHandler.Snapshot).Methods("GET")
	api.HandleFunc("/code", sessionHandler.Code).Methods("GET")
	api.HandleFunc("/scene.yaml", sessionHandler.Scene).Methods("GET")
	api.HandleFunc("/token", authHandler.Refresh).Methods("POST", "OPTIONS")

	// WebSocket endpoint
	r.HandleFunc("/ws/session/{id}", collab.ServeWebSocket(hub, authService, cfg.OriginPatterns()))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
