package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/kapu/chess-relay/internal/config"
	"github.com/kapu/chess-relay/internal/directory"
	"github.com/kapu/chess-relay/internal/hub"
	"github.com/kapu/chess-relay/internal/obslog"
	"github.com/kapu/chess-relay/internal/session"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	var dir *directory.Directory
	if cfg.RedisURL != "" {
		dir, err = directory.Open(cfg.RedisURL)
		if err != nil {
			logger.Fatal("directory init error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := hub.New(dir)
	go h.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle(cfg.WSPath, session.Handler(h, cfg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		entries, err := dir.ListOpen(r.Context())
		if err != nil {
			logger.Warn("rooms_list_failed", zap.Error(err))
			http.Error(w, "directory unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if entries == nil {
			entries = []directory.Entry{}
		}
		_ = json.NewEncoder(w).Encode(entries)
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("ws_path", cfg.WSPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = srv.Shutdown(sctx)
	scancel()
	cancel()
	_ = dir.Close()
	_ = logger.Sync()
}
