package main

import (
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/catalog"
	"github.com/hoopdraft/hoopdraft/internal/config"
	"github.com/hoopdraft/hoopdraft/internal/httpapi"
	"github.com/hoopdraft/hoopdraft/internal/roller"
	"github.com/hoopdraft/hoopdraft/internal/session"
	"github.com/hoopdraft/hoopdraft/internal/store"
	"github.com/hoopdraft/hoopdraft/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}

	cat := catalog.New(st.DB())
	rl := roller.New(cat, logger.Named("roller"))
	registry := session.NewRegistry(logger.Named("session"))
	wsHandler := ws.NewHandler(registry, st, rl, logger.Named("ws"))

	// Build the router with everything injected
	handler := httpapi.SetupRoutes(st, cat, rl, wsHandler.ServeWS, logger.Named("http"))

	logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func buildLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
