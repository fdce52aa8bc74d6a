package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/catalog"
	"github.com/hoopdraft/hoopdraft/internal/roller"
	"github.com/hoopdraft/hoopdraft/internal/store"
)

func SetupRoutes(st *store.Store, cat *catalog.Service, rl *roller.Roller, wsHandler http.HandlerFunc, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/drafts", CreateDraft(st, log))
	r.Post("/drafts/{ref}/join", JoinDraft(st, log))
	r.Get("/drafts/{ref}", GetDraft(st, log))
	r.Get("/drafts/{ref}/eligible-players", EligiblePlayers(st, cat, rl, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws/draft/{ref}", wsHandler)
	return r
}
