package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/catalog"
	"github.com/hoopdraft/hoopdraft/internal/models"
	"github.com/hoopdraft/hoopdraft/internal/roller"
	"github.com/hoopdraft/hoopdraft/internal/store"
)

const (
	defaultPicksPerPlayer = 5
	maxEligiblePage       = 100
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type createDraftRequest struct {
	Name           string `json:"name"`
	DraftTypeID    uint   `json:"draft_type_id"`
	PicksPerPlayer int    `json:"picks_per_player"`
	HostName       string `json:"host_name"`
}

func CreateDraft(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDraftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.DraftTypeID == 0 || strings.TrimSpace(req.HostName) == "" {
			http.Error(w, "draft_type_id and host_name are required", http.StatusBadRequest)
			return
		}
		if req.PicksPerPlayer <= 0 {
			req.PicksPerPlayer = defaultPicksPerPlayer
		}

		d := &models.Draft{
			Name:           strings.TrimSpace(req.Name),
			DraftTypeID:    req.DraftTypeID,
			HostName:       strings.TrimSpace(req.HostName),
			PicksPerPlayer: req.PicksPerPlayer,
			Status:         models.StatusLobby,
		}
		if err := st.CreateDraft(r.Context(), d); err != nil {
			log.Error("create draft", zap.Error(err))
			http.Error(w, "failed to create draft", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			ID       uint   `json:"id"`
			PublicID string `json:"public_id"`
		}{ID: d.ID, PublicID: d.PublicID.String()})
	}
}

type joinDraftRequest struct {
	GuestName string `json:"guest_name"`
}

func JoinDraft(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinDraftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		name := strings.TrimSpace(req.GuestName)
		if name == "" {
			http.Error(w, "guest_name is required", http.StatusBadRequest)
			return
		}

		draft, err := st.DraftByRef(r.Context(), chi.URLParam(r, "ref"))
		if err != nil {
			respondStoreErr(w, log, "join draft", err)
			return
		}
		joined, err := st.JoinDraft(r.Context(), draft.ID, name)
		if err != nil {
			respondStoreErr(w, log, "join draft", err)
			return
		}
		if !joined {
			http.Error(w, "guest seat already taken", http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Role     string `json:"role"`
			PublicID string `json:"public_id"`
		}{Role: "guest", PublicID: draft.PublicID.String()})
	}
}

type draftPickResponse struct {
	PickNumber     int    `json:"pick_number"`
	Role           string `json:"role"`
	PlayerID       uint   `json:"player_id"`
	PlayerName     string `json:"player_name"`
	ConstraintTeam string `json:"constraint_team,omitempty"`
	ConstraintYear string `json:"constraint_year,omitempty"`
}

type draftResponse struct {
	ID             uint                `json:"id"`
	PublicID       string              `json:"public_id"`
	Name           string              `json:"name,omitempty"`
	Status         string              `json:"status"`
	HostName       string              `json:"host_name"`
	GuestName      string              `json:"guest_name,omitempty"`
	PicksPerPlayer int                 `json:"picks_per_player"`
	FirstTurn      string              `json:"first_turn,omitempty"`
	Picks          []draftPickResponse `json:"picks"`
}

func GetDraft(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, err := st.DraftByRef(r.Context(), chi.URLParam(r, "ref"))
		if err != nil {
			respondStoreErr(w, log, "get draft", err)
			return
		}
		rows, err := st.PicksForDraft(r.Context(), draft.ID)
		if err != nil {
			respondStoreErr(w, log, "get draft picks", err)
			return
		}

		resp := draftResponse{
			ID:             draft.ID,
			PublicID:       draft.PublicID.String(),
			Name:           draft.Name,
			Status:         string(draft.Status),
			HostName:       draft.HostName,
			GuestName:      draft.GuestName,
			PicksPerPlayer: draft.PicksPerPlayer,
			FirstTurn:      draft.FirstTurn,
			Picks:          make([]draftPickResponse, 0, len(rows)),
		}
		for _, row := range rows {
			resp.Picks = append(resp.Picks, draftPickResponse{
				PickNumber:     row.PickNumber,
				Role:           row.Role,
				PlayerID:       row.PlayerID,
				PlayerName:     row.Player.Name,
				ConstraintTeam: row.ConstraintTeam,
				ConstraintYear: row.ConstraintYear,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type eligiblePlayerResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// EligiblePlayers lists players satisfying the draft's active constraint, for
// the pick UI. The option query parameter selects which parallel option to
// expand; already-drafted players are always excluded.
func EligiblePlayers(st *store.Store, cat *catalog.Service, rl *roller.Roller, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, err := st.DraftByRef(r.Context(), chi.URLParam(r, "ref"))
		if err != nil {
			respondStoreErr(w, log, "eligible players", err)
			return
		}
		raw, err := st.RulesForDraft(r.Context(), draft.ID)
		if err != nil {
			respondStoreErr(w, log, "eligible players", err)
			return
		}
		rules, err := roller.DecodeRules(raw)
		if err != nil {
			log.Error("decode rules", zap.Uint("draft_id", draft.ID), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		rows, err := st.PicksForDraft(r.Context(), draft.ID)
		if err != nil {
			respondStoreErr(w, log, "eligible players", err)
			return
		}
		exclude := make([]uint, 0, len(rows))
		for _, row := range rows {
			exclude = append(exclude, row.PlayerID)
		}

		filter := catalog.PlayerFilter{ExcludeIDs: exclude}
		if len(draft.CurrentConstraint) > 0 {
			var c roller.Constraint
			if err := json.Unmarshal(draft.CurrentConstraint, &c); err != nil {
				http.Error(w, "draft has no decodable constraint", http.StatusConflict)
				return
			}
			idx, _ := strconv.Atoi(r.URL.Query().Get("option"))
			if idx < 0 || idx >= len(c.Options) {
				http.Error(w, "option out of range", http.StatusBadRequest)
				return
			}
			filter, err = rl.PlayerFilter(r.Context(), c.Options[idx], rules, exclude)
			if err != nil {
				log.Error("build player filter", zap.Uint("draft_id", draft.ID), zap.Error(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > maxEligiblePage {
			limit = maxEligiblePage
		}

		count, err := cat.Count(r.Context(), filter)
		if err != nil {
			log.Error("count eligible", zap.Uint("draft_id", draft.ID), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		players, err := cat.Eligible(r.Context(), filter)
		if err != nil {
			log.Error("list eligible", zap.Uint("draft_id", draft.ID), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if len(players) > limit {
			players = players[:limit]
		}

		out := make([]eligiblePlayerResponse, 0, len(players))
		for _, p := range players {
			out = append(out, eligiblePlayerResponse{ID: p.ID, Name: p.Name, ImageURL: p.ImageURL})
		}
		writeJSON(w, http.StatusOK, struct {
			Count   int                      `json:"count"`
			Players []eligiblePlayerResponse `json:"players"`
		}{Count: count, Players: out})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func respondStoreErr(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "draft not found", http.StatusNotFound)
		return
	}
	log.Error(op, zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
