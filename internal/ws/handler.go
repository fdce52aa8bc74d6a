// Package ws is the realtime edge of the draft coordinator: it accepts the
// two participant connections, rehydrates session state from storage, and
// runs each connection's command loop. Commands from one connection are
// processed strictly in receipt order; cross-connection interleaving is
// serialized by the session lock.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/engine"
	"github.com/hoopdraft/hoopdraft/internal/models"
	"github.com/hoopdraft/hoopdraft/internal/roller"
	"github.com/hoopdraft/hoopdraft/internal/session"
	"github.com/hoopdraft/hoopdraft/internal/store"
)

const writeTimeout = 5 * time.Second

// Store is the durable surface the websocket layer needs. Implemented by
// *store.Store; tests use a fake.
type Store interface {
	DraftByRef(ctx context.Context, ref string) (*models.Draft, error)
	DraftByID(ctx context.Context, id uint) (*models.Draft, error)
	RulesForDraft(ctx context.Context, draftID uint) (json.RawMessage, error)
	MarkStarted(ctx context.Context, draftID uint, first engine.Role) (engine.Role, error)
	SaveConstraint(ctx context.Context, draftID uint, c json.RawMessage, role engine.Role) error
	ClearConstraint(ctx context.Context, draftID uint) error
	SetOnlyEligible(ctx context.Context, draftID uint, v bool) error
	RenameDraft(ctx context.Context, draftID uint, name string) error
	SpendReroll(ctx context.Context, draftID uint, role engine.Role, budget int) (int, bool, error)
	CompleteIfDone(ctx context.Context, draftID uint, picksPerPlayer int) (bool, error)
	Reopen(ctx context.Context, draftID uint) error
	PicksForDraft(ctx context.Context, draftID uint) ([]models.DraftPick, error)
	InsertPick(ctx context.Context, pick *models.DraftPick) error
	DeleteLatestPick(ctx context.Context, draftID uint) (*models.DraftPick, error)
	PlayerByID(ctx context.Context, id uint) (*models.Player, error)
}

// Roller computes constraints; implemented by *roller.Roller.
type Roller interface {
	Roll(ctx context.Context, rules roller.RuleSet, exclude []uint, publish roller.Publisher) (*roller.Constraint, error)
}

type Handler struct {
	registry *session.Registry
	store    Store
	roller   Roller
	log      *zap.Logger

	commands map[string]commandFunc
}

type commandFunc func(ctx context.Context, s *session.Session, role engine.Role, msg ClientMessage) error

func NewHandler(reg *session.Registry, st Store, rl Roller, log *zap.Logger) *Handler {
	h := &Handler{registry: reg, store: st, roller: rl, log: log}
	h.commands = map[string]commandFunc{
		cmdStart:         h.handleStart,
		cmdRoll:          h.handleRoll,
		cmdForceReroll:   h.handleForceReroll,
		cmdSelectPreview: h.handleSelectPreview,
		cmdMakePick:      h.handleMakePick,
		cmdSetSetting:    h.handleSetSetting,
		cmdUndoLastPick:  h.handleUndoLastPick,
		cmdRename:        h.handleRename,
	}
	return h
}

// ServeWS handles GET /ws/draft/{ref}?role=host|guest.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	role, ok := engine.ParseRole(r.URL.Query().Get("role"))
	if !ok {
		role = engine.RoleGuest
	}

	draft, err := h.store.DraftByRef(r.Context(), ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "draft not found", http.StatusNotFound)
			return
		}
		h.log.Error("resolve draft ref", zap.String("ref", ref), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	log := h.log.With(zap.Uint("draft_id", draft.ID), zap.String("role", string(role)))
	log.Info("ws connect")

	client := session.NewClient(role)
	sess := h.registry.Connect(draft.ID, role, client)

	// Writer: drains the outbox the broker enqueues into. Write failures are
	// left for the read loop to notice; the broker prunes on backpressure.
	writeCtx, cancelWrites := context.WithCancel(context.Background())
	defer cancelWrites()
	go func() {
		for payload := range client.Outbox() {
			ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
			err := conn.Write(ctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		}
	}()

	defer func() {
		if h.registry.Disconnect(sess, role, client) {
			log.Info("ws disconnect")
			sess.Broadcast(connectionUpdateEvent{
				Type:      "connection_update",
				DraftID:   sess.DraftID,
				Connected: sess.ConnectedRoles(),
			})
		}
		client.Close()
	}()

	if err := h.rehydrate(r.Context(), sess, draft.ID); err != nil {
		log.Error("rehydrate", zap.Error(err))
		sess.SendTo(role, errEvent("failed to load draft state"))
		return
	}

	// Full snapshot to everyone so both clients converge on the same state
	// whenever anyone (re)connects.
	snap, err := h.buildSnapshot(r.Context(), sess)
	if err != nil {
		log.Error("snapshot", zap.Error(err))
		sess.SendTo(role, errEvent("failed to load draft state"))
		return
	}
	sess.Broadcast(snap)

	// Read loop. No read deadline: a participant may sit on their turn
	// indefinitely, and nothing times a turn out.
	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if r.Context().Err() == nil {
					log.Debug("ws read", zap.Error(err))
				}
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.SendTo(role, errEvent("malformed message"))
			continue
		}
		if !h.dispatch(r.Context(), sess, role, msg) {
			// Infrastructure failure: the sender got a generic error; tear
			// this connection down rather than limping along.
			return
		}
	}
}

// dispatch routes one inbound command. Every rejected command yields exactly
// one error event to its sender. Returns false when the handler hit an
// infrastructure failure and the connection should close.
func (h *Handler) dispatch(ctx context.Context, s *session.Session, role engine.Role, msg ClientMessage) bool {
	handle, ok := h.commands[msg.Type]
	if !ok {
		s.SendTo(role, errEvent("unsupported command"))
		return true
	}
	h.log.Debug("ws command",
		zap.Uint("draft_id", s.DraftID),
		zap.String("role", string(role)),
		zap.String("type", msg.Type))
	if err := handle(ctx, s, role, msg); err != nil {
		h.log.Error("command failed",
			zap.Uint("draft_id", s.DraftID),
			zap.String("role", string(role)),
			zap.String("type", msg.Type),
			zap.Error(err))
		s.SendTo(role, errEvent("internal error"))
		return false
	}
	return true
}

// buildSnapshot assembles the full-state event from the session cache plus
// the durable reroll counters.
func (h *Handler) buildSnapshot(ctx context.Context, s *session.Session) (snapshotEvent, error) {
	draft, err := h.store.DraftByID(ctx, s.DraftID)
	if err != nil {
		return snapshotEvent{}, err
	}

	s.Lock()
	defer s.Unlock()

	budget := 0
	if s.Rules != nil {
		budget = s.Rules.MaxRerolls
	}
	remaining := func(counter *int) int {
		if counter != nil {
			return *counter
		}
		return budget
	}

	previews := make(map[string]*session.Preview, len(s.Previews))
	for r, p := range s.Previews {
		previews[string(r)] = p
	}

	return snapshotEvent{
		Type:           "snapshot",
		DraftID:        s.DraftID,
		DraftPublicID:  draft.PublicID.String(),
		Name:           s.Name,
		Connected:      s.ConnectedRolesLocked(),
		Started:        s.Turn.Started,
		FirstTurn:      string(s.Turn.FirstTurn),
		CurrentTurn:    string(s.Turn.Current),
		PickNumber:     s.Turn.PickNumber,
		PicksPerPlayer: s.PicksPerPlayer,
		Completed:      draft.Status == models.StatusCompleted,
		Picks:          append([]session.PickView(nil), s.Picks...),
		Constraint:     s.Constraint,
		ConstraintRole: string(s.ConstraintRole),
		OnlyEligible:   s.OnlyEligible != nil && *s.OnlyEligible,
		Previews:       previews,
		Rerolls: map[string]int{
			string(engine.RoleHost):  remaining(draft.HostRerolls),
			string(engine.RoleGuest): remaining(draft.GuestRerolls),
		},
	}, nil
}
