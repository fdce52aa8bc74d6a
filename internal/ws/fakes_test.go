package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/engine"
	"github.com/hoopdraft/hoopdraft/internal/models"
	"github.com/hoopdraft/hoopdraft/internal/roller"
	"github.com/hoopdraft/hoopdraft/internal/session"
	"github.com/hoopdraft/hoopdraft/internal/store"
)

// fakeStore is an in-memory Store with the same conflict and idempotence
// semantics as the Postgres-backed one.
type fakeStore struct {
	mu      sync.Mutex
	draft   models.Draft
	rules   json.RawMessage
	picks   []models.DraftPick
	players map[uint]models.Player

	// onInsert, when set, runs after a successful InsertPick with the store
	// mutex released, to interleave other store traffic mid-pick.
	onInsert func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		draft: models.Draft{
			ID:             1,
			PublicID:       uuid.New(),
			PicksPerPlayer: 2,
			Status:         models.StatusLobby,
		},
		players: map[uint]models.Player{
			10: {ID: 10, Name: "Michael Jordan"},
			11: {ID: 11, Name: "Scottie Pippen"},
			12: {ID: 12, Name: "Dennis Rodman"},
			13: {ID: 13, Name: "Toni Kukoc"},
		},
	}
}

func (f *fakeStore) DraftByRef(ctx context.Context, ref string) (*models.Draft, error) {
	return f.DraftByID(ctx, f.draft.ID)
}

func (f *fakeStore) DraftByID(ctx context.Context, id uint) (*models.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.draft.ID {
		return nil, store.ErrNotFound
	}
	d := f.draft
	return &d, nil
}

func (f *fakeStore) RulesForDraft(ctx context.Context, draftID uint) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rules, nil
}

func (f *fakeStore) MarkStarted(ctx context.Context, draftID uint, first engine.Role) (engine.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prior, ok := engine.ParseRole(f.draft.FirstTurn); ok && f.draft.Status != models.StatusLobby {
		return prior, nil
	}
	f.draft.FirstTurn = string(first)
	f.draft.Status = models.StatusDrafting
	return first, nil
}

func (f *fakeStore) SaveConstraint(ctx context.Context, draftID uint, c json.RawMessage, role engine.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.CurrentConstraint = c
	f.draft.CurrentConstraintRole = string(role)
	return nil
}

func (f *fakeStore) ClearConstraint(ctx context.Context, draftID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.CurrentConstraint = nil
	f.draft.CurrentConstraintRole = ""
	return nil
}

func (f *fakeStore) SetOnlyEligible(ctx context.Context, draftID uint, v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.OnlyEligible = &v
	return nil
}

func (f *fakeStore) RenameDraft(ctx context.Context, draftID uint, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Name = name
	return nil
}

func (f *fakeStore) SpendReroll(ctx context.Context, draftID uint, role engine.Role, budget int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counter := &f.draft.HostRerolls
	if role == engine.RoleGuest {
		counter = &f.draft.GuestRerolls
	}
	left := budget
	if *counter != nil {
		left = **counter
	}
	if left <= 0 {
		return 0, false, nil
	}
	left--
	*counter = &left
	return left, true, nil
}

func (f *fakeStore) CompleteIfDone(ctx context.Context, draftID uint, picksPerPlayer int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draft.Status == models.StatusCompleted {
		return false, nil
	}
	byRole := map[string]int{}
	for _, p := range f.picks {
		byRole[p.Role]++
	}
	if byRole["host"] < picksPerPlayer || byRole["guest"] < picksPerPlayer {
		return false, nil
	}
	now := time.Now().UTC()
	f.draft.Status = models.StatusCompleted
	f.draft.CompletedAt = &now
	return true, nil
}

func (f *fakeStore) Reopen(ctx context.Context, draftID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draft.Status == models.StatusCompleted {
		f.draft.Status = models.StatusDrafting
		f.draft.CompletedAt = nil
	}
	return nil
}

func (f *fakeStore) PicksForDraft(ctx context.Context, draftID uint) ([]models.DraftPick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.DraftPick, len(f.picks))
	copy(out, f.picks)
	return out, nil
}

func (f *fakeStore) InsertPick(ctx context.Context, pick *models.DraftPick) error {
	f.mu.Lock()
	for _, p := range f.picks {
		if p.PlayerID == pick.PlayerID || p.PickNumber == pick.PickNumber {
			f.mu.Unlock()
			return store.ErrAlreadyDrafted
		}
	}
	pick.Player = f.players[pick.PlayerID]
	pick.PickedAt = time.Now().UTC()
	f.picks = append(f.picks, *pick)
	f.mu.Unlock()

	if f.onInsert != nil {
		f.onInsert()
	}
	return nil
}

func (f *fakeStore) DeleteLatestPick(ctx context.Context, draftID uint) (*models.DraftPick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.picks) == 0 {
		return nil, store.ErrNotFound
	}
	latest := 0
	for i, p := range f.picks {
		if p.PickNumber > f.picks[latest].PickNumber {
			latest = i
		}
	}
	removed := f.picks[latest]
	f.picks = append(f.picks[:latest], f.picks[latest+1:]...)
	return &removed, nil
}

func (f *fakeStore) PlayerByID(ctx context.Context, id uint) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

// fakeRoller returns queued results in order, repeating the last one. When
// entered/release are set, each Roll signals entry and then parks until
// released, so tests can interleave commands with a roll in flight.
type fakeRoller struct {
	mu      sync.Mutex
	results []rollResult
	calls   int

	entered chan struct{}
	release chan struct{}
}

type rollResult struct {
	constraint *roller.Constraint
	err        error
}

func rolledPlayer(id uint, name string) *roller.Constraint {
	return &roller.Constraint{
		Stage: roller.StagePlayer,
		Options: []roller.Option{{
			EraLabel: "1990-1999",
			EraStart: 1990,
			EraEnd:   1999,
			Team:     &roller.TeamRef{ID: 1, Name: "Chicago Bulls"},
			Player:   &roller.PlayerRef{ID: id, Name: name},
		}},
	}
}

func (f *fakeRoller) Roll(ctx context.Context, rules roller.RuleSet, exclude []uint, publish roller.Publisher) (*roller.Constraint, error) {
	f.mu.Lock()
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	r := f.results[i]
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}

	if r.err != nil {
		return nil, r.err
	}
	if publish != nil {
		publish.StageStarted(roller.StagePlayer)
		publish.StageResolved(roller.StagePlayer, r.constraint)
	}
	return r.constraint, nil
}

// harness wires a handler to fakes and two connected clients.
type harness struct {
	t       *testing.T
	handler *Handler
	store   *fakeStore
	roller  *fakeRoller
	sess    *session.Session
	host    *session.Client
	guest   *session.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs := newFakeStore()
	fr := &fakeRoller{results: []rollResult{{constraint: rolledPlayer(10, "Michael Jordan")}}}
	log := zap.NewNop()
	reg := session.NewRegistry(log)
	h := NewHandler(reg, fs, fr, log)

	host := session.NewClient(engine.RoleHost)
	guest := session.NewClient(engine.RoleGuest)
	sess := reg.Connect(fs.draft.ID, engine.RoleHost, host)
	reg.Connect(fs.draft.ID, engine.RoleGuest, guest)

	if err := h.rehydrate(context.Background(), sess, fs.draft.ID); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	return &harness{t: t, handler: h, store: fs, roller: fr, sess: sess, host: host, guest: guest}
}

// startDrafting puts the fake draft mid-game with the host on the clock.
func (h *harness) startDrafting() {
	h.startDraftingAs("host")
}

func (h *harness) startDraftingAs(first string) {
	h.t.Helper()
	h.store.mu.Lock()
	h.store.draft.Status = models.StatusDrafting
	h.store.draft.FirstTurn = first
	h.store.mu.Unlock()
	if err := h.handler.rehydrate(context.Background(), h.sess, h.store.draft.ID); err != nil {
		h.t.Fatalf("rehydrate: %v", err)
	}
}

func (h *harness) send(role engine.Role, msg ClientMessage) {
	h.t.Helper()
	h.handler.dispatch(context.Background(), h.sess, role, msg)
}

// next decodes the next frame queued for the client.
func (h *harness) next(c *session.Client) map[string]any {
	h.t.Helper()
	select {
	case p, ok := <-c.Outbox():
		if !ok {
			h.t.Fatalf("outbox closed")
		}
		var m map[string]any
		if err := json.Unmarshal(p, &m); err != nil {
			h.t.Fatalf("bad frame %s: %v", p, err)
		}
		return m
	case <-time.After(time.Second):
		h.t.Fatalf("no frame queued")
		return nil
	}
}

// nextOfType skips frames until one with the given type arrives.
func (h *harness) nextOfType(c *session.Client, typ string) map[string]any {
	h.t.Helper()
	for range 20 {
		if m := h.next(c); m["type"] == typ {
			return m
		}
	}
	h.t.Fatalf("no %s frame", typ)
	return nil
}

// drain discards everything currently queued for the client.
func (h *harness) drain(c *session.Client) {
	for {
		select {
		case <-c.Outbox():
		default:
			return
		}
	}
}

// expectSilence asserts nothing is queued for the client.
func (h *harness) expectSilence(c *session.Client) {
	h.t.Helper()
	select {
	case p := <-c.Outbox():
		h.t.Fatalf("unexpected frame: %s", p)
	case <-time.After(50 * time.Millisecond):
	}
}
