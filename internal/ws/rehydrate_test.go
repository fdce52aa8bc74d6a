package ws

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/hoopdraft/hoopdraft/internal/engine"
	"github.com/hoopdraft/hoopdraft/internal/models"
)

func seedMidDraft(h *harness) {
	h.store.mu.Lock()
	h.store.draft.Status = models.StatusDrafting
	h.store.draft.FirstTurn = "host"
	h.store.draft.Name = "Nineties Showdown"
	h.store.picks = []models.DraftPick{
		{DraftID: 1, PlayerID: 10, PickNumber: 1, Role: "host", Player: h.store.players[10], PickedAt: time.Now()},
		{DraftID: 1, PlayerID: 11, PickNumber: 2, Role: "guest", Player: h.store.players[11], PickedAt: time.Now()},
		{DraftID: 1, PlayerID: 12, PickNumber: 3, Role: "guest", Player: h.store.players[12], PickedAt: time.Now()},
	}
	h.store.draft.CurrentConstraint = mustJSON(h.t, rolledPlayer(13, "Toni Kukoc"))
	h.store.draft.CurrentConstraintRole = "host"
	h.store.mu.Unlock()
}

func TestRehydrateRebuildsMidDraftState(t *testing.T) {
	h := newHarness(t)
	seedMidDraft(h)

	if err := h.handler.rehydrate(context.Background(), h.sess, 1); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}

	// Three picks into a host-first snake: host, guest, guest -> host next.
	want := engine.TurnState{Started: true, FirstTurn: engine.RoleHost, PickNumber: 3, Current: engine.RoleHost}
	if h.sess.Turn != want {
		t.Fatalf("turn = %+v, want %+v", h.sess.Turn, want)
	}
	if len(h.sess.Picks) != 3 || h.sess.Picks[2].PlayerName != "Dennis Rodman" {
		t.Fatalf("picks = %+v", h.sess.Picks)
	}
	if h.sess.Constraint == nil || h.sess.Constraint.Options[0].Player.ID != 13 {
		t.Fatalf("persisted constraint not restored")
	}
	if h.sess.ConstraintRole != engine.RoleHost {
		t.Fatalf("constraint role = %q", h.sess.ConstraintRole)
	}
	if h.sess.Name != "Nineties Showdown" {
		t.Fatalf("name = %q", h.sess.Name)
	}
}

func TestRehydrateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	seedMidDraft(h)

	if err := h.handler.rehydrate(context.Background(), h.sess, 1); err != nil {
		t.Fatalf("first rehydrate: %v", err)
	}
	turn, picks := h.sess.Turn, append([]string(nil), pickNames(h)...)
	constraint := *h.sess.Constraint

	if err := h.handler.rehydrate(context.Background(), h.sess, 1); err != nil {
		t.Fatalf("second rehydrate: %v", err)
	}
	if h.sess.Turn != turn {
		t.Fatalf("turn drifted: %+v -> %+v", turn, h.sess.Turn)
	}
	if !reflect.DeepEqual(pickNames(h), picks) {
		t.Fatalf("picks drifted: %v -> %v", picks, pickNames(h))
	}
	if !reflect.DeepEqual(*h.sess.Constraint, constraint) {
		t.Fatalf("constraint drifted")
	}
}

func pickNames(h *harness) []string {
	names := make([]string, 0, len(h.sess.Picks))
	for _, p := range h.sess.Picks {
		names = append(names, p.PlayerName)
	}
	return names
}

func TestRehydrateInfersFirstTurnFromPicks(t *testing.T) {
	h := newHarness(t)
	h.store.mu.Lock()
	h.store.draft.Status = models.StatusDrafting
	h.store.draft.FirstTurn = "" // legacy row: started before the column existed
	h.store.picks = []models.DraftPick{
		{DraftID: 1, PlayerID: 11, PickNumber: 1, Role: "guest", Player: h.store.players[11]},
	}
	h.store.mu.Unlock()

	if err := h.handler.rehydrate(context.Background(), h.sess, 1); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if h.sess.Turn.FirstTurn != engine.RoleGuest {
		t.Fatalf("first turn = %q, want guest", h.sess.Turn.FirstTurn)
	}
	if h.sess.Turn.Current != engine.RoleHost {
		t.Fatalf("current = %q, want host after one guest pick", h.sess.Turn.Current)
	}
}

func TestRehydrateKeepsCachedHostSettings(t *testing.T) {
	h := newHarness(t)

	// A host already flipped these in memory; a guest reconnect must not
	// clobber them with stale durable values.
	h.sess.Lock()
	v := false
	h.sess.OnlyEligible = &v
	h.sess.Name = "Renamed Live"
	h.sess.Unlock()

	h.store.mu.Lock()
	on := true
	h.store.draft.OnlyEligible = &on
	h.store.draft.Name = "Stale Name"
	h.store.mu.Unlock()

	if err := h.handler.rehydrate(context.Background(), h.sess, 1); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if *h.sess.OnlyEligible != false {
		t.Fatalf("cached only_eligible clobbered")
	}
	if h.sess.Name != "Renamed Live" {
		t.Fatalf("cached name clobbered: %q", h.sess.Name)
	}
}

func TestRehydrateCompletesFinishedDraft(t *testing.T) {
	h := newHarness(t)

	// Both rosters are durably full but the completion flip failed after the
	// final pick; the next rehydrate must finish the job.
	h.store.mu.Lock()
	h.store.draft.Status = models.StatusDrafting
	h.store.draft.FirstTurn = "host"
	h.store.draft.PicksPerPlayer = 1
	h.store.picks = []models.DraftPick{
		{DraftID: 1, PlayerID: 10, PickNumber: 1, Role: "host", Player: h.store.players[10]},
		{DraftID: 1, PlayerID: 11, PickNumber: 2, Role: "guest", Player: h.store.players[11]},
	}
	h.store.mu.Unlock()

	if err := h.handler.rehydrate(context.Background(), h.sess, 1); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if h.store.draft.Status != models.StatusCompleted || h.store.draft.CompletedAt == nil {
		t.Fatalf("full pick log left draft %q after rehydrate", h.store.draft.Status)
	}

	// Rehydrating the now-completed draft changes nothing further.
	stamp := *h.store.draft.CompletedAt
	if err := h.handler.rehydrate(context.Background(), h.sess, 1); err != nil {
		t.Fatalf("second rehydrate: %v", err)
	}
	if !h.store.draft.CompletedAt.Equal(stamp) {
		t.Fatalf("completion timestamp moved on rehydrate")
	}
}

func TestRehydrateDropsUndecodableConstraint(t *testing.T) {
	h := newHarness(t)
	h.store.mu.Lock()
	h.store.draft.Status = models.StatusDrafting
	h.store.draft.FirstTurn = "host"
	h.store.draft.CurrentConstraint = []byte("{not json")
	h.store.mu.Unlock()

	if err := h.handler.rehydrate(context.Background(), h.sess, 1); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if h.sess.Constraint != nil {
		t.Fatalf("undecodable constraint survived rehydration")
	}
	if !h.sess.Turn.Started {
		t.Fatalf("bad constraint blocked rehydration")
	}
}
