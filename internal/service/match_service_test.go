package service

import (
	"context"
	"testing"
)

func newTestMatchService() (*MatchService, *mockMatchRepo, *mockCache) {
	matchRepo := newMockMatchRepo()
	cache := newMockCache()
	svc := NewMatchService(matchRepo, newMockUserRepo(), cache, "", 20)
	return svc, matchRepo, cache
}

func TestCreateMatchDefaults(t *testing.T) {
	svc, _, _ := newTestMatchService()
	match, err := svc.CreateMatch(context.Background(), "first blood", "user-1", "", 0, 0, false, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if match.BoardName != "crossfire" {
		t.Errorf("default scenario = %q, want crossfire", match.BoardName)
	}
	if match.MaxTurns != 5 {
		t.Errorf("default max turns = %d, want 5", match.MaxTurns)
	}
	if match.Seed == 0 {
		t.Error("seed must be assigned when unset")
	}
	if len(match.Players) != 1 || match.Players[0].Side != sideRed {
		t.Fatalf("creator must hold the red seat, players: %+v", match.Players)
	}
}

func TestCreateMatchUnknownScenario(t *testing.T) {
	svc, _, _ := newTestMatchService()
	if _, err := svc.CreateMatch(context.Background(), "bad", "user-1", "volcano", 0, 0, false, ""); err != ErrUnknownScenario {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
}

func TestCreateMatchVsBot(t *testing.T) {
	svc, _, _ := newTestMatchService()
	match, err := svc.CreateMatch(context.Background(), "vs bot", "user-1", "open-field", 7, 3, true, "random")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(match.Players) != 2 {
		t.Fatalf("expected both seats filled, got %d", len(match.Players))
	}
	var bot bool
	for _, p := range match.Players {
		if p.IsBot {
			bot = true
			if p.Side != sideBlue || p.Policy != "random" {
				t.Errorf("bot seat wrong: %+v", p)
			}
		}
	}
	if !bot {
		t.Fatal("no bot seated")
	}
}

func TestCreateMatchUnknownPolicy(t *testing.T) {
	svc, _, _ := newTestMatchService()
	if _, err := svc.CreateMatch(context.Background(), "vs bot", "user-1", "", 0, 0, true, "minimax"); err != ErrUnknownPolicy {
		t.Fatalf("expected ErrUnknownPolicy, got %v", err)
	}
}

func TestJoinMatchFillsBlueThenRejects(t *testing.T) {
	svc, _, _ := newTestMatchService()
	match, err := svc.CreateMatch(context.Background(), "duel", "user-1", "", 0, 0, false, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.JoinMatch(context.Background(), match.ID, "user-2"); err != nil {
		t.Fatalf("join: %v", err)
	}
	side, err := svc.PlayerSide(context.Background(), match.ID, "user-2")
	if err != nil || side != sideBlue {
		t.Fatalf("joiner side = %q err %v, want blue", side, err)
	}

	if err := svc.JoinMatch(context.Background(), match.ID, "user-2"); err != ErrAlreadyJoined {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
	if err := svc.JoinMatch(context.Background(), match.ID, "user-3"); err != ErrMatchFull {
		t.Fatalf("expected ErrMatchFull, got %v", err)
	}
}

func TestStartMatchRequiresBothSeatsAndCreator(t *testing.T) {
	svc, _, _ := newTestMatchService()
	match, err := svc.CreateMatch(context.Background(), "duel", "user-1", "", 0, 0, false, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.StartMatch(context.Background(), match.ID, "user-1"); err != ErrSeatEmpty {
		t.Fatalf("expected ErrSeatEmpty, got %v", err)
	}
	if err := svc.JoinMatch(context.Background(), match.ID, "user-2"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := svc.StartMatch(context.Background(), match.ID, "user-2"); err != ErrNotCreator {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}

	started, err := svc.StartMatch(context.Background(), match.ID, "user-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != "active" || started.StartedAt == nil {
		t.Fatalf("match not active after start: %+v", started)
	}
	if _, err := svc.StartMatch(context.Background(), match.ID, "user-1"); err != ErrMatchNotWaiting {
		t.Fatalf("expected ErrMatchNotWaiting on restart, got %v", err)
	}
}

func TestDeleteMatchOnlyWaitingAndCreator(t *testing.T) {
	svc, _, _ := newTestMatchService()
	match, err := svc.CreateMatch(context.Background(), "doomed", "user-1", "", 0, 0, false, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.DeleteMatch(context.Background(), match.ID, "user-2"); err != ErrNotCreator {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}
	if err := svc.DeleteMatch(context.Background(), match.ID, "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetMatch(context.Background(), match.ID); err != ErrMatchNotFound {
		t.Fatalf("expected ErrMatchNotFound after delete, got %v", err)
	}
}

func TestStopMatchEndsAsDrawAndClearsCache(t *testing.T) {
	svc, _, cache := newTestMatchService()
	match, err := svc.CreateMatch(context.Background(), "stopped", "user-1", "", 0, 0, true, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.StartMatch(context.Background(), match.ID, "user-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := cache.SetSnapshot(context.Background(), match.ID, []byte(`{}`)); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	stopped, err := svc.StopMatch(context.Background(), match.ID, "user-1")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped.Status != "finished" || stopped.Winner != "" {
		t.Fatalf("expected finished draw, got %+v", stopped)
	}
	if snap, _ := cache.GetSnapshot(context.Background(), match.ID); snap != nil {
		t.Fatal("cache must be cleared on stop")
	}
}

func TestMarkReadyLobbyFlow(t *testing.T) {
	svc, _, _ := newTestMatchService()
	match, err := svc.CreateMatch(context.Background(), "lobby", "user-1", "", 0, 0, false, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.JoinMatch(context.Background(), match.ID, "user-2"); err != nil {
		t.Fatalf("join: %v", err)
	}

	sides, err := svc.MarkReady(context.Background(), match.ID, "user-1")
	if err != nil || len(sides) != 1 || sides[0] != sideRed {
		t.Fatalf("first ready = %v (%v), want [red]", sides, err)
	}
	sides, err = svc.MarkReady(context.Background(), match.ID, "user-2")
	if err != nil || len(sides) != 2 {
		t.Fatalf("second ready = %v (%v), want both sides", sides, err)
	}

	sides, err = svc.UnmarkReady(context.Background(), match.ID, "user-1")
	if err != nil || len(sides) != 1 || sides[0] != sideBlue {
		t.Fatalf("after unready = %v (%v), want [blue]", sides, err)
	}

	if _, err := svc.MarkReady(context.Background(), match.ID, "user-9"); err != ErrNotInMatch {
		t.Fatalf("expected ErrNotInMatch for outsider, got %v", err)
	}
}

func TestMarkReadyRequiresWaiting(t *testing.T) {
	svc, _, _ := newTestMatchService()
	match, err := svc.CreateMatch(context.Background(), "live", "user-1", "", 0, 0, true, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.StartMatch(context.Background(), match.ID, "user-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.MarkReady(context.Background(), match.ID, "user-1"); err != ErrMatchNotWaiting {
		t.Fatalf("expected ErrMatchNotWaiting, got %v", err)
	}
}

func TestListMatchesFilters(t *testing.T) {
	svc, _, _ := newTestMatchService()
	a, _ := svc.CreateMatch(context.Background(), "open", "user-1", "", 0, 0, false, "")
	b, _ := svc.CreateMatch(context.Background(), "mine", "user-2", "", 0, 0, false, "")

	open, err := svc.ListMatches(context.Background(), "user-1", "")
	if err != nil || len(open) != 2 {
		t.Fatalf("open list: %v (%d)", err, len(open))
	}
	mine, err := svc.ListMatches(context.Background(), "user-1", "my")
	if err != nil || len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("my list wrong: %v %+v", err, mine)
	}
	_ = b
}
