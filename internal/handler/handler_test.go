package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pellston/hexhammer/internal/auth"
	"github.com/pellston/hexhammer/internal/model"
	"github.com/pellston/hexhammer/internal/service"
)

// --- Mock Repositories ---

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *mockUserRepo) FindByProviderID(_ context.Context, provider, providerID string) (*model.User, error) {
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) Upsert(_ context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error) {
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			u.DisplayName = displayName
			return u, nil
		}
	}
	m.seq++
	u := &model.User{
		ID:          fmt.Sprintf("user-%d", m.seq),
		Provider:    provider,
		ProviderID:  providerID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserRepo) UpdateDisplayName(_ context.Context, id, displayName string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.DisplayName = displayName
	return nil
}

type mockMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*model.Match
	players map[string][]model.MatchPlayer
}

func newMockMatchRepo() *mockMatchRepo {
	return &mockMatchRepo{
		matches: make(map[string]*model.Match),
		players: make(map[string][]model.MatchPlayer),
	}
}

func (m *mockMatchRepo) Create(_ context.Context, name, creatorID, boardName string, seed int64, maxTurns int) (*model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match := &model.Match{
		ID:        fmt.Sprintf("match-%d", len(m.matches)+1),
		Name:      name,
		CreatorID: creatorID,
		Status:    "waiting",
		BoardName: boardName,
		Seed:      seed,
		MaxTurns:  maxTurns,
		CreatedAt: time.Now(),
	}
	m.matches[match.ID] = match
	return match, nil
}

func (m *mockMatchRepo) FindByID(_ context.Context, id string) (*model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[id]
	if !ok {
		return nil, nil
	}
	cp := *match
	cp.Players = append([]model.MatchPlayer(nil), m.players[id]...)
	return &cp, nil
}

func (m *mockMatchRepo) listByStatus(status string) []model.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Match
	for _, match := range m.matches {
		if match.Status == status {
			cp := *match
			cp.Players = append([]model.MatchPlayer(nil), m.players[match.ID]...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockMatchRepo) ListOpen(_ context.Context) ([]model.Match, error) {
	return m.listByStatus("waiting"), nil
}

func (m *mockMatchRepo) ListActive(_ context.Context) ([]model.Match, error) {
	return m.listByStatus("active"), nil
}

func (m *mockMatchRepo) ListFinished(_ context.Context) ([]model.Match, error) {
	return m.listByStatus("finished"), nil
}

func (m *mockMatchRepo) ListByUser(_ context.Context, userID string) ([]model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Match
	for _, match := range m.matches {
		for _, p := range m.players[match.ID] {
			if p.UserID == userID {
				out = append(out, *match)
				break
			}
		}
	}
	return out, nil
}

func (m *mockMatchRepo) JoinMatch(_ context.Context, matchID, userID, side string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[matchID] = append(m.players[matchID], model.MatchPlayer{
		MatchID: matchID, UserID: userID, Side: side, JoinedAt: time.Now(),
	})
	return nil
}

func (m *mockMatchRepo) JoinMatchAsBot(_ context.Context, matchID, side, policy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[matchID] = append(m.players[matchID], model.MatchPlayer{
		MatchID: matchID, Side: side, IsBot: true, Policy: policy, JoinedAt: time.Now(),
	})
	return nil
}

func (m *mockMatchRepo) ListPlayers(_ context.Context, matchID string) ([]model.MatchPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.MatchPlayer(nil), m.players[matchID]...), nil
}

func (m *mockMatchRepo) SetStarted(_ context.Context, matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if match, ok := m.matches[matchID]; ok {
		now := time.Now()
		match.Status = "active"
		match.StartedAt = &now
	}
	return nil
}

func (m *mockMatchRepo) SetFinished(_ context.Context, matchID, winner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if match, ok := m.matches[matchID]; ok {
		now := time.Now()
		match.Status = "finished"
		match.Winner = winner
		match.FinishedAt = &now
	}
	return nil
}

func (m *mockMatchRepo) Delete(_ context.Context, matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.matches, matchID)
	delete(m.players, matchID)
	return nil
}

type mockEventRepo struct {
	mu     sync.Mutex
	events map[string][]model.MatchEvent
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: make(map[string][]model.MatchEvent)}
}

func (m *mockEventRepo) Append(_ context.Context, matchID string, seq int, kind string, turn int, phase, player string, unitID, targetID int, payload json.RawMessage) (*model.MatchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := model.MatchEvent{
		ID:        fmt.Sprintf("event-%s-%d", matchID, seq),
		MatchID:   matchID,
		Sequence:  seq,
		Kind:      kind,
		Turn:      turn,
		Phase:     phase,
		Player:    player,
		UnitID:    unitID,
		TargetID:  targetID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	m.events[matchID] = append(m.events[matchID], ev)
	return &ev, nil
}

func (m *mockEventRepo) ListByMatch(_ context.Context, matchID string) ([]model.MatchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.MatchEvent(nil), m.events[matchID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (m *mockEventRepo) LastSequence(_ context.Context, matchID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := 0
	for _, ev := range m.events[matchID] {
		if ev.Sequence > last {
			last = ev.Sequence
		}
	}
	return last, nil
}

type mockCache struct {
	mu        sync.Mutex
	snapshots map[string]json.RawMessage
	seqs      map[string]int64
	ready     map[string]map[string]bool
	timers    map[string]time.Time
}

func newMockCache() *mockCache {
	return &mockCache{
		snapshots: make(map[string]json.RawMessage),
		seqs:      make(map[string]int64),
		ready:     make(map[string]map[string]bool),
		timers:    make(map[string]time.Time),
	}
}

func (m *mockCache) SetSnapshot(_ context.Context, matchID string, snapshot json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[matchID] = append(json.RawMessage(nil), snapshot...)
	return nil
}

func (m *mockCache) GetSnapshot(_ context.Context, matchID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[matchID]
	if !ok {
		return nil, nil
	}
	return snap, nil
}

func (m *mockCache) NextActionSeq(_ context.Context, matchID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seqs[matchID]++
	return m.seqs[matchID], nil
}

func (m *mockCache) MarkReady(_ context.Context, matchID, side string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready[matchID] == nil {
		m.ready[matchID] = make(map[string]bool)
	}
	m.ready[matchID][side] = true
	return nil
}

func (m *mockCache) UnmarkReady(_ context.Context, matchID, side string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ready[matchID], side)
	return nil
}

func (m *mockCache) ReadyCount(_ context.Context, matchID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.ready[matchID])), nil
}

func (m *mockCache) ReadySides(_ context.Context, matchID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sides []string
	for s := range m.ready[matchID] {
		sides = append(sides, s)
	}
	sort.Strings(sides)
	return sides, nil
}

func (m *mockCache) SetTurnTimer(_ context.Context, matchID string, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers[matchID] = deadline
	return nil
}

func (m *mockCache) ClearTurnTimer(_ context.Context, matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.timers, matchID)
	return nil
}

func (m *mockCache) DeleteMatchData(_ context.Context, matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, matchID)
	delete(m.seqs, matchID)
	delete(m.ready, matchID)
	delete(m.timers, matchID)
	return nil
}

// --- Helpers ---

func reqWithUserID(method, path string, body string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	ctx := auth.SetUserIDForTest(req.Context(), userID)
	return req.WithContext(ctx)
}

type testEnv struct {
	matchHandler  *MatchHandler
	actionHandler *ActionHandler
	queryHandler  *QueryHandler
	hub           *Hub
}

func newTestEnv() *testEnv {
	matchRepo := newMockMatchRepo()
	eventRepo := newMockEventRepo()
	cache := newMockCache()
	hub := NewHub()

	matchSvc := service.NewMatchService(matchRepo, newMockUserRepo(), cache, "", 20)
	actionSvc := service.NewActionService(matchRepo, eventRepo, cache, hub, "", time.Minute)

	return &testEnv{
		matchHandler:  NewMatchHandler(matchSvc, actionSvc, hub),
		actionHandler: NewActionHandler(matchSvc, actionSvc),
		queryHandler:  NewQueryHandler(matchSvc, actionSvc),
		hub:           hub,
	}
}

// startedMatch creates a two-human match on the open-field scenario and
// starts it. Red is user-1, blue is user-2.
func (e *testEnv) startedMatch(t *testing.T) string {
	t.Helper()

	req := reqWithUserID(http.MethodPost, "/matches", `{"name":"duel","scenario":"open-field","seed":42,"max_turns":3}`, "user-1")
	rec := httptest.NewRecorder()
	e.matchHandler.CreateMatch(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var match model.Match
	json.Unmarshal(rec.Body.Bytes(), &match)

	req = reqWithUserID(http.MethodPost, "/matches/"+match.ID+"/join", "", "user-2")
	req.SetPathValue("id", match.ID)
	rec = httptest.NewRecorder()
	e.matchHandler.JoinMatch(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = reqWithUserID(http.MethodPost, "/matches/"+match.ID+"/start", "", "user-1")
	req.SetPathValue("id", match.ID)
	rec = httptest.NewRecorder()
	e.matchHandler.StartMatch(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return match.ID
}

// eligibleUnit returns the first unit ID the active player may activate.
func (e *testEnv) eligibleUnit(t *testing.T, matchID string) int {
	t.Helper()
	req := reqWithUserID(http.MethodGet, "/matches/"+matchID+"/eligible", "", "user-1")
	req.SetPathValue("id", matchID)
	rec := httptest.NewRecorder()
	e.queryHandler.EligibleUnits(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("eligible: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		UnitIDs []int `json:"unit_ids"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.UnitIDs) == 0 {
		t.Fatal("no eligible units")
	}
	return resp.UnitIDs[0]
}

// --- User Handler Tests ---

func TestGetMe(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["user-1"] = &model.User{
		ID:          "user-1",
		DisplayName: "Alice",
		Provider:    "google",
	}
	h := NewUserHandler(repo)

	req := reqWithUserID(http.MethodGet, "/users/me", "", "user-1")
	rec := httptest.NewRecorder()
	h.GetMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var user model.User
	json.Unmarshal(rec.Body.Bytes(), &user)
	if user.DisplayName != "Alice" {
		t.Errorf("expected Alice, got %s", user.DisplayName)
	}
}

func TestGetMeNotFound(t *testing.T) {
	h := NewUserHandler(newMockUserRepo())

	req := reqWithUserID(http.MethodGet, "/users/me", "", "nonexistent")
	rec := httptest.NewRecorder()
	h.GetMe(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateMe(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["user-1"] = &model.User{ID: "user-1", DisplayName: "Alice"}
	h := NewUserHandler(repo)

	req := reqWithUserID(http.MethodPatch, "/users/me", `{"display_name":"Bob"}`, "user-1")
	rec := httptest.NewRecorder()
	h.UpdateMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var user model.User
	json.Unmarshal(rec.Body.Bytes(), &user)
	if user.DisplayName != "Bob" {
		t.Errorf("expected Bob, got %s", user.DisplayName)
	}
}

func TestUpdateMeEmptyName(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["user-1"] = &model.User{ID: "user-1"}
	h := NewUserHandler(repo)

	req := reqWithUserID(http.MethodPatch, "/users/me", `{"display_name":""}`, "user-1")
	rec := httptest.NewRecorder()
	h.UpdateMe(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateMeInvalidJSON(t *testing.T) {
	h := NewUserHandler(newMockUserRepo())

	req := reqWithUserID(http.MethodPatch, "/users/me", "not json", "user-1")
	rec := httptest.NewRecorder()
	h.UpdateMe(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// --- Match Handler Tests ---

func TestCreateMatch(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodPost, "/matches", `{"name":"Test Match"}`, "user-1")
	rec := httptest.NewRecorder()
	env.matchHandler.CreateMatch(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var match model.Match
	json.Unmarshal(rec.Body.Bytes(), &match)
	if match.Name != "Test Match" {
		t.Errorf("expected 'Test Match', got %s", match.Name)
	}
	if match.BoardName != "crossfire" {
		t.Errorf("expected default scenario crossfire, got %s", match.BoardName)
	}
}

func TestCreateMatchMissingName(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodPost, "/matches", `{"name":""}`, "user-1")
	rec := httptest.NewRecorder()
	env.matchHandler.CreateMatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCreateMatchUnknownScenario(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodPost, "/matches", `{"name":"bad","scenario":"volcano"}`, "user-1")
	rec := httptest.NewRecorder()
	env.matchHandler.CreateMatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestListMatchesEmpty(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodGet, "/matches", "", "user-1")
	rec := httptest.NewRecorder()
	env.matchHandler.ListMatches(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := strings.TrimSpace(rec.Body.String())
	if body != "[]" {
		t.Errorf("expected [], got %s", body)
	}
}

func TestListScenarios(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodGet, "/scenarios", "", "user-1")
	rec := httptest.NewRecorder()
	env.matchHandler.ListScenarios(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Scenarios []string `json:"scenarios"`
		Policies  []string `json:"policies"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Scenarios) == 0 || len(resp.Policies) == 0 {
		t.Errorf("expected scenarios and policies, got %+v", resp)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodGet, "/matches/nonexistent", "", "user-1")
	req.SetPathValue("id", "nonexistent")
	rec := httptest.NewRecorder()
	env.matchHandler.GetMatch(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestJoinMatchNotFound(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodPost, "/matches/nonexistent/join", "", "user-1")
	req.SetPathValue("id", "nonexistent")
	rec := httptest.NewRecorder()
	env.matchHandler.JoinMatch(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStartMatchNotCreator(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodPost, "/matches", `{"name":"duel"}`, "user-1")
	rec := httptest.NewRecorder()
	env.matchHandler.CreateMatch(rec, req)
	var match model.Match
	json.Unmarshal(rec.Body.Bytes(), &match)

	req = reqWithUserID(http.MethodPost, "/matches/"+match.ID+"/join", "", "user-2")
	req.SetPathValue("id", match.ID)
	env.matchHandler.JoinMatch(httptest.NewRecorder(), req)

	req = reqWithUserID(http.MethodPost, "/matches/"+match.ID+"/start", "", "user-2")
	req.SetPathValue("id", match.ID)
	rec = httptest.NewRecorder()
	env.matchHandler.StartMatch(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestStartMatchInitializesState(t *testing.T) {
	env := newTestEnv()
	matchID := env.startedMatch(t)

	req := reqWithUserID(http.MethodGet, "/matches/"+matchID+"/state", "", "user-1")
	req.SetPathValue("id", matchID)
	rec := httptest.NewRecorder()
	env.queryHandler.GetState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state struct {
		Turn   int    `json:"turn"`
		Phase  string `json:"phase"`
		Status string `json:"status"`
	}
	json.Unmarshal(rec.Body.Bytes(), &state)
	if state.Status != "active" || state.Turn != 1 {
		t.Errorf("unexpected opening state: %+v", state)
	}
}

func TestReadyFlow(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodPost, "/matches", `{"name":"lobby"}`, "user-1")
	rec := httptest.NewRecorder()
	env.matchHandler.CreateMatch(rec, req)
	var match model.Match
	json.Unmarshal(rec.Body.Bytes(), &match)

	req = reqWithUserID(http.MethodPost, "/matches/"+match.ID+"/join", "", "user-2")
	req.SetPathValue("id", match.ID)
	env.matchHandler.JoinMatch(httptest.NewRecorder(), req)

	req = reqWithUserID(http.MethodPost, "/matches/"+match.ID+"/ready", "", "user-2")
	req.SetPathValue("id", match.ID)
	rec = httptest.NewRecorder()
	env.matchHandler.MarkReady(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ReadySides []string `json:"ready_sides"`
		AllReady   bool     `json:"all_ready"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.ReadySides) != 1 || resp.ReadySides[0] != "blue" || resp.AllReady {
		t.Errorf("unexpected ready response: %+v", resp)
	}

	req = reqWithUserID(http.MethodDelete, "/matches/"+match.ID+"/ready", "", "user-2")
	req.SetPathValue("id", match.ID)
	rec = httptest.NewRecorder()
	env.matchHandler.UnmarkReady(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unready: expected 200, got %d", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.ReadySides) != 0 {
		t.Errorf("expected no ready sides after unready, got %+v", resp.ReadySides)
	}
}

func TestReadyNotSeated(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodPost, "/matches", `{"name":"lobby"}`, "user-1")
	rec := httptest.NewRecorder()
	env.matchHandler.CreateMatch(rec, req)
	var match model.Match
	json.Unmarshal(rec.Body.Bytes(), &match)

	req = reqWithUserID(http.MethodPost, "/matches/"+match.ID+"/ready", "", "user-9")
	req.SetPathValue("id", match.ID)
	rec = httptest.NewRecorder()
	env.matchHandler.MarkReady(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

// --- Action Handler Tests ---

func TestSubmitActionSkip(t *testing.T) {
	env := newTestEnv()
	matchID := env.startedMatch(t)
	unitID := env.eligibleUnit(t, matchID)

	body := fmt.Sprintf(`{"kind":"skip","unit_id":%d}`, unitID)
	req := reqWithUserID(http.MethodPost, "/matches/"+matchID+"/actions", body, "user-1")
	req.SetPathValue("id", matchID)
	rec := httptest.NewRecorder()
	env.actionHandler.SubmitAction(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Success bool `json:"success"`
	}
	json.Unmarshal(rec.Body.Bytes(), &res)
	if !res.Success {
		t.Errorf("expected success, got %s", rec.Body.String())
	}
}

func TestSubmitActionOutOfTurn(t *testing.T) {
	env := newTestEnv()
	matchID := env.startedMatch(t)
	unitID := env.eligibleUnit(t, matchID)

	body := fmt.Sprintf(`{"kind":"skip","unit_id":%d}`, unitID)
	req := reqWithUserID(http.MethodPost, "/matches/"+matchID+"/actions", body, "user-2")
	req.SetPathValue("id", matchID)
	rec := httptest.NewRecorder()
	env.actionHandler.SubmitAction(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitActionNotSeated(t *testing.T) {
	env := newTestEnv()
	matchID := env.startedMatch(t)

	req := reqWithUserID(http.MethodPost, "/matches/"+matchID+"/actions", `{"kind":"skip","unit_id":1}`, "user-9")
	req.SetPathValue("id", matchID)
	rec := httptest.NewRecorder()
	env.actionHandler.SubmitAction(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestSubmitActionInvalidBody(t *testing.T) {
	env := newTestEnv()
	matchID := env.startedMatch(t)

	req := reqWithUserID(http.MethodPost, "/matches/"+matchID+"/actions", "not json", "user-1")
	req.SetPathValue("id", matchID)
	rec := httptest.NewRecorder()
	env.actionHandler.SubmitAction(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitActionRuleRejection(t *testing.T) {
	env := newTestEnv()
	matchID := env.startedMatch(t)

	// Unit 0 never exists; the engine rejects the action without error at
	// the transport level.
	req := reqWithUserID(http.MethodPost, "/matches/"+matchID+"/actions", `{"kind":"skip","unit_id":0}`, "user-1")
	req.SetPathValue("id", matchID)
	rec := httptest.NewRecorder()
	env.actionHandler.SubmitAction(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Success || res.Error == "" {
		t.Errorf("expected rule error in body, got %s", rec.Body.String())
	}
}

// --- Query Handler Tests ---

func TestGetStateBeforeStart(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodPost, "/matches", `{"name":"waiting"}`, "user-1")
	rec := httptest.NewRecorder()
	env.matchHandler.CreateMatch(rec, req)
	var match model.Match
	json.Unmarshal(rec.Body.Bytes(), &match)

	req = reqWithUserID(http.MethodGet, "/matches/"+match.ID+"/state", "", "user-1")
	req.SetPathValue("id", match.ID)
	rec = httptest.NewRecorder()
	env.queryHandler.GetState(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for waiting match, got %d", rec.Code)
	}
}

func TestMoveDestinations(t *testing.T) {
	env := newTestEnv()
	matchID := env.startedMatch(t)
	unitID := env.eligibleUnit(t, matchID)

	path := fmt.Sprintf("/matches/%s/units/%d/moves", matchID, unitID)
	req := reqWithUserID(http.MethodGet, path, "", "user-1")
	req.SetPathValue("id", matchID)
	req.SetPathValue("unitId", fmt.Sprint(unitID))
	rec := httptest.NewRecorder()
	env.queryHandler.MoveDestinations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Destinations []struct {
			Col int `json:"col"`
			Row int `json:"row"`
		} `json:"destinations"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Destinations) == 0 {
		t.Error("expected at least one move destination in the opening move phase")
	}
}

func TestMoveDestinationsBadUnitID(t *testing.T) {
	env := newTestEnv()
	matchID := env.startedMatch(t)

	req := reqWithUserID(http.MethodGet, "/matches/"+matchID+"/units/abc/moves", "", "user-1")
	req.SetPathValue("id", matchID)
	req.SetPathValue("unitId", "abc")
	rec := httptest.NewRecorder()
	env.queryHandler.MoveDestinations(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestVisibleEnemiesBadRadius(t *testing.T) {
	env := newTestEnv()
	matchID := env.startedMatch(t)
	unitID := env.eligibleUnit(t, matchID)

	req := reqWithUserID(http.MethodGet, fmt.Sprintf("/matches/%s/units/%d/visible?radius=-1", matchID, unitID), "", "user-1")
	req.SetPathValue("id", matchID)
	req.SetPathValue("unitId", fmt.Sprint(unitID))
	rec := httptest.NewRecorder()
	env.queryHandler.VisibleEnemies(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEventsAfterStart(t *testing.T) {
	env := newTestEnv()
	matchID := env.startedMatch(t)

	req := reqWithUserID(http.MethodGet, "/matches/"+matchID+"/events", "", "user-1")
	req.SetPathValue("id", matchID)
	rec := httptest.NewRecorder()
	env.queryHandler.Events(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var events []model.MatchEvent
	json.Unmarshal(rec.Body.Bytes(), &events)
	if len(events) == 0 {
		t.Fatal("expected opening events after start")
	}
	for i, ev := range events {
		if ev.Sequence != i+1 {
			t.Fatalf("event %d has sequence %d, want %d", i, ev.Sequence, i+1)
		}
	}
}

func TestEventsMatchNotFound(t *testing.T) {
	env := newTestEnv()

	req := reqWithUserID(http.MethodGet, "/matches/nonexistent/events", "", "user-1")
	req.SetPathValue("id", "nonexistent")
	rec := httptest.NewRecorder()
	env.queryHandler.Events(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// --- Auth Handler Tests ---

func TestRefreshTokenValid(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret")
	h := NewAuthHandler(nil, jwtMgr, newMockUserRepo())

	refresh, _ := jwtMgr.GenerateRefreshToken("user-1")
	body := fmt.Sprintf(`{"refresh_token":"%s"}`, refresh)
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tokens auth.TokenPair
	json.Unmarshal(rec.Body.Bytes(), &tokens)
	if tokens.AccessToken == "" {
		t.Error("expected non-empty access token")
	}
}

func TestRefreshTokenInvalid(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret")
	h := NewAuthHandler(nil, jwtMgr, newMockUserRepo())

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token":"invalid"}`))
	rec := httptest.NewRecorder()
	h.RefreshToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRefreshTokenBadBody(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret")
	h := NewAuthHandler(nil, jwtMgr, newMockUserRepo())

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.RefreshToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
