package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pellston/hexhammer/internal/model"
)

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
		if match.CreatorID == userID {
			out = append(out, *match)
			continue
		}
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
	for _, p := range m.players[matchID] {
		if p.Side == side {
			return nil
		}
	}
	m.players[matchID] = append(m.players[matchID], model.MatchPlayer{
		MatchID: matchID, UserID: userID, Side: side, JoinedAt: time.Now(),
	})
	return nil
}

func (m *mockMatchRepo) JoinMatchAsBot(_ context.Context, matchID, side, policy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players[matchID] {
		if p.Side == side {
			return nil
		}
	}
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

type mockUserRepo struct {
	users map[string]*model.User
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
	u := &model.User{
		ID:          fmt.Sprintf("user-%d", len(m.users)+1),
		Provider:    provider,
		ProviderID:  providerID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		CreatedAt:   time.Now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserRepo) UpdateDisplayName(_ context.Context, id, displayName string) error {
	if u, ok := m.users[id]; ok {
		u.DisplayName = displayName
	}
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
	for _, ev := range m.events[matchID] {
		if ev.Sequence == seq {
			return nil, fmt.Errorf("duplicate sequence %d for match %s", seq, matchID)
		}
	}
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

// recordingBroadcaster captures broadcasts for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastRecord
}

type broadcastRecord struct {
	MatchID   string
	EventType string
	Data      any
}

func (b *recordingBroadcaster) BroadcastMatchEvent(matchID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastRecord{MatchID: matchID, EventType: eventType, Data: data})
}

func (b *recordingBroadcaster) byType(eventType string) []broadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []broadcastRecord
	for _, e := range b.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
