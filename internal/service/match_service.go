package service

import (
	"context"
	"errors"
	"math/rand"

	"github.com/pellston/hexhammer/internal/model"
	"github.com/pellston/hexhammer/internal/repository"
	"github.com/pellston/hexhammer/pkg/engine"
)

var (
	ErrMatchNotFound   = errors.New("match not found")
	ErrMatchNotWaiting = errors.New("match is not in waiting status")
	ErrMatchNotActive  = errors.New("match is not active")
	ErrMatchFull       = errors.New("match already has two players")
	ErrAlreadyJoined   = errors.New("already joined this match")
	ErrNotInMatch      = errors.New("you are not in this match")
	ErrNotCreator      = errors.New("only the creator can do this")
	ErrSeatEmpty       = errors.New("both seats must be filled to start")
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrUnknownPolicy   = errors.New("unknown bot policy")
)

// sideRed and sideBlue are the seat labels stored in match_players.
const (
	sideRed  = "red"
	sideBlue = "blue"
)

var validPolicies = map[string]bool{"random": true, "greedy": true, "onnx": true}

// MatchService handles match lifecycle operations: lobby, seating, start,
// stop, delete. Live play belongs to ActionService.
type MatchService struct {
	matchRepo    repository.MatchRepository
	userRepo     repository.UserRepository
	cache        repository.MatchCache
	defaultBoard string
	maxTurns     int // upper bound for the configured turn limit
}

// NewMatchService creates a MatchService. defaultBoard names the scenario
// used when a match omits one.
func NewMatchService(matchRepo repository.MatchRepository, userRepo repository.UserRepository, cache repository.MatchCache, defaultBoard string, maxTurnsLimit int) *MatchService {
	if defaultBoard == "" {
		defaultBoard = "crossfire"
	}
	if maxTurnsLimit <= 0 {
		maxTurnsLimit = 20
	}
	return &MatchService{matchRepo: matchRepo, userRepo: userRepo, cache: cache, defaultBoard: defaultBoard, maxTurns: maxTurnsLimit}
}

// CreateMatch creates a match in "waiting" status. The creator takes the red
// seat. With vsBot set, the blue seat is filled by a bot policy immediately.
func (s *MatchService) CreateMatch(ctx context.Context, name, creatorID, scenario string, seed int64, maxTurns int, vsBot bool, botPolicy string) (*model.Match, error) {
	if scenario == "" {
		scenario = s.defaultBoard
	}
	if _, err := engine.ScenarioByName(scenario); err != nil {
		return nil, ErrUnknownScenario
	}
	if maxTurns <= 0 || maxTurns > s.maxTurns {
		maxTurns = 5
	}
	if seed == 0 {
		seed = rand.Int63()
	}
	if vsBot {
		if botPolicy == "" {
			botPolicy = "greedy"
		}
		if !validPolicies[botPolicy] {
			return nil, ErrUnknownPolicy
		}
	}

	match, err := s.matchRepo.Create(ctx, name, creatorID, scenario, seed, maxTurns)
	if err != nil {
		return nil, err
	}
	if err := s.matchRepo.JoinMatch(ctx, match.ID, creatorID, sideRed); err != nil {
		return nil, err
	}
	if vsBot {
		if err := s.matchRepo.JoinMatchAsBot(ctx, match.ID, sideBlue, botPolicy); err != nil {
			return nil, err
		}
	}
	return s.matchRepo.FindByID(ctx, match.ID)
}

// JoinMatch seats a player in the open blue seat of a waiting match.
func (s *MatchService) JoinMatch(ctx context.Context, matchID, userID string) error {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match == nil {
		return ErrMatchNotFound
	}
	if match.Status != "waiting" {
		return ErrMatchNotWaiting
	}

	taken := make(map[string]bool, 2)
	for _, p := range match.Players {
		if p.UserID == userID {
			return ErrAlreadyJoined
		}
		taken[p.Side] = true
	}
	switch {
	case !taken[sideBlue]:
		return s.matchRepo.JoinMatch(ctx, matchID, userID, sideBlue)
	case !taken[sideRed]:
		return s.matchRepo.JoinMatch(ctx, matchID, userID, sideRed)
	default:
		return ErrMatchFull
	}
}

// StartMatch flips a waiting match to active once both seats are filled.
// Only the creator can start. The engine session is initialized separately
// by ActionService.InitializeMatch.
func (s *MatchService) StartMatch(ctx context.Context, matchID, userID string) (*model.Match, error) {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	if match.Status != "waiting" {
		return nil, ErrMatchNotWaiting
	}
	if match.CreatorID != userID {
		return nil, ErrNotCreator
	}

	taken := make(map[string]bool, 2)
	for _, p := range match.Players {
		taken[p.Side] = true
	}
	if !taken[sideRed] || !taken[sideBlue] {
		return nil, ErrSeatEmpty
	}

	if err := s.matchRepo.SetStarted(ctx, matchID); err != nil {
		return nil, err
	}
	return s.matchRepo.FindByID(ctx, matchID)
}

// GetMatch returns a match by ID.
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*model.Match, error) {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	return match, nil
}

// PlayerSide returns the side a user occupies in a match.
func (s *MatchService) PlayerSide(ctx context.Context, matchID, userID string) (string, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return "", err
	}
	for _, p := range match.Players {
		if p.UserID == userID {
			return p.Side, nil
		}
	}
	return "", ErrNotInMatch
}

// MarkReady flags a seated player's side as ready in the lobby and returns
// the sides currently ready. Readiness is advisory; starting remains the
// creator's call.
func (s *MatchService) MarkReady(ctx context.Context, matchID, userID string) ([]string, error) {
	side, err := s.waitingSide(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.MarkReady(ctx, matchID, side); err != nil {
		return nil, err
	}
	return s.cache.ReadySides(ctx, matchID)
}

// UnmarkReady withdraws a player's ready flag and returns the sides still
// ready.
func (s *MatchService) UnmarkReady(ctx context.Context, matchID, userID string) ([]string, error) {
	side, err := s.waitingSide(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.UnmarkReady(ctx, matchID, side); err != nil {
		return nil, err
	}
	return s.cache.ReadySides(ctx, matchID)
}

// waitingSide resolves the seat a user occupies in a waiting match.
func (s *MatchService) waitingSide(ctx context.Context, matchID, userID string) (string, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return "", err
	}
	if match.Status != "waiting" {
		return "", ErrMatchNotWaiting
	}
	for _, p := range match.Players {
		if p.UserID == userID {
			return p.Side, nil
		}
	}
	return "", ErrNotInMatch
}

// ListMatches returns open matches, the user's matches, or finished matches.
func (s *MatchService) ListMatches(ctx context.Context, userID string, filter string) ([]model.Match, error) {
	switch filter {
	case "my":
		return s.matchRepo.ListByUser(ctx, userID)
	case "finished":
		return s.matchRepo.ListFinished(ctx)
	default:
		return s.matchRepo.ListOpen(ctx)
	}
}

// DeleteMatch removes a waiting match. Only the creator can delete.
func (s *MatchService) DeleteMatch(ctx context.Context, matchID, userID string) error {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match == nil {
		return ErrMatchNotFound
	}
	if match.Status != "waiting" {
		return ErrMatchNotWaiting
	}
	if match.CreatorID != userID {
		return ErrNotCreator
	}
	return s.matchRepo.Delete(ctx, matchID)
}

// StopMatch ends an active match as a draw and clears its cached state.
// Only the creator can stop a match.
func (s *MatchService) StopMatch(ctx context.Context, matchID, userID string) (*model.Match, error) {
	match, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	if match.Status != "active" {
		return nil, ErrMatchNotActive
	}
	if match.CreatorID != userID {
		return nil, ErrNotCreator
	}
	if err := s.matchRepo.SetFinished(ctx, matchID, ""); err != nil {
		return nil, err
	}
	if err := s.cache.DeleteMatchData(ctx, matchID); err != nil {
		return nil, err
	}
	return s.matchRepo.FindByID(ctx, matchID)
}
