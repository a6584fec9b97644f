package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pellston/hexhammer/internal/bot"
	"github.com/pellston/hexhammer/internal/model"
	"github.com/pellston/hexhammer/internal/repository"
	"github.com/pellston/hexhammer/pkg/engine"
	"github.com/pellston/hexhammer/pkg/hexgrid"
)

var (
	ErrNotYourTurn = errors.New("not your activation")
	ErrNoLiveState = errors.New("no live state for this match")
)

// maxBotActions bounds a bot's uninterrupted action run. Policies always
// make progress, so the bound only trips on an engine or policy bug.
const maxBotActions = 2000

// matchSession is the in-memory live state of one active match: the engine
// controller, its dice stream, and the event recorder feeding the replay
// log. All access goes through mu.
type matchSession struct {
	mu       sync.Mutex
	ctrl     *engine.Controller
	roller   *engine.DiceRoller
	rec      *engine.EventRecorder
	seed     int64
	seq      int // last persisted event sequence
	policies map[engine.Player]bot.Policy
}

// ActionService drives live match play: action submission, bot activations,
// turn deadlines, event persistence, and snapshot maintenance. Sessions are
// rebuilt on demand from the cached snapshot, so any instance can pick up
// any match.
type ActionService struct {
	matchRepo   repository.MatchRepository
	eventRepo   repository.EventRepository
	cache       repository.MatchCache
	broadcaster Broadcaster

	modelPath   string
	turnTimeout time.Duration

	sessions sync.Map // matchID -> *matchSession
	buildMu  sync.Mutex
}

// NewActionService creates an ActionService. The model path feeds the onnx
// bot policy; turnTimeout is the per-activation deadline for human players.
func NewActionService(
	matchRepo repository.MatchRepository,
	eventRepo repository.EventRepository,
	cache repository.MatchCache,
	broadcaster Broadcaster,
	modelPath string,
	turnTimeout time.Duration,
) *ActionService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	if turnTimeout <= 0 {
		turnTimeout = 2 * time.Minute
	}
	return &ActionService{
		matchRepo:   matchRepo,
		eventRepo:   eventRepo,
		cache:       cache,
		broadcaster: broadcaster,
		modelPath:   modelPath,
		turnTimeout: turnTimeout,
	}
}

// ActionInput is the transport-level action shape. A nil weapon index means
// automatic weapon selection.
type ActionInput struct {
	Kind        string `json:"kind"`
	UnitID      int    `json:"unit_id"`
	Col         int    `json:"col"`
	Row         int    `json:"row"`
	TargetID    int    `json:"target_id"`
	WeaponIndex *int   `json:"weapon_index"`
	Steps       int    `json:"steps"`
}

func (in ActionInput) toAction() engine.Action {
	a := engine.Action{
		Kind:        engine.ActionKind(in.Kind),
		UnitID:      in.UnitID,
		Dest:        hexgrid.Coord{Col: in.Col, Row: in.Row},
		TargetID:    in.TargetID,
		WeaponIndex: engine.WeaponAuto,
		Steps:       in.Steps,
	}
	if in.WeaponIndex != nil {
		a.WeaponIndex = *in.WeaponIndex
	}
	return a
}

// InitializeMatch builds the engine state for a freshly started match,
// persists the opening events and snapshot, and arms the turn timer. Called
// once, right after the match flips to active.
func (s *ActionService) InitializeMatch(ctx context.Context, match *model.Match) error {
	gs, err := engine.NewScenarioState(match.BoardName, match.MaxTurns)
	if err != nil {
		return fmt.Errorf("build scenario %q: %w", match.BoardName, err)
	}
	roller := engine.NewRoller(match.Seed)
	rec := &engine.EventRecorder{}
	ctrl := engine.NewController(gs, roller, rec)

	sess := &matchSession{
		ctrl:     ctrl,
		roller:   roller,
		rec:      rec,
		seed:     match.Seed,
		policies: s.buildPolicies(match),
	}
	s.sessions.Store(match.ID, sess)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.persistEvents(ctx, match.ID, sess); err != nil {
		return err
	}
	if err := s.saveSnapshot(ctx, match.ID, sess); err != nil {
		return err
	}
	if err := s.cache.SetTurnTimer(ctx, match.ID, time.Now().Add(s.turnTimeout)); err != nil {
		log.Error().Err(err).Str("matchId", match.ID).Msg("Failed to arm turn timer")
	}

	s.broadcaster.BroadcastMatchEvent(match.ID, "match_started", map[string]any{
		"scenario":  match.BoardName,
		"max_turns": match.MaxTurns,
	})
	log.Info().Str("matchId", match.ID).Str("scenario", match.BoardName).
		Int64("seed", match.Seed).Msg("Match initialized")

	if _, isBot := sess.policies[bot.ActiveSide(ctrl.State())]; isBot {
		go s.runBotTurns(match.ID)
	}
	return nil
}

// announceAction numbers an applied action from the shared per-match counter
// and broadcasts the result. The counter lives in the cache, so the numbering
// stays totally ordered even when different instances apply actions for the
// same match.
func (s *ActionService) announceAction(ctx context.Context, matchID, side string, res *engine.ActionResult) {
	seq, err := s.cache.NextActionSeq(ctx, matchID)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to number applied action")
		return
	}
	s.broadcaster.BroadcastMatchEvent(matchID, "action_applied", map[string]any{
		"seq":    seq,
		"side":   side,
		"result": res,
	})
}

// buildPolicies instantiates a bot policy per bot seat. Policy construction
// never fails for seated bots: unknown names were rejected at creation and
// a missing model degrades to greedy.
func (s *ActionService) buildPolicies(match *model.Match) map[engine.Player]bot.Policy {
	policies := make(map[engine.Player]bot.Policy)
	for _, p := range match.Players {
		if !p.IsBot {
			continue
		}
		side := engine.PlayerRed
		if p.Side == sideBlue {
			side = engine.PlayerBlue
		}
		pol, err := bot.NewPolicy(p.Policy, match.Seed+int64(side), s.modelPath)
		if err != nil {
			log.Error().Err(err).Str("matchId", match.ID).Str("policy", p.Policy).
				Msg("Unknown bot policy on seat, using greedy")
			pol, _ = bot.NewPolicy("greedy", match.Seed+int64(side), s.modelPath)
		}
		policies[side] = pol
	}
	return policies
}

// session returns the live session for the match, rebuilding it from the
// cached snapshot after a restart or on an instance that has not seen the
// match yet.
func (s *ActionService) session(ctx context.Context, matchID string) (*matchSession, error) {
	if v, ok := s.sessions.Load(matchID); ok {
		return v.(*matchSession), nil
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	if v, ok := s.sessions.Load(matchID); ok {
		return v.(*matchSession), nil
	}

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

	raw, err := s.cache.GetSnapshot(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNoLiveState
	}
	snap, err := engine.UnmarshalSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	gs, err := snap.Restore()
	if err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	seq, err := s.eventRepo.LastSequence(ctx, matchID)
	if err != nil {
		return nil, err
	}

	// Resuming the dice stream at the consumed count keeps every future
	// roll identical to an uninterrupted run of the same seed.
	roller := engine.NewRollerAt(match.Seed, snap.RollsConsumed)
	rec := &engine.EventRecorder{}
	sess := &matchSession{
		ctrl:     engine.NewController(gs, roller, rec),
		roller:   roller,
		rec:      rec,
		seed:     match.Seed,
		seq:      seq,
		policies: s.buildPolicies(match),
	}
	s.sessions.Store(matchID, sess)
	log.Info().Str("matchId", matchID).Int("lastSeq", seq).
		Int("rollsConsumed", snap.RollsConsumed).Msg("Match session rehydrated")
	return sess, nil
}

// SubmitAction applies one action for the given side. A rejected action is
// returned with its error kind and persists nothing. On success the replay
// log, snapshot, and timer advance, and any bot opponent is kicked off.
func (s *ActionService) SubmitAction(ctx context.Context, matchID, side string, in ActionInput) (*engine.ActionResult, error) {
	sess, err := s.session(ctx, matchID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	gs := sess.ctrl.State()
	if gs.Status != engine.StatusActive {
		return nil, ErrMatchNotActive
	}
	if bot.ActiveSide(gs).String() != side {
		return nil, ErrNotYourTurn
	}

	res := sess.ctrl.Apply(in.toAction())
	if !res.Success {
		sess.rec.Drain()
		return &res, nil
	}

	if err := s.commit(ctx, matchID, sess); err != nil {
		return nil, err
	}
	s.announceAction(ctx, matchID, side, &res)
	return &res, nil
}

// commit persists drained events and the snapshot, then either finalizes a
// finished match or re-arms the timer and schedules bot activations. Caller
// holds the session lock.
func (s *ActionService) commit(ctx context.Context, matchID string, sess *matchSession) error {
	if err := s.persistEvents(ctx, matchID, sess); err != nil {
		return err
	}
	if sess.ctrl.State().Status != engine.StatusActive {
		return s.finalize(ctx, matchID, sess)
	}
	if err := s.saveSnapshot(ctx, matchID, sess); err != nil {
		return err
	}
	if _, isBot := sess.policies[bot.ActiveSide(sess.ctrl.State())]; isBot {
		// Bots do not time out; the pending human deadline comes down.
		if err := s.cache.ClearTurnTimer(ctx, matchID); err != nil {
			log.Error().Err(err).Str("matchId", matchID).Msg("Failed to clear turn timer")
		}
		go s.runBotTurns(matchID)
		return nil
	}
	if err := s.cache.SetTurnTimer(ctx, matchID, time.Now().Add(s.turnTimeout)); err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to re-arm turn timer")
	}
	return nil
}

// persistEvents appends every drained engine event to the replay log and
// broadcasts it. The (match, sequence) unique constraint makes replays
// gap-free and duplicate-free. Caller holds the session lock.
func (s *ActionService) persistEvents(ctx context.Context, matchID string, sess *matchSession) error {
	for _, ev := range sess.rec.Drain() {
		var payload json.RawMessage
		if ev.Payload != nil {
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				return fmt.Errorf("encode event payload: %w", err)
			}
			payload = data
		}
		sess.seq++
		stored, err := s.eventRepo.Append(ctx, matchID, sess.seq, string(ev.Kind),
			ev.Turn, string(ev.Phase), ev.Player.String(), ev.UnitID, ev.TargetID, payload)
		if err != nil {
			return fmt.Errorf("append event %d: %w", sess.seq, err)
		}
		s.broadcaster.BroadcastMatchEvent(matchID, string(ev.Kind), stored)
	}
	return nil
}

// saveSnapshot writes the serialized engine state to the cache. Snapshots
// are only taken between actions, never inside a command phase, so a
// restore never replays command-phase scoring.
func (s *ActionService) saveSnapshot(ctx context.Context, matchID string, sess *matchSession) error {
	snap := engine.NewSnapshot(sess.ctrl.State(), sess.roller.Consumed())
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.cache.SetSnapshot(ctx, matchID, data)
}

// finalize records the outcome, tears down the live state, and announces
// the result. Caller holds the session lock.
func (s *ActionService) finalize(ctx context.Context, matchID string, sess *matchSession) error {
	gs := sess.ctrl.State()
	winner := ""
	if gs.Winner != nil {
		winner = gs.Winner.String()
	}
	if err := s.matchRepo.SetFinished(ctx, matchID, winner); err != nil {
		return err
	}
	if err := s.cache.DeleteMatchData(ctx, matchID); err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to clear cached match data")
	}
	s.sessions.Delete(matchID)

	s.broadcaster.BroadcastMatchEvent(matchID, "match_ended", map[string]any{
		"winner": winner,
		"victory_points": map[string]int{
			engine.PlayerRed.String():  gs.VictoryPoints[engine.PlayerRed],
			engine.PlayerBlue.String(): gs.VictoryPoints[engine.PlayerBlue],
		},
	})
	log.Info().Str("matchId", matchID).Str("winner", winner).
		Int("turn", gs.Turn).Msg("Match finished")
	return nil
}

// runBotTurns plays bot activations until a human side is up or the match
// ends. Runs on its own goroutine; each activation commits before the next
// begins, so a crash mid-run loses no applied action.
func (s *ActionService) runBotTurns(matchID string) {
	ctx := context.Background()
	sess, err := s.session(ctx, matchID)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Bot run could not load session")
		return
	}

	for i := 0; i < maxBotActions; i++ {
		sess.mu.Lock()
		gs := sess.ctrl.State()
		if gs.Status != engine.StatusActive {
			sess.mu.Unlock()
			return
		}
		side := bot.ActiveSide(gs)
		pol, isBot := sess.policies[side]
		if !isBot {
			sess.mu.Unlock()
			return
		}

		a := pol.ChooseAction(sess.ctrl, side)
		res := sess.ctrl.Apply(a)
		if !res.Success {
			log.Warn().Str("matchId", matchID).Str("side", side.String()).
				Str("kind", string(a.Kind)).Int("unit", a.UnitID).
				Str("error", res.Error.String()).Msg("Bot action rejected, skipping unit")
			res = sess.ctrl.Apply(engine.Action{Kind: engine.ActionSkip, UnitID: a.UnitID})
			if !res.Success {
				sess.mu.Unlock()
				log.Error().Str("matchId", matchID).Int("unit", a.UnitID).
					Str("error", res.Error.String()).Msg("Bot unit wedged, aborting bot run")
				return
			}
		}
		if err := s.commitBot(ctx, matchID, sess); err != nil {
			sess.mu.Unlock()
			log.Error().Err(err).Str("matchId", matchID).Msg("Bot commit failed")
			return
		}
		s.announceAction(ctx, matchID, side.String(), &res)
		done := sess.ctrl.State().Status != engine.StatusActive
		sess.mu.Unlock()
		if done {
			return
		}
	}
	log.Error().Str("matchId", matchID).Int("limit", maxBotActions).
		Msg("Bot run hit the action bound without yielding")
}

// commitBot is commit without the bot re-dispatch; the surrounding loop
// already continues while a bot side is active.
func (s *ActionService) commitBot(ctx context.Context, matchID string, sess *matchSession) error {
	if err := s.persistEvents(ctx, matchID, sess); err != nil {
		return err
	}
	if sess.ctrl.State().Status != engine.StatusActive {
		return s.finalize(ctx, matchID, sess)
	}
	if err := s.saveSnapshot(ctx, matchID, sess); err != nil {
		return err
	}
	if _, isBot := sess.policies[bot.ActiveSide(sess.ctrl.State())]; !isBot {
		if err := s.cache.SetTurnTimer(ctx, matchID, time.Now().Add(s.turnTimeout)); err != nil {
			log.Error().Err(err).Str("matchId", matchID).Msg("Failed to arm turn timer after bot run")
		}
	}
	return nil
}

// HandleDeadline resolves an expired turn timer: every eligible unit of the
// stalled side is skipped until the phase hands over, then play continues.
func (s *ActionService) HandleDeadline(ctx context.Context, matchID string) error {
	sess, err := s.session(ctx, matchID)
	if err != nil {
		if errors.Is(err, ErrMatchNotActive) || errors.Is(err, ErrMatchNotFound) || errors.Is(err, ErrNoLiveState) {
			// Stale timer for a match that already ended.
			return nil
		}
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	gs := sess.ctrl.State()
	if gs.Status != engine.StatusActive {
		return nil
	}
	stalled := bot.ActiveSide(gs)
	if _, isBot := sess.policies[stalled]; isBot {
		// Bots do not time out; re-kick the run instead.
		go s.runBotTurns(matchID)
		return nil
	}

	phase := gs.Phase
	skipped := 0
	for gs.Status == engine.StatusActive && gs.Phase == phase && bot.ActiveSide(gs) == stalled {
		ids := sess.ctrl.EligibleUnits(phase)
		if len(ids) == 0 {
			break
		}
		res := sess.ctrl.Apply(engine.Action{Kind: engine.ActionSkip, UnitID: ids[0]})
		if !res.Success {
			return fmt.Errorf("deadline skip rejected for unit %d: %s", ids[0], res.Error)
		}
		skipped++
	}
	log.Info().Str("matchId", matchID).Str("side", stalled.String()).
		Str("phase", string(phase)).Int("skipped", skipped).Msg("Turn deadline expired, units skipped")

	s.broadcaster.BroadcastMatchEvent(matchID, "turn_timeout", map[string]any{
		"side":    stalled.String(),
		"phase":   phase,
		"skipped": skipped,
	})
	return s.commit(ctx, matchID, sess)
}

// RecoverActiveMatches rebuilds sessions for every active match after a
// restart, re-arms their timers, and resumes pending bot activations.
func (s *ActionService) RecoverActiveMatches(ctx context.Context) error {
	matches, err := s.matchRepo.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		log.Info().Msg("No active matches to recover")
		return nil
	}
	log.Info().Int("count", len(matches)).Msg("Recovering active matches after restart")

	for _, m := range matches {
		sess, err := s.session(ctx, m.ID)
		if err != nil {
			log.Error().Err(err).Str("matchId", m.ID).Msg("Failed to recover match session")
			continue
		}
		if err := s.cache.SetTurnTimer(ctx, m.ID, time.Now().Add(s.turnTimeout)); err != nil {
			log.Error().Err(err).Str("matchId", m.ID).Msg("Failed to restore turn timer")
		}
		sess.mu.Lock()
		_, isBot := sess.policies[bot.ActiveSide(sess.ctrl.State())]
		sess.mu.Unlock()
		if isBot {
			go s.runBotTurns(m.ID)
		}
	}
	return nil
}

// DropSession discards the in-memory session for a match. Called when a
// match is ended outside normal play, such as a creator stop.
func (s *ActionService) DropSession(matchID string) {
	s.sessions.Delete(matchID)
}

// GameState returns a defensive copy of the live state for rendering.
func (s *ActionService) GameState(ctx context.Context, matchID string) (*engine.GameState, error) {
	sess, err := s.session(ctx, matchID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ctrl.State().Clone(), nil
}

// EligibleUnits returns the unit IDs the active player may activate in the
// current phase.
func (s *ActionService) EligibleUnits(ctx context.Context, matchID string) ([]int, error) {
	sess, err := s.session(ctx, matchID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ctrl.EligibleUnits(sess.ctrl.State().Phase), nil
}

// MoveDestinations previews a unit's legal move destinations.
func (s *ActionService) MoveDestinations(ctx context.Context, matchID string, unitID int) ([]hexgrid.Coord, error) {
	sess, err := s.session(ctx, matchID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ctrl.MoveDestinations(unitID), nil
}

// ChargeDestinations previews a unit's charge destinations. The preview
// rolls and caches the unit's charge distance, so only the side whose
// activation it is may ask.
func (s *ActionService) ChargeDestinations(ctx context.Context, matchID, side string, unitID int) ([]hexgrid.Coord, error) {
	sess, err := s.session(ctx, matchID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if bot.ActiveSide(sess.ctrl.State()).String() != side {
		return nil, ErrNotYourTurn
	}
	dests := sess.ctrl.ChargeDestinations(unitID)
	// The preview may have cached a fresh roll; keep the snapshot's dice
	// accounting in step with it.
	if err := s.saveSnapshot(ctx, matchID, sess); err != nil {
		return nil, err
	}
	return dests, nil
}

// VisibleEnemies classifies enemies around a unit for line of sight and
// cover within the given radius.
func (s *ActionService) VisibleEnemies(ctx context.Context, matchID string, unitID, radius int) ([]engine.VisibleEnemy, error) {
	sess, err := s.session(ctx, matchID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ctrl.VisibleEnemies(unitID, radius), nil
}

// Events returns the full replay log of a match in sequence order.
func (s *ActionService) Events(ctx context.Context, matchID string) ([]model.MatchEvent, error) {
	return s.eventRepo.ListByMatch(ctx, matchID)
}
