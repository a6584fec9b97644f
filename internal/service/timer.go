package service

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// TimerListener listens for Redis keyspace notifications on expired turn
// timer keys and auto-skips the stalled side's phase. Turn deadlines live
// only in Redis; RecoverActiveMatches re-arms them on startup, so a missed
// notification is healed on the next restart.
type TimerListener struct {
	rdb       *redis.Client
	actionSvc *ActionService
}

// NewTimerListener creates a TimerListener.
func NewTimerListener(rdb *redis.Client, actionSvc *ActionService) *TimerListener {
	return &TimerListener{rdb: rdb, actionSvc: actionSvc}
}

// Start subscribes to expired key events and blocks until the context ends.
func (t *TimerListener) Start(ctx context.Context) {
	pubsub := t.rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	defer pubsub.Close()

	log.Info().Msg("Timer listener started, listening for expired keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Timer listener stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			t.handleExpiry(ctx, msg.Payload)
		}
	}
}

// handleExpiry processes an expired key. Only acts on match timer keys.
func (t *TimerListener) handleExpiry(ctx context.Context, key string) {
	if !strings.HasPrefix(key, "match:") || !strings.HasSuffix(key, ":timer") {
		return
	}
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return
	}
	matchID := parts[1]

	log.Info().Str("matchId", matchID).Msg("Turn timer expired")
	if err := t.actionSvc.HandleDeadline(ctx, matchID); err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Deadline handling failed")
	}
}
