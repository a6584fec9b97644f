package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for Redis match state.
func snapshotKey(matchID string) string { return "match:" + matchID + ":state" }
func seqKey(matchID string) string      { return "match:" + matchID + ":seq" }
func readyKey(matchID string) string    { return "match:" + matchID + ":ready" }
func timerKey(matchID string) string    { return "match:" + matchID + ":timer" }

// SetSnapshot stores the serialized engine state of a live match.
func (c *Client) SetSnapshot(ctx context.Context, matchID string, snapshot json.RawMessage) error {
	return c.rdb.Set(ctx, snapshotKey(matchID), []byte(snapshot), 0).Err()
}

// GetSnapshot retrieves the serialized engine state, or nil when the match
// has no live snapshot.
func (c *Client) GetSnapshot(ctx context.Context, matchID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return json.RawMessage(data), nil
}

// NextActionSeq atomically increments and returns the per-match action
// counter. The counter orders concurrent action submissions.
func (c *Client) NextActionSeq(ctx context.Context, matchID string) (int64, error) {
	return c.rdb.Incr(ctx, seqKey(matchID)).Result()
}

// MarkReady adds a side to the ready set for the match.
func (c *Client) MarkReady(ctx context.Context, matchID, side string) error {
	return c.rdb.SAdd(ctx, readyKey(matchID), side).Err()
}

// UnmarkReady removes a side from the ready set.
func (c *Client) UnmarkReady(ctx context.Context, matchID, side string) error {
	return c.rdb.SRem(ctx, readyKey(matchID), side).Err()
}

// ReadyCount returns how many sides have marked ready.
func (c *Client) ReadyCount(ctx context.Context, matchID string) (int64, error) {
	return c.rdb.SCard(ctx, readyKey(matchID)).Result()
}

// ReadySides returns the set of sides that have marked ready.
func (c *Client) ReadySides(ctx context.Context, matchID string) ([]string, error) {
	return c.rdb.SMembers(ctx, readyKey(matchID)).Result()
}

// turnGracePeriod is the extra time after the displayed deadline before
// forfeit handling triggers, giving the active player a few seconds of leeway.
const turnGracePeriod = 5 * time.Second

// SetTurnTimer creates a timer key with a TTL. When the key expires, Redis
// keyspace notifications trigger deadline handling for the active player.
func (c *Client) SetTurnTimer(ctx context.Context, matchID string, deadline time.Time) error {
	ttl := time.Until(deadline) + turnGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, timerKey(matchID), deadline.Unix(), ttl).Err()
}

// ClearTurnTimer removes the timer for a match.
func (c *Client) ClearTurnTimer(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx, timerKey(matchID)).Err()
}

// DeleteMatchData removes all Redis data for a match (on match end).
func (c *Client) DeleteMatchData(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx, snapshotKey(matchID), seqKey(matchID), readyKey(matchID), timerKey(matchID)).Err()
}
