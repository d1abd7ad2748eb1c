// Package cache keeps short-lived gateway state in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "replay:msg:"

// Entry is the stored state of one (FSPCode, MsgId) pair
type Entry struct {
	InProgress bool      `json:"in_progress"`
	Status     int       `json:"status"`
	ResultCode string    `json:"result_code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReplayStore records the first response to each message so a resent
// message is answered with the same bytes instead of being applied twice
type ReplayStore struct {
	rdb         *redis.Client
	replayTTL   time.Duration
	inFlightTTL time.Duration
	logger      *slog.Logger
}

func NewReplayStore(logger *slog.Logger, rdb *redis.Client, replayTTL, inFlightTTL time.Duration) *ReplayStore {
	return &ReplayStore{
		rdb:         rdb,
		replayTTL:   replayTTL,
		inFlightTTL: inFlightTTL,
		logger:      logger,
	}
}

func buildKey(fspCode, msgID string) string {
	return keyPrefix + fspCode + ":" + msgID
}

func bodyHash(b []byte) string {
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

// Claim reserves (fspCode, msgID) for the caller. A nil entry and nil error
// mean the caller owns the key and must finish with Complete or Release.
// A completed entry for an identical body is returned for replay. A different
// body, or a message still in flight, yields a DuplicateMessage error.
func (s *ReplayStore) Claim(ctx context.Context, fspCode, msgID string, body []byte) (*Entry, error) {
	key := buildKey(fspCode, msgID)
	hash := bodyHash(body)

	provisional, err := json.Marshal(Entry{InProgress: true, BodySHA256: hash, CreatedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode replay entry: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, key, provisional, s.inFlightTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim replay key %s: %w", key, err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET; the next attempt can claim it
			return nil, shared.DuplicateMessage(fspCode, msgID, "is still being processed")
		}
		return nil, fmt.Errorf("failed to load replay key %s: %w", key, err)
	}

	var cur Entry
	if err := json.Unmarshal(raw, &cur); err != nil {
		return nil, fmt.Errorf("failed to decode replay entry %s: %w", key, err)
	}

	if cur.BodySHA256 != "" && cur.BodySHA256 != hash {
		return nil, shared.DuplicateMessage(fspCode, msgID, "was already received with a different body")
	}
	if cur.InProgress || len(cur.Body) == 0 {
		return nil, shared.DuplicateMessage(fspCode, msgID, "is still being processed")
	}

	s.logger.Info("Replaying stored response", "fsp_code", fspCode, "msg_id", msgID, "status", cur.Status)
	return &cur, nil
}

// Complete stores the final response for replay
func (s *ReplayStore) Complete(ctx context.Context, fspCode, msgID string, body []byte, status int, resultCode string, response []byte) error {
	final, err := json.Marshal(Entry{
		Status:     status,
		ResultCode: resultCode,
		Body:       response,
		BodySHA256: bodyHash(body),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode replay entry: %w", err)
	}

	key := buildKey(fspCode, msgID)
	if err := s.rdb.Set(ctx, key, final, s.replayTTL).Err(); err != nil {
		s.logger.Error("Failed to store replay entry", "key", key, "error", err)
		return fmt.Errorf("failed to store replay entry %s: %w", key, err)
	}
	return nil
}

// Release drops the claim so the sender may retry the message
func (s *ReplayStore) Release(ctx context.Context, fspCode, msgID string) error {
	key := buildKey(fspCode, msgID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.logger.Error("Failed to release replay key", "key", key, "error", err)
		return fmt.Errorf("failed to release replay key %s: %w", key, err)
	}
	return nil
}
