// Package cache keeps hot relationship snapshots in redis so profile views
// don't hit the primary store on every render.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/unifeed/internal/model"
)

// RelationshipSnapshot 界面渲染所需的最小关系视图
type RelationshipSnapshot struct {
	UserID                 string `json:"user_id"`
	Handle                 string `json:"handle"`
	IsFollowing            bool   `json:"is_following"`
	IsFollowedBy           bool   `json:"is_followed_by"`
	IsFollowRequestPending bool   `json:"is_follow_request_pending"`
	IsBlocking             bool   `json:"is_blocking"`
	IsBlockedBy            bool   `json:"is_blocked_by"`
	IsMuting               bool   `json:"is_muting"`
}

type RelationshipCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRelationshipCache(rdb *redis.Client, ttl time.Duration) *RelationshipCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RelationshipCache{rdb: rdb, ttl: ttl}
}

func key(accountID, userID string) string {
	return fmt.Sprintf("rel:%s:%s", accountID, userID)
}

// Get 命中返回快照，未命中返回 (nil, nil)
func (c *RelationshipCache) Get(ctx context.Context, accountID, userID string) (*RelationshipSnapshot, error) {
	data, err := c.rdb.Get(ctx, key(accountID, userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap RelationshipSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil // 缓存损坏按未命中处理
	}
	return &snap, nil
}

func (c *RelationshipCache) Put(ctx context.Context, accountID string, u *model.User) {
	snap := RelationshipSnapshot{
		UserID:                 u.ID,
		Handle:                 u.Handle,
		IsFollowing:            u.IsFollowing,
		IsFollowedBy:           u.IsFollowedBy,
		IsFollowRequestPending: u.IsFollowRequestPending,
		IsBlocking:             u.IsBlocking,
		IsBlockedBy:            u.IsBlockedBy,
		IsMuting:               u.IsMuting,
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key(accountID, u.ID), payload, c.ttl).Err()
}

// InvalidateRelationship action 落盘后失效对应快照
func (c *RelationshipCache) InvalidateRelationship(ctx context.Context, accountID, userID string) {
	_ = c.rdb.Del(ctx, key(accountID, userID)).Err()
}
