// Package remote defines the boundary with the two vendor APIs: typed payload
// capabilities, a typed error taxonomy, and the Client contract. The merge
// engine and action coordinator are written once against these interfaces.
package remote

import (
	"context"
	"time"

	"github.com/d60-Lab/unifeed/internal/model"
)

// UserPayload 远端用户实体的解码结果
type UserPayload interface {
	Identity() model.Identity
	Handle() string
	DisplayName() string
	AvatarURL() string
	Bio() string
	FollowersCount() int64
	FollowingCount() int64
	StatusesCount() int64
	Locked() bool
	// Relationship 返回 payload 内嵌的 viewer 关系标志（部分响应不带，ok=false）
	Relationship() (Relationship, bool)
}

// PollPayload 投票实体
type PollPayload interface {
	Identity() model.Identity
	Options() []model.PollOption
	VotesCount() int64
	VotedByViewer() bool
	ExpiresAt() *time.Time
}

// StatusPayload 帖子实体，嵌套实体通过访问器暴露（缺失返回 nil）
type StatusPayload interface {
	Identity() model.Identity
	Author() UserPayload
	Body() string
	PostedAt() time.Time
	LikeCount() int64
	RepostCount() int64
	// LikedByViewer/RepostedByViewer: ok=false 表示 payload 未携带该 viewer 标志
	LikedByViewer() (bool, bool)
	RepostedByViewer() (bool, bool)
	RepostOf() StatusPayload
	QuoteOf() StatusPayload
	Poll() PollPayload
}

// Relationship viewer 与目标账号之间的关系查询结果，
// 独立于实体内容到达，不受 LastUpdated 门限约束。
type Relationship struct {
	Target     model.Identity
	Following  bool
	FollowedBy bool
	// Pending 关注请求待审批
	Pending   bool
	Blocking  bool
	BlockedBy bool
	Muting    bool
}

// Credentials 单个账号的调用凭据（token 获取不在本层范围内）
type Credentials struct {
	AccessToken string
}

// Cursor 时间线翻页游标（"older than MaxID"）
type Cursor struct {
	MaxID   string
	SinceID string
	Limit   int
}

// RateInfo 最近一次响应观测到的限流头
type RateInfo struct {
	Limit      int
	Remaining  int
	Reset      time.Time
	ObservedAt time.Time
}

// Page 一页有序帖子（新→旧）
type Page struct {
	Statuses  []StatusPayload
	NextMaxID string
	Rate      RateInfo
}

// Client 单后端的类型化调用面。实现不重试，所有失败以 *Error 返回。
type Client interface {
	Platform() model.Platform

	LookupUser(ctx context.Context, cred Credentials, remoteID string) (UserPayload, error)
	Relationship(ctx context.Context, cred Credentials, remoteID string) (*Relationship, error)

	Follow(ctx context.Context, cred Credentials, remoteID string) (*Relationship, error)
	Unfollow(ctx context.Context, cred Credentials, remoteID string) (*Relationship, error)
	Block(ctx context.Context, cred Credentials, remoteID string) (*Relationship, error)
	Unblock(ctx context.Context, cred Credentials, remoteID string) (*Relationship, error)
	Mute(ctx context.Context, cred Credentials, remoteID string) (*Relationship, error)
	Unmute(ctx context.Context, cred Credentials, remoteID string) (*Relationship, error)

	Like(ctx context.Context, cred Credentials, statusRemoteID string) (StatusPayload, error)
	Unlike(ctx context.Context, cred Credentials, statusRemoteID string) (StatusPayload, error)
	Repost(ctx context.Context, cred Credentials, statusRemoteID string) (StatusPayload, error)
	Unrepost(ctx context.Context, cred Credentials, statusRemoteID string) (StatusPayload, error)

	HomeTimeline(ctx context.Context, cred Credentials, cursor Cursor) (*Page, error)

	// LastRate 最近观测到的限流信息，throttler 参考用
	LastRate() RateInfo
}
