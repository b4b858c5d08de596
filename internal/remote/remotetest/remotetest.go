// Package remotetest provides in-memory payload and client fakes for tests
// and benchmarks that exercise the merge engine and action coordinator.
package remotetest

import (
	"context"
	"time"

	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
)

// User is a literal remote.UserPayload.
type User struct {
	ID         model.Identity
	UserHandle string
	Name       string
	Avatar     string
	UserBio    string
	Followers  int64
	Following  int64
	Statuses   int64
	IsLocked   bool

	Rel *remote.Relationship
}

func (u *User) Identity() model.Identity { return u.ID }
func (u *User) Handle() string           { return u.UserHandle }
func (u *User) DisplayName() string      { return u.Name }
func (u *User) AvatarURL() string        { return u.Avatar }
func (u *User) Bio() string              { return u.UserBio }
func (u *User) FollowersCount() int64    { return u.Followers }
func (u *User) FollowingCount() int64    { return u.Following }
func (u *User) StatusesCount() int64     { return u.Statuses }
func (u *User) Locked() bool             { return u.IsLocked }

func (u *User) Relationship() (remote.Relationship, bool) {
	if u.Rel == nil {
		return remote.Relationship{}, false
	}
	return *u.Rel, true
}

// Poll is a literal remote.PollPayload.
type Poll struct {
	ID      model.Identity
	Opts    []model.PollOption
	Votes   int64
	Voted   bool
	Expires *time.Time
}

func (p *Poll) Identity() model.Identity    { return p.ID }
func (p *Poll) Options() []model.PollOption { return p.Opts }
func (p *Poll) VotesCount() int64           { return p.Votes }
func (p *Poll) VotedByViewer() bool         { return p.Voted }
func (p *Poll) ExpiresAt() *time.Time       { return p.Expires }

// Status is a literal remote.StatusPayload. Liked/Reposted carry the viewer
// flag plus a presence bit, matching partial vendor responses.
type Status struct {
	ID         model.Identity
	ByUser     *User
	Text       string
	At         time.Time
	Likes      int64
	Reposts    int64
	Liked      bool
	LikedOK    bool
	Reposted   bool
	RepostedOK bool
	Retweet    *Status
	Quote      *Status
	PollData   *Poll
}

func (s *Status) Identity() model.Identity { return s.ID }
func (s *Status) Body() string             { return s.Text }
func (s *Status) PostedAt() time.Time      { return s.At }
func (s *Status) LikeCount() int64         { return s.Likes }
func (s *Status) RepostCount() int64       { return s.Reposts }

func (s *Status) Author() remote.UserPayload {
	if s.ByUser == nil {
		return nil
	}
	return s.ByUser
}

func (s *Status) LikedByViewer() (bool, bool)    { return s.Liked, s.LikedOK }
func (s *Status) RepostedByViewer() (bool, bool) { return s.Reposted, s.RepostedOK }

func (s *Status) RepostOf() remote.StatusPayload {
	if s.Retweet == nil {
		return nil
	}
	return s.Retweet
}

func (s *Status) QuoteOf() remote.StatusPayload {
	if s.Quote == nil {
		return nil
	}
	return s.Quote
}

func (s *Status) Poll() remote.PollPayload {
	if s.PollData == nil {
		return nil
	}
	return s.PollData
}

// Client is a scriptable remote.Client. Each op delegates to the matching
// func field; nil fields fail the call with a semantic error.
type Client struct {
	On model.Platform

	LookupUserFn   func(ctx context.Context, cred remote.Credentials, remoteID string) (remote.UserPayload, error)
	RelationshipFn func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error)
	FollowFn       func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error)
	UnfollowFn     func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error)
	BlockFn        func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error)
	UnblockFn      func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error)
	MuteFn         func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error)
	UnmuteFn       func(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error)
	LikeFn         func(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error)
	UnlikeFn       func(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error)
	RepostFn       func(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error)
	UnrepostFn     func(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error)
	HomeTimelineFn func(ctx context.Context, cred remote.Credentials, cursor remote.Cursor) (*remote.Page, error)

	Rate remote.RateInfo
}

func (c *Client) Platform() model.Platform  { return c.On }
func (c *Client) LastRate() remote.RateInfo { return c.Rate }

func notScripted(op string) error {
	return &remote.Error{Kind: remote.ErrSemantic, Message: "remotetest: " + op + " not scripted"}
}

func (c *Client) LookupUser(ctx context.Context, cred remote.Credentials, remoteID string) (remote.UserPayload, error) {
	if c.LookupUserFn == nil {
		return nil, notScripted("LookupUser")
	}
	return c.LookupUserFn(ctx, cred, remoteID)
}

func (c *Client) Relationship(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	if c.RelationshipFn == nil {
		return nil, notScripted("Relationship")
	}
	return c.RelationshipFn(ctx, cred, remoteID)
}

func (c *Client) Follow(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	if c.FollowFn == nil {
		return nil, notScripted("Follow")
	}
	return c.FollowFn(ctx, cred, remoteID)
}

func (c *Client) Unfollow(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	if c.UnfollowFn == nil {
		return nil, notScripted("Unfollow")
	}
	return c.UnfollowFn(ctx, cred, remoteID)
}

func (c *Client) Block(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	if c.BlockFn == nil {
		return nil, notScripted("Block")
	}
	return c.BlockFn(ctx, cred, remoteID)
}

func (c *Client) Unblock(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	if c.UnblockFn == nil {
		return nil, notScripted("Unblock")
	}
	return c.UnblockFn(ctx, cred, remoteID)
}

func (c *Client) Mute(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	if c.MuteFn == nil {
		return nil, notScripted("Mute")
	}
	return c.MuteFn(ctx, cred, remoteID)
}

func (c *Client) Unmute(ctx context.Context, cred remote.Credentials, remoteID string) (*remote.Relationship, error) {
	if c.UnmuteFn == nil {
		return nil, notScripted("Unmute")
	}
	return c.UnmuteFn(ctx, cred, remoteID)
}

func (c *Client) Like(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	if c.LikeFn == nil {
		return nil, notScripted("Like")
	}
	return c.LikeFn(ctx, cred, statusRemoteID)
}

func (c *Client) Unlike(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	if c.UnlikeFn == nil {
		return nil, notScripted("Unlike")
	}
	return c.UnlikeFn(ctx, cred, statusRemoteID)
}

func (c *Client) Repost(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	if c.RepostFn == nil {
		return nil, notScripted("Repost")
	}
	return c.RepostFn(ctx, cred, statusRemoteID)
}

func (c *Client) Unrepost(ctx context.Context, cred remote.Credentials, statusRemoteID string) (remote.StatusPayload, error) {
	if c.UnrepostFn == nil {
		return nil, notScripted("Unrepost")
	}
	return c.UnrepostFn(ctx, cred, statusRemoteID)
}

func (c *Client) HomeTimeline(ctx context.Context, cred remote.Credentials, cursor remote.Cursor) (*remote.Page, error) {
	if c.HomeTimelineFn == nil {
		return nil, notScripted("HomeTimeline")
	}
	return c.HomeTimelineFn(ctx, cred, cursor)
}
