package action

import "github.com/d60-Lab/unifeed/internal/model"

// userSnapshot phase 1 前的目标用户状态，失败时逐字段精确还原
type userSnapshot struct {
	IsFollowing            bool
	IsFollowedBy           bool
	IsFollowRequestPending bool
	IsBlocking             bool
	IsBlockedBy            bool
	IsMuting               bool
	FollowersCount         int64
}

func snapshotUser(u *model.User) userSnapshot {
	return userSnapshot{
		IsFollowing:            u.IsFollowing,
		IsFollowedBy:           u.IsFollowedBy,
		IsFollowRequestPending: u.IsFollowRequestPending,
		IsBlocking:             u.IsBlocking,
		IsBlockedBy:            u.IsBlockedBy,
		IsMuting:               u.IsMuting,
		FollowersCount:         u.FollowersCount,
	}
}

func (s userSnapshot) restore(u *model.User) {
	u.IsFollowing = s.IsFollowing
	u.IsFollowedBy = s.IsFollowedBy
	u.IsFollowRequestPending = s.IsFollowRequestPending
	u.IsBlocking = s.IsBlocking
	u.IsBlockedBy = s.IsBlockedBy
	u.IsMuting = s.IsMuting
	u.FollowersCount = s.FollowersCount
}

// statusSnapshot like/repost 在 phase 1 前的帖子状态
type statusSnapshot struct {
	LikeCount    int64
	RepostCount  int64
	LikedByMe    bool
	RepostedByMe bool
}

func snapshotStatus(s *model.Status) statusSnapshot {
	return statusSnapshot{
		LikeCount:    s.LikeCount,
		RepostCount:  s.RepostCount,
		LikedByMe:    s.LikedByMe,
		RepostedByMe: s.RepostedByMe,
	}
}

func (snap statusSnapshot) restore(s *model.Status) {
	s.LikeCount = snap.LikeCount
	s.RepostCount = snap.RepostCount
	s.LikedByMe = snap.LikedByMe
	s.RepostedByMe = snap.RepostedByMe
}
