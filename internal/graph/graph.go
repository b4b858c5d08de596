// Package graph holds the pure edge-flag transitions for the viewer-relative
// relationship state machine. The action coordinator applies these in phase 1
// (optimistic) and phase 3 (reconcile/rollback); nothing here touches the store.
package graph

import (
	"errors"

	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
)

var ErrSelfAction = errors.New("cannot act on self")

// Follow 发起关注：目标开审批则进入 pending，否则直接 following。
// 已 following/pending 时为幂等 no-op。
func Follow(u *model.User) {
	if u.IsFollowing || u.IsFollowRequestPending {
		return
	}
	if u.Locked {
		u.IsFollowRequestPending = true
		return
	}
	u.IsFollowing = true
}

// Unfollow 取关，同时清掉待审批请求
func Unfollow(u *model.User) {
	u.IsFollowing = false
	u.IsFollowRequestPending = false
}

// Block 拉黑；block 蕴含 not-following，following/pending 原子清零
func Block(u *model.User) {
	u.IsBlocking = true
	u.IsFollowing = false
	u.IsFollowRequestPending = false
}

// Unblock 解除拉黑，不隐式恢复关注
func Unblock(u *model.User) {
	u.IsBlocking = false
}

func Mute(u *model.User)   { u.IsMuting = true }
func Unmute(u *model.User) { u.IsMuting = false }

// ApplyRelationship 以关系查询结果覆盖 viewer 边标志。
// 关系真相独立于内容时间戳到达，始终立即生效。
func ApplyRelationship(u *model.User, rel remote.Relationship) {
	u.IsFollowing = rel.Following
	u.IsFollowedBy = rel.FollowedBy
	u.IsFollowRequestPending = rel.Pending
	u.IsBlocking = rel.Blocking
	u.IsBlockedBy = rel.BlockedBy
	u.IsMuting = rel.Muting
	Normalize(u)
}

// Normalize 维持不变量：blocked 蕴含 following=false 且 pending=false
func Normalize(u *model.User) {
	if u.IsBlocking {
		u.IsFollowing = false
		u.IsFollowRequestPending = false
	}
}
