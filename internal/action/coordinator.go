// Package action orchestrates the optimistic-mutation-then-confirm cycle for
// user-initiated social actions: snapshot & mutate locally, call the vendor,
// then confirm with server truth or restore the snapshot exactly.
package action

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/unifeed/internal/graph"
	"github.com/d60-Lab/unifeed/internal/merge"
	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
	"github.com/d60-Lab/unifeed/internal/repository"
	"github.com/d60-Lab/unifeed/internal/store"
	"github.com/d60-Lab/unifeed/pkg/logger"
)

var (
	// ErrActorMissing / ErrTargetMissing：事务内缺记录属 badRequest，
	// 在任何远端调用发出前中止，不留下悬挂的乐观变更。
	ErrActorMissing  = errors.New("action: actor account not found")
	ErrTargetMissing = errors.New("action: target record not found")
	ErrSelfAction    = graph.ErrSelfAction
	ErrNoClient      = errors.New("action: no client for platform")
)

// CredentialSource 为账号解出调用凭据（token 解封在 service 层）
type CredentialSource interface {
	Credentials(ctx context.Context, account *model.Account) (remote.Credentials, error)
}

// Invalidator 关系缓存失效钩子，可为 nil
type Invalidator interface {
	InvalidateRelationship(ctx context.Context, accountID, userID string)
}

type Coordinator struct {
	store   *store.Store
	engine  *merge.Engine
	clients map[model.Platform]remote.Client
	creds   CredentialSource
	cache   Invalidator
	locks   *keyedMutex
}

func NewCoordinator(st *store.Store, engine *merge.Engine, clients map[model.Platform]remote.Client, creds CredentialSource, cache Invalidator) *Coordinator {
	return &Coordinator{
		store:   st,
		engine:  engine,
		clients: clients,
		creds:   creds,
		cache:   cache,
		locks:   newKeyedMutex(),
	}
}

// ToggleFollow 关注/取关。目标 Locked 时新关注进入 pending 而非 following。
func (c *Coordinator) ToggleFollow(ctx context.Context, accountID, targetUserID string) error {
	return c.userAction(ctx, kindFollow, accountID, targetUserID,
		func(u *model.User) bool { // undo?
			return u.IsFollowing || u.IsFollowRequestPending
		},
		func(u *model.User, undo bool) {
			if undo {
				// 撤销 pending 请求不回退计数：当初也没加过
				wasFollowing := u.IsFollowing
				graph.Unfollow(u)
				if wasFollowing && u.FollowersCount > 0 {
					u.FollowersCount--
				}
				return
			}
			graph.Follow(u)
			if u.IsFollowing {
				u.FollowersCount++
			}
		},
		func(ctx context.Context, cl remote.Client, cred remote.Credentials, remoteID string, undo bool) (*remote.Relationship, error) {
			if undo {
				return cl.Unfollow(ctx, cred, remoteID)
			}
			return cl.Follow(ctx, cred, remoteID)
		})
}

// ToggleBlock 拉黑/解除拉黑；拉黑蕴含取关
func (c *Coordinator) ToggleBlock(ctx context.Context, accountID, targetUserID string) error {
	return c.userAction(ctx, kindBlock, accountID, targetUserID,
		func(u *model.User) bool { return u.IsBlocking },
		func(u *model.User, undo bool) {
			if undo {
				graph.Unblock(u)
				return
			}
			graph.Block(u)
		},
		func(ctx context.Context, cl remote.Client, cred remote.Credentials, remoteID string, undo bool) (*remote.Relationship, error) {
			if undo {
				return cl.Unblock(ctx, cred, remoteID)
			}
			return cl.Block(ctx, cred, remoteID)
		})
}

// ToggleMute 静音/取消静音
func (c *Coordinator) ToggleMute(ctx context.Context, accountID, targetUserID string) error {
	return c.userAction(ctx, kindMute, accountID, targetUserID,
		func(u *model.User) bool { return u.IsMuting },
		func(u *model.User, undo bool) {
			if undo {
				graph.Unmute(u)
				return
			}
			graph.Mute(u)
		},
		func(ctx context.Context, cl remote.Client, cred remote.Credentials, remoteID string, undo bool) (*remote.Relationship, error) {
			if undo {
				return cl.Unmute(ctx, cred, remoteID)
			}
			return cl.Mute(ctx, cred, remoteID)
		})
}

// userAction 用户目标 action 的三阶段骨架
func (c *Coordinator) userAction(
	ctx context.Context,
	kind string,
	accountID, targetUserID string,
	isUndo func(*model.User) bool,
	mutate func(*model.User, bool),
	call func(context.Context, remote.Client, remote.Credentials, string, bool) (*remote.Relationship, error),
) error {
	unlock := c.locks.Lock(accountID + "|" + targetUserID)
	defer unlock()

	var (
		account *model.Account
		snap    userSnapshot
		undo    bool
		target  *model.User
	)

	// phase 1: snapshot & optimistic mutate
	err := c.store.PerformTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		account, target, err = c.loadPair(ctx, tx, accountID, targetUserID)
		if err != nil {
			return err
		}
		snap = snapshotUser(target)
		undo = isUndo(target)
		mutate(target, undo)
		return repository.NewUserRepository(tx).Save(ctx, target)
	})
	if err != nil {
		actionsTotal.WithLabelValues(kind, outcomeRejected).Inc()
		return err
	}

	// phase 2: remote call — 失败不外抛，进 phase 3 回滚
	client, ok := c.clients[target.Platform]
	var rel *remote.Relationship
	var callErr error
	if !ok {
		callErr = ErrNoClient
	} else {
		var cred remote.Credentials
		cred, callErr = c.creds.Credentials(ctx, account)
		if callErr == nil {
			rel, callErr = call(ctx, client, cred, target.RemoteID, undo)
		}
	}

	// phase 3: reconcile —— 无论成败都要执行
	recErr := c.store.PerformTransaction(ctx, func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		cur, err := users.FindByID(ctx, targetUserID)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrTargetMissing
		}
		if callErr != nil {
			snap.restore(cur)
			return users.Save(ctx, cur)
		}
		// 服务端对派生布尔值有最终话语权
		graph.ApplyRelationship(cur, *rel)
		return users.Save(ctx, cur)
	})
	if recErr != nil {
		logger.Error("action reconcile failed",
			zap.String("kind", kind), zap.String("target", targetUserID), zap.Error(recErr))
		actionsTotal.WithLabelValues(kind, outcomeRolledBack).Inc()
		return recErr
	}

	c.afterUserAction(ctx, accountID, targetUserID)
	if callErr != nil {
		actionsTotal.WithLabelValues(kind, outcomeRolledBack).Inc()
		return callErr
	}
	actionsTotal.WithLabelValues(kind, outcomeConfirmed).Inc()
	return nil
}

// ToggleLike 点赞/取消点赞，计数 ±1 先行，phase 3 以服务端计数修正
func (c *Coordinator) ToggleLike(ctx context.Context, accountID, statusID string) error {
	return c.statusAction(ctx, kindLike, accountID, statusID,
		func(s *model.Status) bool { return s.LikedByMe },
		func(s *model.Status, undo bool) {
			if undo {
				s.LikedByMe = false
				if s.LikeCount > 0 {
					s.LikeCount--
				}
				return
			}
			s.LikedByMe = true
			s.LikeCount++
		},
		func(ctx context.Context, cl remote.Client, cred remote.Credentials, remoteID string, undo bool) (remote.StatusPayload, error) {
			if undo {
				return cl.Unlike(ctx, cred, remoteID)
			}
			return cl.Like(ctx, cred, remoteID)
		},
		func(s *model.Status) *int64 { return &s.LikeCount })
}

// ToggleRepost 转发/取消转发
func (c *Coordinator) ToggleRepost(ctx context.Context, accountID, statusID string) error {
	return c.statusAction(ctx, kindRepost, accountID, statusID,
		func(s *model.Status) bool { return s.RepostedByMe },
		func(s *model.Status, undo bool) {
			if undo {
				s.RepostedByMe = false
				if s.RepostCount > 0 {
					s.RepostCount--
				}
				return
			}
			s.RepostedByMe = true
			s.RepostCount++
		},
		func(ctx context.Context, cl remote.Client, cred remote.Credentials, remoteID string, undo bool) (remote.StatusPayload, error) {
			if undo {
				return cl.Unrepost(ctx, cred, remoteID)
			}
			return cl.Repost(ctx, cred, remoteID)
		},
		func(s *model.Status) *int64 { return &s.RepostCount })
}

func (c *Coordinator) statusAction(
	ctx context.Context,
	kind string,
	accountID, statusID string,
	isUndo func(*model.Status) bool,
	mutate func(*model.Status, bool),
	call func(context.Context, remote.Client, remote.Credentials, string, bool) (remote.StatusPayload, error),
	counter func(*model.Status) *int64,
) error {
	unlock := c.locks.Lock(accountID + "|" + statusID)
	defer unlock()

	var (
		account    *model.Account
		target     *model.Status
		snap       statusSnapshot
		undo       bool
		optimistic int64
	)

	err := c.store.PerformTransaction(ctx, func(tx *gorm.DB) error {
		acc, err := repository.NewAccountRepository(tx).FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		if acc == nil {
			return ErrActorMissing
		}
		account = acc
		s, err := repository.NewStatusRepository(tx).FindByID(ctx, statusID)
		if err != nil {
			return err
		}
		if s == nil || s.AccountID != accountID {
			return ErrTargetMissing
		}
		target = s
		snap = snapshotStatus(s)
		undo = isUndo(s)
		mutate(s, undo)
		optimistic = *counter(s)
		return repository.NewStatusRepository(tx).Save(ctx, s)
	})
	if err != nil {
		actionsTotal.WithLabelValues(kind, outcomeRejected).Inc()
		return err
	}

	client, ok := c.clients[target.Platform]
	var payload remote.StatusPayload
	var callErr error
	if !ok {
		callErr = ErrNoClient
	} else {
		var cred remote.Credentials
		cred, callErr = c.creds.Credentials(ctx, account)
		if callErr == nil {
			payload, callErr = call(ctx, client, cred, target.RemoteID, undo)
		}
	}
	netTime := time.Now()

	recErr := c.store.PerformTransaction(ctx, func(tx *gorm.DB) error {
		statuses := repository.NewStatusRepository(tx)
		cur, err := statuses.FindByID(ctx, statusID)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrTargetMissing
		}
		if callErr != nil {
			snap.restore(cur)
			return statuses.Save(ctx, cur)
		}

		merged, _, err := c.engine.MergeStatus(ctx, tx, accountID, payload, netTime)
		if err != nil {
			// merge 失败按远端失败处理：回滚乐观变更
			snap.restore(cur)
			if saveErr := statuses.Save(ctx, cur); saveErr != nil {
				return saveErr
			}
			return err
		}
		// undo 后服务端计数可能尚未跟上实际减量：以本地已减的值封顶
		if undo && merged.ID == cur.ID && *counter(merged) > optimistic {
			*counter(merged) = optimistic
			return statuses.Save(ctx, merged)
		}
		return nil
	})
	if recErr != nil {
		actionsTotal.WithLabelValues(kind, outcomeRolledBack).Inc()
		if callErr != nil {
			return callErr
		}
		return recErr
	}

	c.store.Publish(store.ChangeEvent{Kind: store.ChangeStatus, RecordID: statusID})
	if callErr != nil {
		actionsTotal.WithLabelValues(kind, outcomeRolledBack).Inc()
		return callErr
	}
	actionsTotal.WithLabelValues(kind, outcomeConfirmed).Inc()
	return nil
}

// loadPair 取出账号与目标用户，校验归属与自指
func (c *Coordinator) loadPair(ctx context.Context, tx *gorm.DB, accountID, targetUserID string) (*model.Account, *model.User, error) {
	account, err := repository.NewAccountRepository(tx).FindByID(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		return nil, nil, ErrActorMissing
	}
	target, err := repository.NewUserRepository(tx).FindByID(ctx, targetUserID)
	if err != nil {
		return nil, nil, err
	}
	if target == nil || target.AccountID != accountID {
		return nil, nil, ErrTargetMissing
	}
	if target.Platform == account.Platform && target.RemoteID == account.RemoteID {
		return nil, nil, ErrSelfAction
	}
	return account, target, nil
}

func (c *Coordinator) afterUserAction(ctx context.Context, accountID, targetUserID string) {
	c.store.Publish(store.ChangeEvent{Kind: store.ChangeUser, RecordID: targetUserID})
	if c.cache != nil {
		c.cache.InvalidateRelationship(ctx, accountID, targetUserID)
	}
}
