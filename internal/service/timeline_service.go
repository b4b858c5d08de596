package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/d60-Lab/unifeed/internal/action"
	"github.com/d60-Lab/unifeed/internal/cache"
	"github.com/d60-Lab/unifeed/internal/feed"
	"github.com/d60-Lab/unifeed/internal/merge"
	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
	"github.com/d60-Lab/unifeed/internal/repository"
	"github.com/d60-Lab/unifeed/internal/store"
	"github.com/d60-Lab/unifeed/pkg/logger"
)

const defaultPageSize = 40

// TimelineService 读路径编排：拉取 → 锚点观察 → 合并 → 游标推进
type TimelineService struct {
	store     *store.Store
	engine    *merge.Engine
	tracker   *feed.Tracker
	clients   map[model.Platform]remote.Client
	creds     action.CredentialSource
	throttler *Throttler
	relCache  *cache.RelationshipCache
}

func NewTimelineService(st *store.Store, engine *merge.Engine, tracker *feed.Tracker, clients map[model.Platform]remote.Client, creds action.CredentialSource, throttler *Throttler, relCache *cache.RelationshipCache) *TimelineService {
	return &TimelineService{
		store:     st,
		engine:    engine,
		tracker:   tracker,
		clients:   clients,
		creds:     creds,
		throttler: throttler,
		relCache:  relCache,
	}
}

// RefreshHome 并发刷新全部账号的 home timeline
func (s *TimelineService) RefreshHome(ctx context.Context) error {
	accounts, err := repository.NewAccountRepository(s.store.DB()).List(ctx)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, acc := range accounts {
		acc := acc
		g.Go(func() error {
			n, err := s.RefreshHomeFor(gctx, acc.ID)
			if err != nil {
				logger.Warn("home refresh failed",
					zap.String("account", acc.ID), zap.Error(err))
				return nil // 单账号失败不拖垮整体刷新
			}
			logger.Debug("home refreshed", zap.String("account", acc.ID), zap.Int("merged", n))
			return nil
		})
	}
	return g.Wait()
}

// RefreshHomeFor 拉取单账号 home timeline 的最新一页并合并，返回合并条数
func (s *TimelineService) RefreshHomeFor(ctx context.Context, accountID string) (int, error) {
	account, client, cred, err := s.dial(ctx, accountID)
	if err != nil {
		return 0, err
	}

	cursor := remote.Cursor{SinceID: account.LastHomeCursor, Limit: defaultPageSize}
	page, err := client.HomeTimeline(ctx, cred, cursor)
	if err != nil {
		return 0, err
	}
	netTime := time.Now()
	s.throttler.Observe(account.Platform, page.Rate)

	var merged []*model.Status
	err = s.store.PerformTransaction(ctx, func(tx *gorm.DB) error {
		// 重叠检测要在 merge 之前
		if _, err := s.tracker.Observe(ctx, tx, accountID, model.TimelineHome, account.Platform, page, cursor); err != nil {
			return err
		}
		merged, err = s.engine.MergePage(ctx, tx, accountID, page, netTime)
		if err != nil {
			return err
		}
		if len(page.Statuses) > 0 {
			account.LastHomeCursor = page.Statuses[0].Identity().RemoteID
			return repository.NewAccountRepository(tx).Save(ctx, account)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, st := range merged {
		s.store.Publish(store.ChangeEvent{Kind: store.ChangeStatus, RecordID: st.ID})
	}
	return len(merged), nil
}

// LoadOlder 向下翻页：拉取 maxID 之前的内容并合并
func (s *TimelineService) LoadOlder(ctx context.Context, accountID, maxID string, limit int) ([]*model.Status, error) {
	account, client, cred, err := s.dial(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	cursor := remote.Cursor{MaxID: maxID, Limit: limit}
	page, err := client.HomeTimeline(ctx, cred, cursor)
	if err != nil {
		return nil, err
	}
	netTime := time.Now()
	s.throttler.Observe(account.Platform, page.Rate)

	var merged []*model.Status
	err = s.store.PerformTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.tracker.Observe(ctx, tx, accountID, model.TimelineHome, account.Platform, page, cursor); err != nil {
			return err
		}
		merged, err = s.engine.MergePage(ctx, tx, accountID, page, netTime)
		return err
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Local 返回本地已合并的时间线（离线读路径）
func (s *TimelineService) Local(ctx context.Context, accountID string, limit int) ([]*model.Status, error) {
	return repository.NewStatusRepository(s.store.DB()).ListTimeline(ctx, accountID, limit)
}

// LookupUser 远端查询用户并合并进本地
func (s *TimelineService) LookupUser(ctx context.Context, accountID, remoteID string) (*model.User, error) {
	account, client, cred, err := s.dial(ctx, accountID)
	if err != nil {
		return nil, err
	}
	payload, err := client.LookupUser(ctx, cred, remoteID)
	if err != nil {
		return nil, err
	}
	netTime := time.Now()
	s.throttler.Observe(account.Platform, client.LastRate())

	var user *model.User
	err = s.store.PerformTransaction(ctx, func(tx *gorm.DB) error {
		user, _, err = s.engine.MergeUser(ctx, tx, accountID, payload, netTime)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.store.Publish(store.ChangeEvent{Kind: store.ChangeUser, RecordID: user.ID})
	return user, nil
}

// RefreshRelationship 拉取关系查询结果并走专用合并路径
func (s *TimelineService) RefreshRelationship(ctx context.Context, accountID, userID string) (*model.User, error) {
	account, client, cred, err := s.dial(ctx, accountID)
	if err != nil {
		return nil, err
	}
	target, err := repository.NewUserRepository(s.store.DB()).FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target == nil || target.AccountID != accountID {
		return nil, action.ErrTargetMissing
	}

	rel, err := client.Relationship(ctx, cred, target.RemoteID)
	if err != nil {
		return nil, err
	}
	// 响应里的 target 不带 domain，以本地记录的完整标识为准
	rel.Target = target.Identity()
	s.throttler.Observe(account.Platform, client.LastRate())

	var user *model.User
	err = s.store.PerformTransaction(ctx, func(tx *gorm.DB) error {
		user, _, err = s.engine.UpdateRelationship(ctx, tx, accountID, *rel)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.relCache != nil {
		s.relCache.Put(ctx, accountID, user)
	}
	return user, nil
}

// dial 取账号、client 与凭据
func (s *TimelineService) dial(ctx context.Context, accountID string) (*model.Account, remote.Client, remote.Credentials, error) {
	account, err := repository.NewAccountRepository(s.store.DB()).FindByID(ctx, accountID)
	if err != nil {
		return nil, nil, remote.Credentials{}, err
	}
	if account == nil {
		return nil, nil, remote.Credentials{}, action.ErrActorMissing
	}
	client, ok := s.clients[account.Platform]
	if !ok {
		return nil, nil, remote.Credentials{}, action.ErrNoClient
	}
	cred, err := s.creds.Credentials(ctx, account)
	if err != nil {
		return nil, nil, remote.Credentials{}, err
	}
	return account, client, cred, nil
}
