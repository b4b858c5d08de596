// Package merge reconciles freshly fetched remote entities with local
// records: content newest-wins by network timestamp, nested entities merged
// depth-first, viewer relationship flags on a separate ungated path.
package merge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/unifeed/internal/graph"
	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
	"github.com/d60-Lab/unifeed/internal/repository"
	"github.com/d60-Lab/unifeed/pkg/logger"
)

// MaxDepth 嵌套实体递归上限；远端契约不应出现环，超限按数据错误处理
const MaxDepth = 8

var ErrMergeDepth = errors.New("merge: nested entity depth exceeded")

// Engine 合并引擎。方法都在调用方的事务内同步执行，不做网络 I/O。
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

func newID() string { return uuid.New().String() }

// MergeUser 合并用户实体，返回 (记录, 是否新建)。
func (e *Engine) MergeUser(ctx context.Context, tx *gorm.DB, viewerAccountID string, p remote.UserPayload, netTime time.Time) (*model.User, bool, error) {
	users := repository.NewUserRepository(tx)
	existing, err := users.FindByIdentity(ctx, viewerAccountID, p.Identity())
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		u := &model.User{
			AccountID:   viewerAccountID,
			Platform:    p.Identity().Platform,
			Domain:      p.Identity().Domain,
			RemoteID:    p.Identity().RemoteID,
			LastUpdated: netTime,
		}
		copyUserContent(u, p)
		// 首次见到时，payload 内嵌的 viewer 关系直接落盘
		if rel, ok := p.Relationship(); ok {
			graph.ApplyRelationship(u, rel)
		}
		if err := users.Create(ctx, u); err != nil {
			return nil, false, err
		}
		usersMerged.WithLabelValues(outcomeCreated).Inc()
		return u, true, nil
	}

	// 相同或更旧的网络时间戳：内容字段全部跳过（幂等）
	if !netTime.After(existing.LastUpdated) {
		usersMerged.WithLabelValues(outcomeSkipped).Inc()
		return existing, false, nil
	}

	copyUserContent(existing, p)
	existing.LastUpdated = netTime
	if err := users.Save(ctx, existing); err != nil {
		return nil, false, err
	}
	usersMerged.WithLabelValues(outcomeUpdated).Inc()
	return existing, false, nil
}

// MergeStatus 合并帖子实体，嵌套实体（作者、被转发/引用帖、投票）
// 先于父记录深度优先合并；最内层先落盘，父记录再持引用。
func (e *Engine) MergeStatus(ctx context.Context, tx *gorm.DB, viewerAccountID string, p remote.StatusPayload, netTime time.Time) (*model.Status, bool, error) {
	return e.mergeStatus(ctx, tx, viewerAccountID, p, netTime, 0)
}

func (e *Engine) mergeStatus(ctx context.Context, tx *gorm.DB, viewerAccountID string, p remote.StatusPayload, netTime time.Time, depth int) (*model.Status, bool, error) {
	if depth > MaxDepth {
		logger.Warn("merge depth cap hit", zap.String("status", p.Identity().Key()))
		return nil, false, ErrMergeDepth
	}

	// 嵌套实体缺失可容忍：父记录不带该引用落盘
	var authorID string
	if author := p.Author(); author != nil {
		u, _, err := e.MergeUser(ctx, tx, viewerAccountID, author, netTime)
		if err != nil {
			return nil, false, err
		}
		authorID = u.ID
	}

	var repostOfID, quoteOfID *string
	if nested := p.RepostOf(); nested != nil {
		inner, _, err := e.mergeStatus(ctx, tx, viewerAccountID, nested, netTime, depth+1)
		if err != nil {
			return nil, false, err
		}
		repostOfID = &inner.ID
	}
	if nested := p.QuoteOf(); nested != nil {
		inner, _, err := e.mergeStatus(ctx, tx, viewerAccountID, nested, netTime, depth+1)
		if err != nil {
			return nil, false, err
		}
		quoteOfID = &inner.ID
	}

	var pollID *string
	if poll := p.Poll(); poll != nil {
		merged, err := e.mergePoll(ctx, tx, viewerAccountID, poll, netTime)
		if err != nil {
			return nil, false, err
		}
		pollID = &merged.ID
	}

	statuses := repository.NewStatusRepository(tx)
	existing, err := statuses.FindByIdentity(ctx, viewerAccountID, p.Identity())
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		s := &model.Status{
			AccountID:   viewerAccountID,
			Platform:    p.Identity().Platform,
			Domain:      p.Identity().Domain,
			RemoteID:    p.Identity().RemoteID,
			AuthorID:    authorID,
			RepostOfID:  repostOfID,
			QuoteOfID:   quoteOfID,
			PollID:      pollID,
			LastUpdated: netTime,
		}
		copyStatusContent(s, p)
		applyStatusViewerFlags(s, p)
		if err := statuses.Create(ctx, s); err != nil {
			return nil, false, err
		}
		statusesMerged.WithLabelValues(outcomeCreated).Inc()
		return s, true, nil
	}

	if !netTime.After(existing.LastUpdated) {
		// 内容跳过；viewer 标志位代表响应时刻的最新真相，仍然应用
		if applyStatusViewerFlags(existing, p) {
			if err := statuses.Save(ctx, existing); err != nil {
				return nil, false, err
			}
		}
		statusesMerged.WithLabelValues(outcomeSkipped).Inc()
		return existing, false, nil
	}

	copyStatusContent(existing, p)
	if authorID != "" {
		existing.AuthorID = authorID
	}
	if repostOfID != nil {
		existing.RepostOfID = repostOfID
	}
	if quoteOfID != nil {
		existing.QuoteOfID = quoteOfID
	}
	if pollID != nil {
		existing.PollID = pollID
	}
	applyStatusViewerFlags(existing, p)
	existing.LastUpdated = netTime
	if err := statuses.Save(ctx, existing); err != nil {
		return nil, false, err
	}
	statusesMerged.WithLabelValues(outcomeUpdated).Inc()
	return existing, false, nil
}

// MergePage 合并一页帖子，返回本地记录（保持页内顺序）
func (e *Engine) MergePage(ctx context.Context, tx *gorm.DB, viewerAccountID string, page *remote.Page, netTime time.Time) ([]*model.Status, error) {
	out := make([]*model.Status, 0, len(page.Statuses))
	for _, p := range page.Statuses {
		s, _, err := e.MergeStatus(ctx, tx, viewerAccountID, p, netTime)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// UpdateRelationship 关系查询结果的专用合并路径：不受 LastUpdated 门限，
// 目标用户未见过时按 first-sight 建骨架记录。
func (e *Engine) UpdateRelationship(ctx context.Context, tx *gorm.DB, viewerAccountID string, rel remote.Relationship) (*model.User, bool, error) {
	users := repository.NewUserRepository(tx)
	existing, err := users.FindByIdentity(ctx, viewerAccountID, rel.Target)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		u := &model.User{
			AccountID: viewerAccountID,
			Platform:  rel.Target.Platform,
			Domain:    rel.Target.Domain,
			RemoteID:  rel.Target.RemoteID,
		}
		graph.ApplyRelationship(u, rel)
		if err := users.Create(ctx, u); err != nil {
			return nil, false, err
		}
		relationshipsApplied.Inc()
		return u, true, nil
	}
	graph.ApplyRelationship(existing, rel)
	if err := users.Save(ctx, existing); err != nil {
		return nil, false, err
	}
	relationshipsApplied.Inc()
	return existing, false, nil
}

func (e *Engine) mergePoll(ctx context.Context, tx *gorm.DB, viewerAccountID string, p remote.PollPayload, netTime time.Time) (*model.Poll, error) {
	var existing model.Poll
	err := tx.WithContext(ctx).
		Where("account_id = ? AND platform = ? AND remote_id = ?",
			viewerAccountID, p.Identity().Platform, p.Identity().RemoteID).
		First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		poll := &model.Poll{
			ID:          newID(),
			AccountID:   viewerAccountID,
			Platform:    p.Identity().Platform,
			RemoteID:    p.Identity().RemoteID,
			Options:     p.Options(),
			VotesCount:  p.VotesCount(),
			Voted:       p.VotedByViewer(),
			ExpiresAt:   p.ExpiresAt(),
			LastUpdated: netTime,
		}
		return poll, tx.WithContext(ctx).Create(poll).Error
	}

	if !netTime.After(existing.LastUpdated) {
		return &existing, nil
	}
	existing.Options = p.Options()
	existing.VotesCount = p.VotesCount()
	existing.Voted = p.VotedByViewer()
	existing.ExpiresAt = p.ExpiresAt()
	existing.LastUpdated = netTime
	return &existing, tx.WithContext(ctx).Save(&existing).Error
}

func copyUserContent(u *model.User, p remote.UserPayload) {
	u.Handle = p.Handle()
	u.DisplayName = p.DisplayName()
	u.AvatarURL = p.AvatarURL()
	u.Bio = p.Bio()
	u.FollowersCount = p.FollowersCount()
	u.FollowingCount = p.FollowingCount()
	u.StatusesCount = p.StatusesCount()
	u.Locked = p.Locked()
}

func copyStatusContent(s *model.Status, p remote.StatusPayload) {
	s.Body = p.Body()
	s.LikeCount = p.LikeCount()
	s.RepostCount = p.RepostCount()
	if ts := p.PostedAt(); !ts.IsZero() {
		s.PostedAt = ts
	}
}

// applyStatusViewerFlags 返回是否有标志位发生变化
func applyStatusViewerFlags(s *model.Status, p remote.StatusPayload) bool {
	changed := false
	if liked, ok := p.LikedByViewer(); ok && s.LikedByMe != liked {
		s.LikedByMe = liked
		changed = true
	}
	if reposted, ok := p.RepostedByViewer(); ok && s.RepostedByMe != reposted {
		s.RepostedByMe = reposted
		changed = true
	}
	return changed
}
