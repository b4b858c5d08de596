// Package feed keeps the per-timeline pagination anchors that let the UI
// distinguish "end of feed" from "older content still unfetched".
package feed

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
	"github.com/d60-Lab/unifeed/internal/repository"
)

type Tracker struct{}

func NewTracker() *Tracker { return &Tracker{} }

// Observe 记录一页拉取结果的锚点信息。必须在该页 merge 之前调用，
// 否则重叠检测会把本次刚落盘的记录误判为本地历史。
//
// 规则：页内最旧记录此前不存在本地 → 给它立 HasMore=true 锚点
// （到更旧游标之间存在缺口）；游标指向的记录本地存在 → 它的锚点
// 翻成 HasMore=false（已翻页越过）。
func (t *Tracker) Observe(ctx context.Context, tx *gorm.DB, accountID string, timeline model.Timeline, platform model.Platform, page *remote.Page, cursor remote.Cursor) (bool, error) {
	statuses := repository.NewStatusRepository(tx)
	anchors := repository.NewAnchorRepository(tx)

	remoteIDs := make([]string, 0, len(page.Statuses))
	for _, s := range page.Statuses {
		remoteIDs = append(remoteIDs, s.Identity().RemoteID)
	}

	// 空页：游标锚点处已无更旧内容
	if len(remoteIDs) == 0 {
		if cursor.MaxID != "" {
			if err := t.setHasMore(ctx, anchors, accountID, timeline, cursor.MaxID, false); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	known, err := statuses.KnownRemoteIDs(ctx, accountID, platform, remoteIDs)
	if err != nil {
		return false, err
	}
	knownSet := make(map[string]bool, len(known))
	for _, id := range known {
		knownSet[id] = true
	}

	oldest := remoteIDs[len(remoteIDs)-1]
	overlap := knownSet[oldest]
	if !overlap {
		if err := t.setHasMore(ctx, anchors, accountID, timeline, oldest, true); err != nil {
			return false, err
		}
	}

	if cursor.MaxID != "" {
		cursorKnown := knownSet[cursor.MaxID]
		if !cursorKnown {
			existing, err := statuses.KnownRemoteIDs(ctx, accountID, platform, []string{cursor.MaxID})
			if err != nil {
				return false, err
			}
			cursorKnown = len(existing) > 0
		}
		if cursorKnown {
			if err := t.setHasMore(ctx, anchors, accountID, timeline, cursor.MaxID, false); err != nil {
				return false, err
			}
		}
	}

	if err := t.updateState(ctx, anchors, accountID, timeline, page); err != nil {
		return false, err
	}
	return overlap, nil
}

// HasMore 查询某条记录的锚点；无锚点视为 false
func (t *Tracker) HasMore(ctx context.Context, db *gorm.DB, accountID string, timeline model.Timeline, statusRemoteID string) (bool, error) {
	a, err := repository.NewAnchorRepository(db).Find(ctx, accountID, timeline, statusRemoteID)
	if err != nil {
		return false, err
	}
	return a != nil && a.HasMore, nil
}

func (t *Tracker) setHasMore(ctx context.Context, anchors repository.AnchorRepository, accountID string, timeline model.Timeline, statusRemoteID string, hasMore bool) error {
	return anchors.Upsert(ctx, &model.FeedAnchor{
		AccountID:      accountID,
		Timeline:       timeline,
		StatusRemoteID: statusRemoteID,
		HasMore:        hasMore,
	})
}

// updateState 维护时间线观测到的最新/最旧远端时间
func (t *Tracker) updateState(ctx context.Context, anchors repository.AnchorRepository, accountID string, timeline model.Timeline, page *remote.Page) error {
	var newest, oldest time.Time
	for _, s := range page.Statuses {
		ts := s.PostedAt()
		if ts.IsZero() {
			continue
		}
		if newest.IsZero() || ts.After(newest) {
			newest = ts
		}
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
	}
	if newest.IsZero() {
		return nil
	}

	state, err := anchors.FindState(ctx, accountID, timeline)
	if err != nil {
		return err
	}
	if state == nil {
		state = &model.FeedState{AccountID: accountID, Timeline: timeline, NewestAt: newest, OldestAt: oldest}
		return anchors.SaveState(ctx, state)
	}
	if newest.After(state.NewestAt) {
		state.NewestAt = newest
	}
	if state.OldestAt.IsZero() || oldest.Before(state.OldestAt) {
		state.OldestAt = oldest
	}
	return anchors.SaveState(ctx, state)
}
