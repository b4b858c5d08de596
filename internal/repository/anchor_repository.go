package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/unifeed/internal/model"
)

type AnchorRepository interface {
	Find(ctx context.Context, accountID string, timeline model.Timeline, statusRemoteID string) (*model.FeedAnchor, error)
	// Upsert 幂等写锚点，冲突时只更新 HasMore
	Upsert(ctx context.Context, anchor *model.FeedAnchor) error
	FindState(ctx context.Context, accountID string, timeline model.Timeline) (*model.FeedState, error)
	SaveState(ctx context.Context, state *model.FeedState) error
}

type anchorRepository struct {
	db *gorm.DB
}

func NewAnchorRepository(db *gorm.DB) AnchorRepository { return &anchorRepository{db: db} }

func (r *anchorRepository) Find(ctx context.Context, accountID string, timeline model.Timeline, statusRemoteID string) (*model.FeedAnchor, error) {
	var a model.FeedAnchor
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND timeline = ? AND status_remote_id = ?", accountID, timeline, statusRemoteID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *anchorRepository) Upsert(ctx context.Context, anchor *model.FeedAnchor) error {
	if anchor.ID == "" {
		anchor.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "timeline"}, {Name: "status_remote_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"has_more", "updated_at"}),
	}).Create(anchor).Error
}

func (r *anchorRepository) FindState(ctx context.Context, accountID string, timeline model.Timeline) (*model.FeedState, error) {
	var s model.FeedState
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND timeline = ?", accountID, timeline).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *anchorRepository) SaveState(ctx context.Context, state *model.FeedState) error {
	if state.ID == "" {
		state.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Save(state).Error
}
