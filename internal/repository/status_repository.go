package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/unifeed/internal/model"
)

type StatusRepository interface {
	FindByIdentity(ctx context.Context, accountID string, id model.Identity) (*model.Status, error)
	FindByID(ctx context.Context, id string) (*model.Status, error)
	Create(ctx context.Context, status *model.Status) error
	Save(ctx context.Context, status *model.Status) error
	// KnownRemoteIDs 返回 remoteIDs 中本地已存在的那部分
	KnownRemoteIDs(ctx context.Context, accountID string, platform model.Platform, remoteIDs []string) ([]string, error)
	ListTimeline(ctx context.Context, accountID string, limit int) ([]*model.Status, error)
}

type statusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) StatusRepository { return &statusRepository{db: db} }

func (r *statusRepository) FindByIdentity(ctx context.Context, accountID string, id model.Identity) (*model.Status, error) {
	var s model.Status
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND platform = ? AND domain = ? AND remote_id = ?",
			accountID, id.Platform, id.Domain, id.RemoteID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statusRepository) FindByID(ctx context.Context, id string) (*model.Status, error) {
	var s model.Status
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statusRepository) Create(ctx context.Context, status *model.Status) error {
	if status.ID == "" {
		status.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(status).Error
}

func (r *statusRepository) Save(ctx context.Context, status *model.Status) error {
	return r.db.WithContext(ctx).Save(status).Error
}

func (r *statusRepository) KnownRemoteIDs(ctx context.Context, accountID string, platform model.Platform, remoteIDs []string) ([]string, error) {
	if len(remoteIDs) == 0 {
		return nil, nil
	}
	var known []string
	err := r.db.WithContext(ctx).Model(&model.Status{}).
		Where("account_id = ? AND platform = ? AND remote_id IN ?", accountID, platform, remoteIDs).
		Pluck("remote_id", &known).Error
	return known, err
}

func (r *statusRepository) ListTimeline(ctx context.Context, accountID string, limit int) ([]*model.Status, error) {
	if limit <= 0 {
		limit = 50
	}
	var res []*model.Status
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("posted_at DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}
