package model

import "time"

// PollOption 投票选项
type PollOption struct {
	Label string `json:"label"`
	Votes int64  `json:"votes"`
}

// Poll 附加在 Status 上的投票
type Poll struct {
	ID        string   `gorm:"primaryKey;type:varchar(36)"`
	AccountID string   `gorm:"type:varchar(36);index:idx_poll_identity,unique;not null"`
	Platform  Platform `gorm:"type:varchar(16);index:idx_poll_identity,unique;not null"`
	RemoteID  string   `gorm:"type:varchar(64);index:idx_poll_identity,unique;not null"`

	Options    []PollOption `gorm:"serializer:json;type:text"`
	VotesCount int64
	Voted      bool
	ExpiresAt  *time.Time

	LastUpdated time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Poll) TableName() string { return "polls" }
