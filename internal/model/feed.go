package model

import "time"

// Timeline 时间线类别
type Timeline string

const (
	TimelineHome    Timeline = "home"
	TimelineLocal   Timeline = "local"
	TimelineFederal Timeline = "federated"
)

// FeedAnchor 翻页锚点：HasMore=true 表示该记录之后还有一段未拉取的历史
type FeedAnchor struct {
	ID             string   `gorm:"primaryKey;type:varchar(36)"`
	AccountID      string   `gorm:"type:varchar(36);index:idx_anchor_key,unique;not null"`
	Timeline       Timeline `gorm:"type:varchar(16);index:idx_anchor_key,unique;not null"`
	StatusRemoteID string   `gorm:"type:varchar(64);index:idx_anchor_key,unique;not null"`
	HasMore        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (FeedAnchor) TableName() string { return "feed_anchors" }

// FeedState 每条时间线观测到的最新/最旧远端时间
type FeedState struct {
	ID        string   `gorm:"primaryKey;type:varchar(36)"`
	AccountID string   `gorm:"type:varchar(36);index:idx_feed_state_key,unique;not null"`
	Timeline  Timeline `gorm:"type:varchar(16);index:idx_feed_state_key,unique;not null"`
	NewestAt  time.Time
	OldestAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FeedState) TableName() string { return "feed_states" }
