package model

import "time"

// Status 帖子。RepostOfID/QuoteOfID 是非拥有引用：被引用记录由 store 按自身
// identity 持有，多个引用方共享同一行。
type Status struct {
	ID        string   `gorm:"primaryKey;type:varchar(36)"`
	AccountID string   `gorm:"type:varchar(36);index:idx_status_identity,unique;not null"`
	Platform  Platform `gorm:"type:varchar(16);index:idx_status_identity,unique;not null"`
	Domain    string   `gorm:"type:varchar(255);index:idx_status_identity,unique"`
	RemoteID  string   `gorm:"type:varchar(64);index:idx_status_identity,unique;not null"`

	AuthorID string `gorm:"type:varchar(36);index:idx_status_author;not null"`
	Body     string `gorm:"type:text"`

	LikeCount   int64
	RepostCount int64

	RepostOfID *string `gorm:"type:varchar(36);index"`
	QuoteOfID  *string `gorm:"type:varchar(36);index"`
	PollID     *string `gorm:"type:varchar(36)"`

	// viewer 相对标志位
	LikedByMe    bool
	RepostedByMe bool

	// PostedAt 远端发布时间，timeline 排序与 anchor 统计用
	PostedAt    time.Time `gorm:"index:idx_status_posted"`
	LastUpdated time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Status) TableName() string { return "statuses" }

func (s *Status) Identity() Identity {
	return Identity{Platform: s.Platform, Domain: s.Domain, RemoteID: s.RemoteID}
}
