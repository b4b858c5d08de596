package model

import "time"

// User 远端账号的本地副本，关系边以 viewer 相对标志位的形式挂在记录上
type User struct {
	ID        string   `gorm:"primaryKey;type:varchar(36)"`
	AccountID string   `gorm:"type:varchar(36);index:idx_user_identity,unique;not null"`
	Platform  Platform `gorm:"type:varchar(16);index:idx_user_identity,unique;not null"`
	Domain    string   `gorm:"type:varchar(255);index:idx_user_identity,unique"`
	RemoteID  string   `gorm:"type:varchar(64);index:idx_user_identity,unique;not null"`
	// 复合唯一键 idx_user_identity = (account_id, platform, domain, remote_id)

	Handle         string `gorm:"type:varchar(255);index:idx_user_handle"`
	DisplayName    string `gorm:"type:varchar(255)"`
	AvatarURL      string `gorm:"type:varchar(1024)"`
	Bio            string `gorm:"type:text"`
	FollowersCount int64
	FollowingCount int64
	StatusesCount  int64
	// Locked 目标开启关注审批（protected/locked）
	Locked bool

	// 关系边（相对当前 viewer），不受 LastUpdated 门限约束
	IsFollowing            bool
	IsFollowedBy           bool
	IsFollowRequestPending bool
	IsBlocking             bool
	IsBlockedBy            bool
	IsMuting               bool

	// LastUpdated 内容字段的网络时间戳，merge 的唯一 tie-breaker
	LastUpdated time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (User) TableName() string { return "users" }

func (u *User) Identity() Identity {
	return Identity{Platform: u.Platform, Domain: u.Domain, RemoteID: u.RemoteID}
}
