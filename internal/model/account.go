package model

import "time"

// Account 已登录身份（每条 User/Status 记录都挂在一个观察者账号下）
type Account struct {
	ID          string   `gorm:"primaryKey;type:varchar(36)"`
	Platform    Platform `gorm:"type:varchar(16);index:idx_account_identity,unique;not null"`
	Domain      string   `gorm:"type:varchar(255);index:idx_account_identity,unique"`
	RemoteID    string   `gorm:"type:varchar(64);index:idx_account_identity,unique;not null"`
	Handle      string   `gorm:"type:varchar(255)"`
	// SealedToken 是 pkg/secret 加密后的 access token
	SealedToken string `gorm:"type:text"`
	// LastHomeCursor 上次 home timeline 刷新时拿到的最新游标
	LastHomeCursor string `gorm:"type:varchar(128)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Account) TableName() string { return "accounts" }

func (a *Account) Identity() Identity {
	return Identity{Platform: a.Platform, Domain: a.Domain, RemoteID: a.RemoteID}
}
