// Package store wraps gorm as a generic transactional object store: all writes
// go through a single serialized execution context per Store instance.
package store

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Store 本地对象存储。writeMu 保证同一实例的写事务串行执行，
// 两个并发 action 对同一条记录的事务在此自然排队。
type Store struct {
	db       *gorm.DB
	writeMu  sync.Mutex
	notifier *Notifier
}

func New(db *gorm.DB, notifier *Notifier) *Store {
	return &Store{db: db, notifier: notifier}
}

// DB 返回底层连接，只读路径直接使用
func (s *Store) DB() *gorm.DB { return s.db }

// Notifier 返回变更通知器，可能为 nil
func (s *Store) Notifier() *Notifier { return s.notifier }

// PerformTransaction 在单写者队列里执行一个读写事务；work 返回错误时整体回滚。
func (s *Store) PerformTransaction(ctx context.Context, work func(tx *gorm.DB) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.WithContext(ctx).Transaction(work)
}

// Publish 事务提交后投递变更事件（notifier 为 nil 时忽略）
func (s *Store) Publish(events ...ChangeEvent) {
	if s.notifier == nil {
		return
	}
	for _, ev := range events {
		s.notifier.Enqueue(ev)
	}
}
