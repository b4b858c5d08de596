package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/unifeed/internal/repository"
	"github.com/d60-Lab/unifeed/internal/store"
	"github.com/d60-Lab/unifeed/pkg/logger"
)

// Refresher 后台轮询刷新各账号 home timeline，节奏受 Throttler 建议约束
type Refresher struct {
	store        *store.Store
	timelines    *TimelineService
	throttler    *Throttler
	pollInterval time.Duration
}

func NewRefresher(st *store.Store, timelines *TimelineService, throttler *Throttler, pollInterval time.Duration) *Refresher {
	if pollInterval <= 0 {
		pollInterval = 60 * time.Second
	}
	return &Refresher{store: st, timelines: timelines, throttler: throttler, pollInterval: pollInterval}
}

// Start 启动轮询 worker，返回停止函数
func (r *Refresher) Start() func(context.Context) error {
	stop := make(chan struct{})
	go r.loop(stop)
	return func(ctx context.Context) error { close(stop); return nil }
}

func (r *Refresher) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = r.refreshOnce(context.Background())
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) error {
	accounts, err := repository.NewAccountRepository(r.store.DB()).List(ctx)
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		if !r.throttler.Allow(acc.Platform) {
			logger.Debug("refresh skipped by throttler", zap.String("account", acc.ID))
			continue
		}
		if _, err := r.timelines.RefreshHomeFor(ctx, acc.ID); err != nil {
			logger.Warn("background refresh failed",
				zap.String("account", acc.ID), zap.Error(err))
		}
	}
	return nil
}
