package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
)

// Throttler 根据最近观测到的限流头估算安全请求节奏。
// 仅供参考：选择绕过它的调用方不会被阻塞。
type Throttler struct {
	mu       sync.Mutex
	limiters map[model.Platform]*rate.Limiter
	resetAt  map[model.Platform]time.Time
}

func NewThrottler() *Throttler {
	return &Throttler{
		limiters: make(map[model.Platform]*rate.Limiter),
		resetAt:  make(map[model.Platform]time.Time),
	}
}

// Observe 用一次响应的限流头更新该平台的安全节奏
func (t *Throttler) Observe(p model.Platform, info remote.RateInfo) {
	if info.ObservedAt.IsZero() || info.Reset.IsZero() {
		return
	}
	window := time.Until(info.Reset)
	if window <= 0 {
		// 头信息已过期，不据此更新
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if info.Remaining <= 0 {
		// 窗口耗尽：reset 前不放行，过点自动恢复
		t.resetAt[p] = info.Reset
		delete(t.limiters, p)
		return
	}
	delete(t.resetAt, p)
	// 把剩余额度均匀摊到窗口内
	interval := window / time.Duration(info.Remaining)
	if interval < time.Second {
		interval = time.Second
	}
	t.limiters[p] = rate.NewLimiter(rate.Every(interval), 1)
}

// Allow 询问当前是否在安全节奏内；未观测过的平台一律放行
func (t *Throttler) Allow(p model.Platform) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if until, ok := t.resetAt[p]; ok {
		if time.Now().Before(until) {
			return false
		}
		delete(t.resetAt, p)
	}
	l := t.limiters[p]
	if l == nil {
		return true
	}
	return l.Allow()
}
