package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/unifeed/pkg/logger"
)

// ChangeKind 变更记录的类别
type ChangeKind string

const (
	ChangeUser   ChangeKind = "user"
	ChangeStatus ChangeKind = "status"
	ChangeAnchor ChangeKind = "anchor"
)

// ChangeEvent 提交后的记录变更，UI 层订阅用
type ChangeEvent struct {
	Kind     ChangeKind
	RecordID string
	At       time.Time
}

// Notifier 异步变更通知器：buffered channel + 后台 worker，
// 队列满时丢弃并告警，绝不阻塞提交路径。
type Notifier struct {
	ch        chan ChangeEvent
	metricsCh chan time.Duration

	mu   sync.RWMutex
	subs []chan ChangeEvent
}

func NewNotifier(queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &Notifier{ch: make(chan ChangeEvent, queueSize), metricsCh: make(chan time.Duration, 65536)}
}

// Subscribe 注册一个订阅通道；慢订阅者会丢事件而不是阻塞分发
func (n *Notifier) Subscribe(buffer int) <-chan ChangeEvent {
	if buffer <= 0 {
		buffer = 256
	}
	sub := make(chan ChangeEvent, buffer)
	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()
	return sub
}

// Start 启动分发 worker，返回停止函数
func (n *Notifier) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case ev := <-n.ch:
					n.dispatch(ev)
					if !ev.At.IsZero() {
						select {
						case n.metricsCh <- time.Since(ev.At):
						default:
						}
					}
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		// 等待队列自然排空一小段时间
		timeout := time.After(2 * time.Second)
		for {
			select {
			case <-timeout:
				return nil
			default:
				if len(n.ch) == 0 {
					return nil
				}
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
}

func (n *Notifier) dispatch(ev ChangeEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, sub := range n.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

func (n *Notifier) Enqueue(ev ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case n.ch <- ev:
	default:
		logger.Warn("notifier queue full, drop event",
			zap.String("kind", string(ev.Kind)), zap.String("record", ev.RecordID))
	}
}

// Metrics 返回事件投递耗时的只读通道（每分发一条发送一次 duration）。
func (n *Notifier) Metrics() <-chan time.Duration { return n.metricsCh }

// QueueLen 返回当前队列长度（采样值）。
func (n *Notifier) QueueLen() int { return len(n.ch) }
