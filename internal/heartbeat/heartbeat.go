// Package heartbeat はプロセスの生存を定期的にログへ出力する。
package heartbeat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval は既定の出力間隔。
const DefaultInterval = 60 * time.Second

// Heartbeat は一定間隔で生存ログを出力するバックグラウンドプロセス。
// 業務処理は持たない。
type Heartbeat struct {
	// interval は出力間隔。
	interval time.Duration
	// logger は出力先のロガー。
	logger *zap.Logger
	// beats はこれまでの出力回数。
	beats atomic.Uint64
	// startedAt は開始時刻。稼働時間の計算に使う。
	startedAt time.Time

	// mu はcancelとdoneへの並行アクセスを保護するミューテックス。
	mu sync.Mutex
	// cancel はバックグラウンドゴルーチンを停止するためのキャンセル関数。
	cancel context.CancelFunc
	// done はゴルーチンの終了を通知する。
	done chan struct{}
}

// New は新しいHeartbeatを生成する。intervalが0以下の場合はDefaultIntervalを使う。
func New(interval time.Duration, logger *zap.Logger) *Heartbeat {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Heartbeat{interval: interval, logger: logger}
}

// Start はバックグラウンドで生存ログの出力を開始する。ctxがキャンセルされると停止する。
// 既に開始している場合は何もしない。
func (h *Heartbeat) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	h.startedAt = time.Now()

	go h.run(ctx, h.done)
}

func (h *Heartbeat) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("ハートビートを停止しました")
			return
		case <-ticker.C:
			n := h.beats.Add(1)
			h.logger.Debug("稼働中",
				zap.Uint64("beat", n),
				zap.Duration("uptime", time.Since(h.startedAt).Round(time.Second)),
			)
		}
	}
}

// Stop はバックグラウンドの出力を停止し、ゴルーチンの終了を待つ。
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// count はこれまでの出力回数を返す。
func (h *Heartbeat) count() uint64 {
	return h.beats.Load()
}
