// Package flag はパラメータストアの値を一定時間キャッシュする動的フラグを提供する。
//
// 認証の強制モードを再起動なしで切り替えるために使用する。
package flag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/gardener/internal/paramstore"
)

// DefaultTTL は取得した値を再利用する期間。
const DefaultTTL = 60 * time.Second

// 取得結果のラベル。
const (
	ResultUpdated  = "updated"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// RefreshObserver はパラメータ取得の結果を記録する。
type RefreshObserver interface {
	ObserveFlagRefresh(result string)
}

// Cache はパラメータストアの真偽値を保持するキャッシュ。
// 最後の取得試行からTTLが経過するまでは再取得しない。取得失敗時も試行時刻は更新する。
type Cache struct {
	provider paramstore.Provider
	name     string
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
	observer RefreshObserver

	group singleflight.Group

	mu            sync.Mutex
	value         bool
	lastFetchedAt time.Time
	fetched       bool
}

// Option はCacheの設定を変更する。
type Option func(*Cache)

// WithTTL は再取得までの期間を設定する。
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock は現在時刻の取得方法を差し替える。
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger はロガーを設定する。
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithObserver は取得結果の記録先を設定する。
func WithObserver(o RefreshObserver) Option {
	return func(c *Cache) { c.observer = o }
}

// WithInitial は一度も取得に成功していない間の値を設定する。既定はtrue。
func WithInitial(v bool) Option {
	return func(c *Cache) { c.value = v }
}

// New は新しいCacheを生成する。
func New(provider paramstore.Provider, name string, opts ...Option) *Cache {
	c := &Cache{
		provider: provider,
		name:     name,
		ttl:      DefaultTTL,
		now:      time.Now,
		value:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Get は現在の値を返す。TTLが経過していれば先にパラメータを取得し直す。
// 同時に呼ばれた場合も取得は1回だけ行う。
func (c *Cache) Get(ctx context.Context) bool {
	if v, fresh := c.cached(); fresh {
		return v
	}

	_, _, _ = c.group.Do(c.name, func() (any, error) {
		// 待っている間に別の呼び出しが取得を終えている場合がある
		if _, fresh := c.cached(); fresh {
			return nil, nil
		}
		// 最初の呼び出し元のリクエストが切断されても取得は最後まで行う
		c.refresh(context.WithoutCancel(ctx))
		return nil, nil
	})

	v, _ := c.cached()
	return v
}

// cached は現在の値と、それがTTL内かどうかを返す。
func (c *Cache) cached() (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := c.fetched && !c.now().After(c.lastFetchedAt.Add(c.ttl))
	return c.value, fresh
}

func (c *Cache) refresh(ctx context.Context) {
	raw, err := c.provider.GetParam(ctx, c.name)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = true
	c.lastFetchedAt = c.now()

	switch {
	case errors.Is(err, paramstore.ErrParamNotFound):
		c.logger.Warn("フラグのパラメータがありません。値を維持します",
			zap.String("param", c.name), zap.Bool("value", c.value))
		c.observe(ResultNotFound)
		return
	case err != nil:
		c.logger.Warn("フラグの取得に失敗しました。値を維持します",
			zap.String("param", c.name), zap.Bool("value", c.value), zap.Error(err))
		c.observe(ResultError)
		return
	}

	next := ParseValue(raw)
	if next != c.value {
		c.logger.Info("フラグが変更されました",
			zap.String("param", c.name), zap.Bool("from", c.value), zap.Bool("to", next))
	}
	c.value = next
	c.observe(ResultUpdated)
}

func (c *Cache) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveFlagRefresh(result)
	}
}

// ParseValue はパラメータ値を真偽値として解釈する。
// 大文字小文字を区別せず "f" で始まる値はfalse、それ以外はtrue。
func ParseValue(raw string) bool {
	return !strings.HasPrefix(strings.ToLower(raw), "f")
}
