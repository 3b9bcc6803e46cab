package collab

import (
	"sync"
	"time"
)

// RateLimiter 每用户滑动窗口限流：窗口内已放行数 < max 才放行，
// 只有放行才记录时间戳。拒绝无副作用，丢弃还是排队由调用方决定。
// 外层锁只管 map 取值，窗口自带小锁，避免所有用户串行化。
type RateLimiter struct {
	max    int
	window time.Duration
	clock  func() time.Time

	mu     sync.Mutex
	byUser map[string]*rateWindow
}

type rateWindow struct {
	mu     sync.Mutex
	stamps []time.Time
}

func NewRateLimiter(max int, window time.Duration, clock func() time.Time) *RateLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &RateLimiter{
		max:    max,
		window: window,
		clock:  clock,
		byUser: make(map[string]*rateWindow),
	}
}

func (l *RateLimiter) Allow(userID string) bool {
	if l.max <= 0 {
		return true
	}
	w := l.windowFor(userID)
	now := l.clock()
	cutoff := now.Add(-l.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	// 淘汰窗口外的时间戳
	idx := 0
	for idx < len(w.stamps) && !w.stamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[idx:]...)
	}

	if len(w.stamps) >= l.max {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Forget 清掉某用户的窗口（Reaper 回收长期不活跃的用户）
func (l *RateLimiter) Forget(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byUser, userID)
}

func (l *RateLimiter) windowFor(userID string) *rateWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.byUser[userID]
	if w == nil {
		w = &rateWindow{}
		l.byUser[userID] = w
	}
	return w
}
