package collab

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(3, time.Minute, clock.Now)

	for i := 0; i < 3; i++ {
		if !l.Allow("u1") {
			t.Fatalf("message %d denied inside limit", i)
		}
	}
	if l.Allow("u1") {
		t.Fatal("message over limit admitted")
	}

	// 拒绝不记时间戳：窗口过半再试仍然满
	clock.Advance(30 * time.Second)
	if l.Allow("u1") {
		t.Fatal("admitted while window still full")
	}

	// 最早的时间戳滑出窗口后放行
	clock.Advance(31 * time.Second)
	if !l.Allow("u1") {
		t.Fatal("denied after window slid")
	}
}

func TestRateLimiterPerUser(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(1, time.Minute, clock.Now)

	if !l.Allow("u1") {
		t.Fatal("u1 first message denied")
	}
	if l.Allow("u1") {
		t.Fatal("u1 second message admitted")
	}
	if !l.Allow("u2") {
		t.Fatal("u2 throttled by u1's window")
	}
}

func TestRateLimiterForget(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(1, time.Minute, clock.Now)

	l.Allow("u1")
	if l.Allow("u1") {
		t.Fatal("admitted over limit")
	}
	l.Forget("u1")
	if !l.Allow("u1") {
		t.Fatal("denied after Forget")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	l := NewRateLimiter(0, time.Minute, nil)
	for i := 0; i < 10; i++ {
		if !l.Allow("u1") {
			t.Fatal("disabled limiter denied a message")
		}
	}
}
