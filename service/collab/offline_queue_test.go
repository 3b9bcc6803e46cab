package collab

import (
	"strconv"
	"testing"
	"time"
)

func TestOfflineQueueFIFO(t *testing.T) {
	clock := newFakeClock()
	q := NewOfflineQueue(10, clock.Now)

	for i := 0; i < 3; i++ {
		q.Enqueue("u1", NewEnvelope("m"+strconv.Itoa(i), nil))
	}
	if q.Len("u1") != 3 {
		t.Fatalf("Len = %d, want 3", q.Len("u1"))
	}

	items := q.DrainAll("u1")
	if len(items) != 3 {
		t.Fatalf("drained %d, want 3", len(items))
	}
	for i, it := range items {
		if want := "m" + strconv.Itoa(i); it.Env.Type != want {
			t.Fatalf("item %d type = %s, want %s", i, it.Env.Type, want)
		}
	}

	// 排空后再次 Drain 必须为空：每条最多投一次
	if again := q.DrainAll("u1"); again != nil {
		t.Fatalf("second drain returned %d items", len(again))
	}
}

func TestOfflineQueueEvictsOldestAtCapacity(t *testing.T) {
	clock := newFakeClock()
	q := NewOfflineQueue(2, clock.Now)

	q.Enqueue("u1", NewEnvelope("m0", nil))
	q.Enqueue("u1", NewEnvelope("m1", nil))
	q.Enqueue("u1", NewEnvelope("m2", nil)) // 挤掉 m0

	items := q.DrainAll("u1")
	if len(items) != 2 {
		t.Fatalf("drained %d, want 2", len(items))
	}
	if items[0].Env.Type != "m1" || items[1].Env.Type != "m2" {
		t.Fatalf("wrong survivors: %s, %s", items[0].Env.Type, items[1].Env.Type)
	}
}

func TestOfflineQueueStampsTime(t *testing.T) {
	clock := newFakeClock()
	q := NewOfflineQueue(10, clock.Now)

	q.Enqueue("u1", NewEnvelope("m0", nil))
	clock.Advance(5 * time.Minute)
	q.Enqueue("u1", NewEnvelope("m1", nil))

	items := q.DrainAll("u1")
	if !items[1].QueuedAt.After(items[0].QueuedAt) {
		t.Fatal("QueuedAt not increasing")
	}
}

func TestOfflineQueueTotal(t *testing.T) {
	q := NewOfflineQueue(10, nil)
	q.Enqueue("u1", NewEnvelope("a", nil))
	q.Enqueue("u2", NewEnvelope("b", nil))
	q.Enqueue("u2", NewEnvelope("c", nil))
	if q.TotalQueued() != 3 {
		t.Fatalf("TotalQueued = %d, want 3", q.TotalQueued())
	}
}
