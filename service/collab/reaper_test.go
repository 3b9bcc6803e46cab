package collab

import (
	"testing"
	"time"
)

func newReaperManager(clock *fakeClock) *Manager {
	return NewManager(ManagerConf{
		NodeID:            "test_node",
		HeartbeatInterval: time.Hour,
		ReapEvery:         time.Hour,
		IdleTimeout:       30 * time.Minute,
		MetricsRetention:  10 * time.Minute,
		Clock:             clock.Now,
	})
}

func TestReapEvictsIdleSessions(t *testing.T) {
	clock := newFakeClock()
	m := newReaperManager(clock)
	defer m.Close()

	register(t, m, "idle", "org1")
	register(t, m, "busy", "org1")

	clock.Advance(31 * time.Minute)
	m.Sessions().Touch("busy")

	if n := m.reapOnce(clock.Now()); n != 1 {
		t.Fatalf("evicted = %d, want 1", n)
	}
	if _, ok := m.Get("idle"); ok {
		t.Fatal("idle connection survived reap")
	}
	if _, ok := m.Get("busy"); !ok {
		t.Fatal("active connection reaped")
	}
}

func TestReapPurgesExpiredMetrics(t *testing.T) {
	clock := newFakeClock()
	m := newReaperManager(clock)
	defer m.Close()

	register(t, m, "u1", "org1")
	m.Unregister("u1")

	// 保留期内还在（重连统计的宽限）
	clock.Advance(5 * time.Minute)
	m.reapOnce(clock.Now())
	if _, ok := m.Metrics("u1"); !ok {
		t.Fatal("metrics purged inside retention window")
	}

	clock.Advance(6 * time.Minute)
	m.reapOnce(clock.Now())
	if _, ok := m.Metrics("u1"); ok {
		t.Fatal("metrics survived past retention")
	}
}

func TestReapPurgesDeadRoomHistory(t *testing.T) {
	clock := newFakeClock()
	m := newReaperManager(clock)
	defer m.Close()

	register(t, m, "u1", "org1")
	m.Rooms().Join(RoomDocument, "doc1", "u1")
	m.BroadcastToRoom(RoomDocument, "doc1", NewEnvelope("x", nil), "u1", false)
	m.Rooms().Leave(RoomDocument, "doc1", "u1")

	m.reapOnce(clock.Now())
	if m.History().Recent(RoomDocument, "doc1") != nil {
		t.Fatal("history of dead room survived reap")
	}
}
