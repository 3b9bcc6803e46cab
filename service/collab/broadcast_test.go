package collab

import (
	"testing"
	"time"
)

func TestBroadcastExcludesSender(t *testing.T) {
	m := newTestManager(nil)
	defer m.Close()

	_, recA := register(t, m, "ua", "org1")
	_, recB := register(t, m, "ub", "org1")
	m.Rooms().Join(RoomDocument, "doc1", "ua")
	m.Rooms().Join(RoomDocument, "doc1", "ub")

	n := m.BroadcastToRoom(RoomDocument, "doc1", NewEnvelope("cursor_position", map[string]any{
		"user_id": "ua",
	}), "ua", false)

	if n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	for _, typ := range recA.types() {
		if typ == "cursor_position" {
			t.Fatal("sender received its own broadcast")
		}
	}
	got := false
	for _, typ := range recB.types() {
		if typ == "cursor_position" {
			got = true
		}
	}
	if !got {
		t.Fatal("peer did not receive broadcast")
	}
}

func TestBroadcastIncludesSenderWhenNotExcluded(t *testing.T) {
	m := newTestManager(nil)
	defer m.Close()

	_, recA := register(t, m, "ua", "org1")
	register(t, m, "ub", "org1")
	m.Rooms().Join(RoomDocument, "doc1", "ua")
	m.Rooms().Join(RoomDocument, "doc1", "ub")

	n := m.BroadcastToRoom(RoomDocument, "doc1", NewEnvelope(TypeCommentAdded, map[string]any{
		"user_id": "ua",
	}), "", false)

	if n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}
	got := false
	for _, typ := range recA.types() {
		if typ == TypeCommentAdded {
			got = true
		}
	}
	if !got {
		t.Fatal("sender echo missing for comment broadcast")
	}
}

func TestBroadcastStampsMetadataAndHistory(t *testing.T) {
	m := newTestManager(nil)
	defer m.Close()

	_, rec := register(t, m, "ua", "org1")
	m.Rooms().Join(RoomDocument, "doc1", "ua")

	m.BroadcastToRoom(RoomDocument, "doc1", NewEnvelope("x", nil), "", false)

	var f map[string]any
	for i, typ := range rec.types() {
		if typ == "x" {
			f = rec.frame(i)
		}
	}
	if f == nil {
		t.Fatal("broadcast frame not received")
	}
	if f["broadcast_id"] == "" || f["broadcast_id"] == nil {
		t.Fatal("broadcast_id missing")
	}
	if f["broadcast_type"] != "document" || f["target_id"] != "doc1" {
		t.Fatalf("bad stamp: type=%v target=%v", f["broadcast_type"], f["target_id"])
	}
	if f["broadcast_time"] == nil {
		t.Fatal("broadcast_time missing")
	}

	hist := m.History().Recent(RoomDocument, "doc1")
	if len(hist) != 1 || hist[0].Type != "x" {
		t.Fatalf("history = %v", hist)
	}
}

func TestSendToUserQueuesWhenOffline(t *testing.T) {
	m := newTestManager(nil)
	defer m.Close()

	if !m.SendToUser("ghost", NewEnvelope("notice", nil), true) {
		t.Fatal("queued send reported failure")
	}
	if m.Offline().Len("ghost") != 1 {
		t.Fatalf("queue len = %d, want 1", m.Offline().Len("ghost"))
	}

	// priority 路径（queueIfOffline=false）不排队
	if m.SendToUser("ghost", NewEnvelope("ping", nil), false) {
		t.Fatal("non-queued send to offline user reported success")
	}
	if m.Offline().Len("ghost") != 1 {
		t.Fatal("priority message leaked into offline queue")
	}
}

func TestSendToUserRateLimitDrops(t *testing.T) {
	clock := newFakeClock()
	conf := ManagerConf{
		HeartbeatInterval: time.Hour,
		ReapEvery:         time.Hour,
		RateLimitMax:      2,
		RateLimitWindow:   time.Minute,
		Clock:             clock.Now,
	}
	m := NewManager(conf)
	defer m.Close()

	_, rec := register(t, m, "u1", "org1")
	for i := 0; i < 2; i++ {
		if !m.SendToUser("u1", NewEnvelope("msg", nil), true) {
			t.Fatalf("send %d rejected inside limit", i)
		}
	}
	// 超限：不送达也不排队
	if m.SendToUser("u1", NewEnvelope("msg", nil), true) {
		t.Fatal("over-limit send reported success")
	}
	if rec.count() != 2 {
		t.Fatalf("delivered frames = %d, want 2", rec.count())
	}
	if m.Offline().Len("u1") != 0 {
		t.Fatal("rate-limited message was queued")
	}
	if m.Stats().MessagesDropped != 1 {
		t.Fatalf("MessagesDropped = %d, want 1", m.Stats().MessagesDropped)
	}
}

func TestBroadcastRespectsRecipientRateLimit(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(ManagerConf{
		HeartbeatInterval: time.Hour,
		ReapEvery:         time.Hour,
		RateLimitMax:      1,
		RateLimitWindow:   time.Minute,
		Clock:             clock.Now,
	})
	defer m.Close()

	_, rec := register(t, m, "u1", "org1")
	m.Rooms().Join(RoomDocument, "doc1", "u1")

	// 直发占满窗口
	if !m.SendToUser("u1", NewEnvelope("m1", nil), true) {
		t.Fatal("first direct send denied")
	}

	// 扇出和直发同闸门：窗口满 => 丢弃，不送也不排队
	if n := m.BroadcastToRoom(RoomDocument, "doc1", NewEnvelope("m2", nil), "", false); n != 0 {
		t.Fatalf("broadcast delivered = %d to rate-limited member, want 0", n)
	}
	if rec.count() != 1 {
		t.Fatalf("frames = %d, want 1", rec.count())
	}
	if m.Offline().Len("u1") != 0 {
		t.Fatal("rate-limited broadcast leaked into offline queue")
	}
	if m.Stats().MessagesDropped != 1 {
		t.Fatalf("MessagesDropped = %d, want 1", m.Stats().MessagesDropped)
	}

	// 窗口滑走后扇出恢复送达
	clock.Advance(61 * time.Second)
	if n := m.BroadcastToRoom(RoomDocument, "doc1", NewEnvelope("m3", nil), "", false); n != 1 {
		t.Fatalf("broadcast delivered = %d after window slid, want 1", n)
	}
}

func TestWriteFailureQueuesAndUnregisters(t *testing.T) {
	m := newTestManager(nil)
	defer m.Close()

	_, rec := register(t, m, "u1", "org1")
	rec.setFail(true)

	if m.SendToUser("u1", NewEnvelope("notice", nil), true) {
		t.Fatal("send over dead transport reported success")
	}
	if _, ok := m.Get("u1"); ok {
		t.Fatal("dead connection still registered")
	}
	if m.Offline().Len("u1") != 1 {
		t.Fatalf("queue len = %d, want 1 after write failure", m.Offline().Len("u1"))
	}
	mt, _ := m.Metrics("u1")
	if mt.Errors != 1 {
		t.Fatalf("Errors = %d, want 1", mt.Errors)
	}
}

func TestDeliverQueuedWrapsAndDrainsOnce(t *testing.T) {
	m := newTestManager(nil)
	defer m.Close()

	m.SendToUser("u1", NewEnvelope("offline_notice", map[string]any{"k": "v"}), true)

	w, rec := register(t, m, "u1", "org1")
	if n := m.DeliverQueued(w); n != 1 {
		t.Fatalf("DeliverQueued = %d, want 1", n)
	}

	var wrapped map[string]any
	for i, typ := range rec.types() {
		if typ == TypeQueuedMessage {
			wrapped = rec.frame(i)
		}
	}
	if wrapped == nil {
		t.Fatal("queued_message frame missing")
	}
	inner, ok := wrapped["message"].(map[string]any)
	if !ok || inner["type"] != "offline_notice" || inner["k"] != "v" {
		t.Fatalf("bad wrapped message: %v", wrapped["message"])
	}
	if wrapped["queued_at"] == nil {
		t.Fatal("queued_at missing")
	}

	// 第二次补投必须为空
	if n := m.DeliverQueued(w); n != 0 {
		t.Fatalf("second DeliverQueued = %d, want 0", n)
	}
}
