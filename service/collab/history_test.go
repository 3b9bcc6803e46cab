package collab

import (
	"strconv"
	"testing"
)

func TestHistoryTrimsToCapacity(t *testing.T) {
	h := NewHistoryBuffer(3)
	for i := 0; i < 5; i++ {
		h.Append(RoomDocument, "doc1", NewEnvelope("m"+strconv.Itoa(i), nil))
	}

	recent := h.Recent(RoomDocument, "doc1")
	if len(recent) != 3 {
		t.Fatalf("kept %d, want 3", len(recent))
	}
	// 旧→新，留的是最近三条
	for i, env := range recent {
		if want := "m" + strconv.Itoa(i+2); env.Type != want {
			t.Fatalf("recent[%d] = %s, want %s", i, env.Type, want)
		}
	}
}

func TestHistoryPurgeDead(t *testing.T) {
	h := NewHistoryBuffer(10)
	h.Append(RoomDocument, "doc1", NewEnvelope("a", nil))
	h.Append(RoomDeal, "model_m1", NewEnvelope("b", nil))

	live := map[string]struct{}{"document:doc1": {}}
	if n := h.PurgeDead(live); n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
	if h.Recent(RoomDeal, "model_m1") != nil {
		t.Fatal("dead room history survived purge")
	}
	if len(h.Recent(RoomDocument, "doc1")) != 1 {
		t.Fatal("live room history purged")
	}
}
