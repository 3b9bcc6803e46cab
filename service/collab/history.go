package collab

import (
	"sync"
)

// HistoryBuffer 每房间的广播历史环形缓冲，只留最近 N 条，
// 给审计/排障看，不做重放。Append 持锁串行，历史顺序等于广播发起顺序。
type HistoryBuffer struct {
	cap int

	mu     sync.Mutex
	byRoom map[string][]*Envelope
}

func roomKey(kind RoomKind, roomID string) string {
	return string(kind) + ":" + roomID
}

func NewHistoryBuffer(capacity int) *HistoryBuffer {
	return &HistoryBuffer{
		cap:    capacity,
		byRoom: make(map[string][]*Envelope),
	}
}

func (h *HistoryBuffer) Append(kind RoomKind, roomID string, env *Envelope) {
	if h.cap <= 0 || env == nil {
		return
	}
	key := roomKey(kind, roomID)
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := append(h.byRoom[key], env)
	if len(buf) > h.cap {
		buf = buf[len(buf)-h.cap:]
	}
	h.byRoom[key] = buf
}

// Recent 最近的广播快照（旧→新）
func (h *HistoryBuffer) Recent(kind RoomKind, roomID string) []*Envelope {
	key := roomKey(kind, roomID)
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := h.byRoom[key]
	if len(buf) == 0 {
		return nil
	}
	out := make([]*Envelope, len(buf))
	copy(out, buf)
	return out
}

// PurgeDead 丢掉已不存在房间的历史（Reaper 调用）
func (h *HistoryBuffer) PurgeDead(live map[string]struct{}) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for key := range h.byRoom {
		if _, ok := live[key]; !ok {
			delete(h.byRoom, key)
			n++
		}
	}
	return n
}

func (h *HistoryBuffer) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byRoom)
}
