package collab

import (
	"sync"
)

// RoomKind 三个相互独立的房间命名空间
type RoomKind string

const (
	RoomDocument     RoomKind = "document"
	RoomDeal         RoomKind = "deal"
	RoomOrganization RoomKind = "organization"
)

var roomKinds = []RoomKind{RoomDocument, RoomDeal, RoomOrganization}

// RoomIndex 房间成员索引：kind -> roomID -> userID 集合。
// 房间是派生索引：首次 Join 懒创建，成员清空即删除。
type RoomIndex struct {
	mu    sync.RWMutex
	rooms map[RoomKind]map[string]map[string]struct{}
}

func NewRoomIndex() *RoomIndex {
	idx := &RoomIndex{rooms: make(map[RoomKind]map[string]map[string]struct{}, len(roomKinds))}
	for _, k := range roomKinds {
		idx.rooms[k] = make(map[string]map[string]struct{})
	}
	return idx
}

// Join 返回加入后的成员数
func (r *RoomIndex) Join(kind RoomKind, roomID, userID string) int {
	if roomID == "" || userID == "" {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byRoom := r.rooms[kind]
	set := byRoom[roomID]
	if set == nil {
		set = make(map[string]struct{})
		byRoom[roomID] = set
	}
	set[userID] = struct{}{}
	return len(set)
}

// Leave 移除成员；成员集清空时删掉房间
func (r *RoomIndex) Leave(kind RoomKind, roomID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byRoom := r.rooms[kind]
	set := byRoom[roomID]
	if set == nil {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(byRoom, roomID)
	}
}

// Members 返回成员快照（拷贝），广播迭代不与并发 Join/Leave 赛跑
func (r *RoomIndex) Members(kind RoomKind, roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.rooms[kind][roomID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	return out
}

func (r *RoomIndex) Contains(kind RoomKind, roomID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.rooms[kind][roomID]
	_, ok := set[userID]
	return ok
}

// RemoveUserFromAllRooms 断开时调用一次；持写锁一次扫完三个命名空间，
// 对并发 Members 快照保持原子：快照要么全含该用户要么全不含。
func (r *RoomIndex) RemoveUserFromAllRooms(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, byRoom := range r.rooms {
		for roomID, set := range byRoom {
			if _, ok := set[userID]; !ok {
				continue
			}
			delete(set, userID)
			if len(set) == 0 {
				delete(byRoom, roomID)
			}
		}
	}
}

// Counts 每个命名空间的房间数（统计面用）
func (r *RoomIndex) Counts() map[RoomKind]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[RoomKind]int, len(roomKinds))
	for _, k := range roomKinds {
		out[k] = len(r.rooms[k])
	}
	return out
}

// LiveRoomKeys 仍存在的房间键（kind:roomID），Reaper 清理历史缓冲时用
func (r *RoomIndex) LiveRoomKeys() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]struct{})
	for kind, byRoom := range r.rooms {
		for roomID := range byRoom {
			out[roomKey(kind, roomID)] = struct{}{}
		}
	}
	return out
}
