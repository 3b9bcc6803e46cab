package collab

import (
	"sync"
	"time"

	"DProject/logger"
	errs "DProject/tools/errs"
)

// QueuedItem 离线队列里的一条消息
type QueuedItem struct {
	Env      *Envelope
	QueuedAt time.Time
}

// OfflineQueue 每用户有界 FIFO；写入永不阻塞也永不报错，
// 满了淘汰最老的一条（CapacityExceeded 只记日志，不上抛）。
type OfflineQueue struct {
	cap   int
	clock func() time.Time

	mu     sync.Mutex
	byUser map[string]*userQueue
}

type userQueue struct {
	mu    sync.Mutex
	items []QueuedItem
}

func NewOfflineQueue(capacity int, clock func() time.Time) *OfflineQueue {
	if clock == nil {
		clock = time.Now
	}
	return &OfflineQueue{
		cap:    capacity,
		clock:  clock,
		byUser: make(map[string]*userQueue),
	}
}

// Enqueue 对调用方永远成功
func (q *OfflineQueue) Enqueue(userID string, env *Envelope) bool {
	if q.cap <= 0 || env == nil {
		return false
	}
	uq := q.queueFor(userID)

	uq.mu.Lock()
	defer uq.mu.Unlock()
	if len(uq.items) >= q.cap {
		// 淘汰最老的一条给新消息让位
		evicted := uq.items[0]
		uq.items = uq.items[1:]
		logger.Warnf("[OfflineQueue] %v user=%s evicted type=%s", errs.ErrCapacityExceeded, userID, evicted.Env.Type)
	}
	uq.items = append(uq.items, QueuedItem{Env: env, QueuedAt: q.clock()})
	return true
}

// DrainAll 原子清空并按 FIFO 顺序返回；重连注册后调用一次，
// 保证每条最多投递一次。
func (q *OfflineQueue) DrainAll(userID string) []QueuedItem {
	q.mu.Lock()
	uq := q.byUser[userID]
	q.mu.Unlock()
	if uq == nil {
		return nil
	}
	uq.mu.Lock()
	defer uq.mu.Unlock()
	if len(uq.items) == 0 {
		return nil
	}
	out := uq.items
	uq.items = nil
	return out
}

func (q *OfflineQueue) Len(userID string) int {
	q.mu.Lock()
	uq := q.byUser[userID]
	q.mu.Unlock()
	if uq == nil {
		return 0
	}
	uq.mu.Lock()
	defer uq.mu.Unlock()
	return len(uq.items)
}

// TotalQueued 所有用户积压总量（统计面）
func (q *OfflineQueue) TotalQueued() int {
	q.mu.Lock()
	queues := make([]*userQueue, 0, len(q.byUser))
	for _, uq := range q.byUser {
		queues = append(queues, uq)
	}
	q.mu.Unlock()

	total := 0
	for _, uq := range queues {
		uq.mu.Lock()
		total += len(uq.items)
		uq.mu.Unlock()
	}
	return total
}

func (q *OfflineQueue) queueFor(userID string) *userQueue {
	q.mu.Lock()
	defer q.mu.Unlock()
	uq := q.byUser[userID]
	if uq == nil {
		uq = &userQueue{}
		q.byUser[userID] = uq
	}
	return uq
}
