package collab

import (
	"sync"
	"sync/atomic"
	"time"

	"DProject/logger"
	errs "DProject/tools/errs"
	"DProject/tools/ids"
)

// ===== 广播引擎：单发 + 房间扇出 =====

// WriteEnvelope 直写某条连接（握手回执、error、pong、离线补投等），
// 不过限流、不排队。
func (m *Manager) WriteEnvelope(w *WsConn, env *Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	if err := w.write(data, m.conf.SendTimeout); err != nil {
		m.noteError(w)
		return err
	}
	m.noteOutbound(w, len(data))
	return nil
}

// SendToUser 单发：
// 限流拒绝 => 丢弃并返回 false（不排队）；
// 在线写失败 => 错误计数、可选入离线队列、注销失效连接；
// 离线 => 按需入队，返回 true 表示“已接收待投”而非“已送达”。
func (m *Manager) SendToUser(userID string, env *Envelope, queueIfOffline bool) bool {
	if !m.limiter.Allow(userID) {
		m.droppedTotal.Add(1)
		logger.Warnf("[SendToUser] %v user=%s type=%s, dropped", errs.ErrAdmissionDenied, userID, env.Type)
		return false
	}

	data, err := env.Encode()
	if err != nil {
		logger.Errorf("[SendToUser] marshal failed user=%s type=%s err=%v", userID, env.Type, err)
		return false
	}
	return m.deliver(userID, env, data, queueIfOffline)
}

// deliver 已序列化的投递路径；扇出时每房间只序列化一次
func (m *Manager) deliver(userID string, env *Envelope, data []byte, queueIfOffline bool) bool {
	w, online := m.Get(userID)
	if !online {
		if queueIfOffline {
			m.offline.Enqueue(userID, env)
			m.queuedTotal.Add(1)
			return true
		}
		return false
	}

	if err := w.write(data, m.conf.SendTimeout); err != nil {
		// 写失败按死连接处理：计数、可选排队、摘掉这条连接
		m.noteError(w)
		logger.Warnf("[SendToUser] %v user=%s conn=%s type=%s", errs.ErrTransport.WithDetail(err.Error()), userID, w.ConnID, env.Type)
		if queueIfOffline {
			m.offline.Enqueue(userID, env)
			m.queuedTotal.Add(1)
		}
		m.unregisterIfCurrent(w, "transport error")
		return false
	}
	m.noteOutbound(w, len(data))
	return true
}

// BroadcastToRoom 房间扇出：
// 先盖上 broadcast_id / broadcast_type / target_id / broadcast_time，
// 记入历史环形缓冲，取成员快照后并发单发（排除 excludeUserID）。
// 每个成员的发送和 SendToUser 走同一道限流闸门：窗口满的接收方
// 这条广播直接丢弃（计入 dropped），不送也不排队。
// priority 广播（ping、下线通知这类过期即无意义的）不给离线用户排队。
// 等全部发送结束后返回成功送达数。
func (m *Manager) BroadcastToRoom(kind RoomKind, roomID string, env *Envelope, excludeUserID string, priority bool) int {
	env.Fields["broadcast_id"] = ids.GenerateString()
	env.Fields["broadcast_type"] = string(kind)
	env.Fields["target_id"] = roomID
	env.Fields["broadcast_time"] = m.conf.Clock().UTC().Format(time.RFC3339)

	m.history.Append(kind, roomID, env)

	data, err := env.Encode()
	if err != nil {
		logger.Errorf("[Broadcast] marshal failed room=%s:%s type=%s err=%v", kind, roomID, env.Type, err)
		return 0
	}

	members := m.rooms.Members(kind, roomID)
	if len(members) == 0 {
		return 0
	}

	var wg sync.WaitGroup
	var delivered atomic.Int64
	for _, userID := range members {
		if userID == excludeUserID {
			continue
		}
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			if !m.limiter.Allow(uid) {
				m.droppedTotal.Add(1)
				logger.Warnf("[Broadcast] %v user=%s type=%s, dropped", errs.ErrAdmissionDenied, uid, env.Type)
				return
			}
			if m.deliver(uid, env, data, !priority) {
				delivered.Add(1)
			}
		}(userID)
	}
	wg.Wait()

	n := int(delivered.Load())
	logger.Debugf("[Broadcast] room=%s:%s type=%s members=%d delivered=%d",
		kind, roomID, env.Type, len(members), n)
	if m.audit != nil {
		m.audit.BroadcastEvent("broadcast", roomID, map[string]any{
			"broadcast_id":   env.Fields["broadcast_id"],
			"broadcast_type": string(kind),
			"target_id":      roomID,
			"msg_type":       env.Type,
			"members":        len(members),
			"delivered":      n,
		})
	}
	return n
}

// DeliverQueued 连接(重)注册后调用一次：原子掏空离线队列，
// 逐条用 queued_message 包装后直写新连接。
func (m *Manager) DeliverQueued(w *WsConn) int {
	items := m.offline.DrainAll(w.UserID)
	if len(items) == 0 {
		return 0
	}
	n := 0
	for _, it := range items {
		wrapped := BuildQueuedMessage(it.Env, it.QueuedAt, m.conf.Clock())
		if err := m.WriteEnvelope(w, wrapped); err != nil {
			logger.Warnf("[DeliverQueued] write failed user=%s type=%s err=%v", w.UserID, it.Env.Type, err)
			continue
		}
		n++
	}
	logger.Infof("[DeliverQueued] user=%s queued=%d delivered=%d", w.UserID, len(items), n)
	return n
}
