package collab

import (
	"time"

	errs "DProject/tools/errs"
)

// ===== 管理面读接口（上游 REST 用，不走 wire 协议）=====
// 查不到的用户/房间一律显式 not found，不抛异常。

type UserSummary struct {
	UserID        string    `json:"user_id"`
	OrgID         string    `json:"organization_id"`
	DisplayName   string    `json:"display_name"`
	Epoch         int64     `json:"epoch"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastActive    time.Time `json:"last_active"`
	CurrentDocID  string    `json:"current_document_id,omitempty"`
	CurrentDealID string    `json:"current_deal_id,omitempty"`
}

type RoomMember struct {
	UserSummary
	Online           bool  `json:"online"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesReceived int64 `json:"messages_received"`
	Errors           int64 `json:"errors"`
}

type RoomDetail struct {
	Kind    string       `json:"kind"`
	RoomID  string       `json:"room_id"`
	Members []RoomMember `json:"members"`
}

type StatsSnapshot struct {
	ActiveConnections int64            `json:"active_connections"`
	PeakConnections   int64            `json:"peak_connections"`
	TotalConnections  int64            `json:"total_connections"`
	MessagesSent      int64            `json:"messages_sent"`
	MessagesReceived  int64            `json:"messages_received"`
	MessagesQueued    int64            `json:"messages_queued"`
	MessagesDropped   int64            `json:"messages_dropped"`
	QueueOccupancy    int64            `json:"queue_occupancy"`
	Rooms             map[string]int   `json:"rooms"`
}

type UserDetail struct {
	Session        Session     `json:"session"`
	Metrics        ConnMetrics `json:"metrics"`
	Online         bool        `json:"online"`
	QueuedMessages int         `json:"queued_messages"`
}

func sessionSummary(sess Session) UserSummary {
	return UserSummary{
		UserID:        sess.UserID,
		OrgID:         sess.OrgID,
		DisplayName:   sess.DisplayName,
		Epoch:         sess.Epoch,
		ConnectedAt:   sess.ConnectedAt,
		LastActive:    sess.LastActive,
		CurrentDocID:  sess.CurrentDocID,
		CurrentDealID: sess.CurrentDealID,
	}
}

// ListActiveUsers orgID 为空表示不过滤
func (m *Manager) ListActiveUsers(orgID string) []UserSummary {
	out := make([]UserSummary, 0)
	for _, sess := range m.sessions.Snapshot() {
		if orgID != "" && sess.OrgID != orgID {
			continue
		}
		out = append(out, sessionSummary(sess))
	}
	return out
}

// RoomDetailOf 房间成员明细（含每成员活跃/指标）
func (m *Manager) RoomDetailOf(kind RoomKind, roomID string) (*RoomDetail, error) {
	members := m.rooms.Members(kind, roomID)
	if len(members) == 0 {
		return nil, errs.ErrRecordNotFound.WithDetail("room " + roomKey(kind, roomID))
	}
	out := &RoomDetail{Kind: string(kind), RoomID: roomID, Members: make([]RoomMember, 0, len(members))}
	for _, userID := range members {
		rm := RoomMember{}
		if sess, ok := m.sessions.Get(userID); ok {
			rm.UserSummary = sessionSummary(sess)
		} else {
			rm.UserID = userID
		}
		_, rm.Online = m.Get(userID)
		if mt, ok := m.Metrics(userID); ok {
			rm.MessagesSent = mt.MessagesSent
			rm.MessagesReceived = mt.MessagesReceived
			rm.Errors = mt.Errors
		}
		out.Members = append(out.Members, rm)
	}
	return out, nil
}

// Stats 聚合统计
func (m *Manager) Stats() StatsSnapshot {
	m.mu.RLock()
	active := int64(len(m.conns))
	peak := m.peakActive
	m.mu.RUnlock()

	counts := m.rooms.Counts()
	rooms := make(map[string]int, len(counts))
	for kind, n := range counts {
		rooms[string(kind)] = n
	}

	return StatsSnapshot{
		ActiveConnections: active,
		PeakConnections:   peak,
		TotalConnections:  m.totalConns.Load(),
		MessagesSent:      m.sentTotal.Load(),
		MessagesReceived:  m.recvTotal.Load(),
		MessagesQueued:    m.queuedTotal.Load(),
		MessagesDropped:   m.droppedTotal.Load(),
		QueueOccupancy:    int64(m.offline.TotalQueued()),
		Rooms:             rooms,
	}
}

// UserSnapshot 单用户完整视图：会话 + 指标 + 队列积压。
// 在线会话没有、指标也没有（保留期已过）才算 not found。
func (m *Manager) UserSnapshot(userID string) (*UserDetail, error) {
	sess, hasSession := m.sessions.Get(userID)
	mt, hasMetrics := m.Metrics(userID)
	if !hasSession && !hasMetrics {
		return nil, errs.ErrRecordNotFound.WithDetail("user " + userID)
	}
	_, online := m.Get(userID)
	return &UserDetail{
		Session:        sess,
		Metrics:        mt,
		Online:         online,
		QueuedMessages: m.offline.Len(userID),
	}, nil
}
