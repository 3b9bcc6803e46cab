package collab

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"DProject/logger"
	ka "DProject/service/kafka"
	storage "DProject/service/storage"
	errs "DProject/tools/errs"
	"DProject/tools/ids"

	"github.com/gorilla/websocket"
)

// ===== 配置 =====

type ManagerConf struct {
	NodeID string

	HeartbeatInterval time.Duration // 心跳周期（默认 30s）
	HeartbeatMisses   int           // 连续无活动周期数上限（默认 3）
	SendTimeout       time.Duration // 单次写超时（默认 5s）

	RateLimitMax    int           // 滑动窗口内最大放行数（默认 100）
	RateLimitWindow time.Duration // 窗口长度（默认 60s）

	OfflineQueueCap int // 每用户离线队列容量（默认 1000）
	HistoryCap      int // 每房间历史容量（默认 100）

	ReapEvery        time.Duration // 清理周期（默认 5m）
	IdleTimeout      time.Duration // 会话空闲强制下线阈值（默认 30m）
	MetricsRetention time.Duration // 断开后指标保留期（默认 10m）

	Clock func() time.Time // 可注入时钟（单测用）；nil => time.Now
}

func (c *ManagerConf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.NodeID == "" {
		c.NodeID = "collab_gw_1"
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.HeartbeatMisses <= 0 {
		c.HeartbeatMisses = 3
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 5 * time.Second
	}
	if c.RateLimitMax <= 0 {
		c.RateLimitMax = 100
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = 60 * time.Second
	}
	if c.OfflineQueueCap <= 0 {
		c.OfflineQueueCap = 1000
	}
	if c.HistoryCap <= 0 {
		c.HistoryCap = 100
	}
	if c.ReapEvery <= 0 {
		c.ReapEvery = 5 * time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.MetricsRetention <= 0 {
		c.MetricsRetention = 10 * time.Minute
	}
}

// ===== 数据结构 =====

// WsConn 一条活跃连接；同一 userID 任意时刻至多一条，重连即顶替。
type WsConn struct {
	ConnID      string
	UserID      string
	OrgID       string
	DisplayName string
	Epoch       int64 // 连接纪元：同一用户每次重连 +1

	Conn   *websocket.Conn
	Sink   func([]byte) error // 可注入写出口（单测用）；非空时代替底层 websocket 写
	Remote net.Addr

	CreatedAt time.Time

	writeMu sync.Mutex // gorilla/websocket 不允许并发写
	cancel  context.CancelFunc
}

// write 串行写 + 写超时；慢/卡住的对端在这里被超时掐断
func (w *WsConn) write(data []byte, timeout time.Duration) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if w.Sink != nil {
		return w.Sink(data)
	}
	if w.Conn == nil {
		return errs.New("nil conn")
	}
	if err := w.Conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return w.Conn.WriteMessage(websocket.TextMessage, data)
}

// ConnMetrics 每用户连接指标；断开后保留一个宽限期（重连统计不清零），
// 最终由 Reaper 清除。
type ConnMetrics struct {
	UserID           string
	MessagesSent     int64
	MessagesReceived int64
	BytesSent        int64
	BytesReceived    int64
	Reconnects       int64
	Errors           int64
	LastEpoch        int64
	ConnectedAt      time.Time
	DisconnectedAt   time.Time // 零值表示仍在线
}

// Manager 连接注册表 + 会话/房间/限流/离线队列/历史的组合服务对象。
// 进程内单实例部署，但不依赖任何包级单例。
type Manager struct {
	conf ManagerConf

	mu         sync.RWMutex
	conns      map[string]*WsConn
	peakActive int64

	metricsMu sync.Mutex
	metrics   map[string]*ConnMetrics

	sessions *SessionStore
	rooms    *RoomIndex
	limiter  *RateLimiter
	offline  *OfflineQueue
	history  *HistoryBuffer

	audit ka.AuditSink // 可选：广播/上下线审计流水

	totalConns   atomic.Int64
	sentTotal    atomic.Int64
	recvTotal    atomic.Int64
	queuedTotal  atomic.Int64
	droppedTotal atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// ===== 构造/关闭 =====

func NewManager(conf ManagerConf) *Manager {
	conf.norm()
	m := &Manager{
		conf:     conf,
		conns:    make(map[string]*WsConn),
		metrics:  make(map[string]*ConnMetrics),
		sessions: NewSessionStore(conf.Clock),
		rooms:    NewRoomIndex(),
		limiter:  NewRateLimiter(conf.RateLimitMax, conf.RateLimitWindow, conf.Clock),
		offline:  NewOfflineQueue(conf.OfflineQueueCap, conf.Clock),
		history:  NewHistoryBuffer(conf.HistoryCap),
		stopCh:   make(chan struct{}),
	}
	m.startReaper()
	return m
}

func (m *Manager) Conf() *ManagerConf     { return &m.conf }
func (m *Manager) Sessions() *SessionStore { return m.sessions }
func (m *Manager) Rooms() *RoomIndex       { return m.rooms }
func (m *Manager) History() *HistoryBuffer { return m.history }
func (m *Manager) Offline() *OfflineQueue  { return m.offline }

func (m *Manager) SetAuditSink(s ka.AuditSink) { m.audit = s }

func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.mu.Lock()
	all := make([]*WsConn, 0, len(m.conns))
	for _, w := range m.conns {
		all = append(all, w)
	}
	m.conns = map[string]*WsConn{}
	m.mu.Unlock()

	for _, w := range all {
		if w.cancel != nil {
			w.cancel()
		}
		closeQuiet(w.Conn)
	}
}

// ===== 注册/注销 =====

// Register 登记连接；同用户已有连接时旧的被顶替：
// 旧句柄尽力关闭（错误忽略）、重连计数 +1，然后发放新 epoch。
// 同时创建会话、加入组织房间、启动存活监测。
func (m *Manager) Register(userID string, conn *websocket.Conn, orgID, displayName string) (*WsConn, int64, error) {
	if userID == "" || orgID == "" {
		return nil, 0, errs.New("userID/orgID empty")
	}
	if displayName == "" {
		displayName = "user_" + userID
	}
	now := m.conf.Clock()

	w := &WsConn{
		ConnID:      ids.GenerateString(),
		UserID:      userID,
		OrgID:       orgID,
		DisplayName: displayName,
		Conn:        conn,
		CreatedAt:   now,
	}
	if conn != nil {
		w.Remote = conn.RemoteAddr()
	}

	m.mu.Lock()
	old := m.conns[userID]
	if old != nil {
		if old.cancel != nil {
			old.cancel()
		}
		closeQuiet(old.Conn)
	}
	m.conns[userID] = w
	active := int64(len(m.conns))
	if active > m.peakActive {
		m.peakActive = active
	}
	m.mu.Unlock()

	m.metricsMu.Lock()
	mt := m.metrics[userID]
	if mt == nil {
		mt = &ConnMetrics{UserID: userID}
		m.metrics[userID] = mt
	}
	if old != nil {
		mt.Reconnects++
	}
	mt.LastEpoch++
	mt.ConnectedAt = now
	mt.DisconnectedAt = time.Time{}
	epoch := mt.LastEpoch
	m.metricsMu.Unlock()
	w.Epoch = epoch

	m.totalConns.Add(1)

	m.sessions.Put(&Session{
		UserID:      userID,
		OrgID:       orgID,
		DisplayName: displayName,
		Epoch:       epoch,
		ConnectedAt: now,
		LastActive:  now,
	})
	m.rooms.Join(RoomOrganization, orgID, userID)

	m.startMonitor(w)

	if err := storage.PresenceOnline(userID, m.conf.NodeID, m.conf.IdleTimeout); err != nil {
		logger.Debugf("[Register] presence mirror skipped user=%s: %v", userID, err)
	}
	if m.audit != nil {
		m.audit.BroadcastEvent("user_connected", userID, map[string]any{
			"user_id": userID, "org_id": orgID, "epoch": epoch, "node_id": m.conf.NodeID,
		})
	}

	logger.Infof("[Register] user=%s conn=%s epoch=%d active=%d reconnect=%v",
		userID, w.ConnID, epoch, active, old != nil)
	return w, epoch, nil
}

// Unregister 注销该用户的连接并触发房间/会话清理；幂等（不存在则 no-op）
func (m *Manager) Unregister(userID string) bool {
	m.mu.Lock()
	w := m.conns[userID]
	if w == nil {
		m.mu.Unlock()
		return false
	}
	delete(m.conns, userID)
	m.mu.Unlock()

	m.finishDisconnect(w, "unregister")
	return true
}

// unregisterIfCurrent 只在该句柄仍是当前连接时注销；
// 重连顶替后旧读循环/旧写失败不能误杀新连接。
func (m *Manager) unregisterIfCurrent(w *WsConn, reason string) bool {
	m.mu.Lock()
	if m.conns[w.UserID] != w {
		m.mu.Unlock()
		return false
	}
	delete(m.conns, w.UserID)
	m.mu.Unlock()

	m.finishDisconnect(w, reason)
	return true
}

func (m *Manager) finishDisconnect(w *WsConn, reason string) {
	if w.cancel != nil {
		w.cancel()
	}
	closeQuiet(w.Conn)

	now := m.conf.Clock()
	m.metricsMu.Lock()
	if mt := m.metrics[w.UserID]; mt != nil {
		mt.DisconnectedAt = now
	}
	m.metricsMu.Unlock()

	// 先摘房间再广播下线：并发的成员快照要么全含要么全不含该用户
	m.rooms.RemoveUserFromAllRooms(w.UserID)
	m.sessions.Delete(w.UserID)

	if err := storage.PresenceOffline(w.UserID); err != nil {
		logger.Debugf("[Unregister] presence mirror skipped user=%s: %v", w.UserID, err)
	}
	if m.audit != nil {
		m.audit.BroadcastEvent("user_disconnected", w.UserID, map[string]any{
			"user_id": w.UserID, "org_id": w.OrgID, "reason": reason,
		})
	}

	out := m.NewEnvelope(TypeUserDisconnected, map[string]any{
		"user_id":      w.UserID,
		"display_name": w.DisplayName,
		"reason":       reason,
	})
	m.BroadcastToRoom(RoomOrganization, w.OrgID, out, w.UserID, true)

	logger.Infof("[Unregister] user=%s conn=%s reason=%s", w.UserID, w.ConnID, reason)
}

// ForceDisconnect 存活监测/Reaper 的强制下线入口
func (m *Manager) ForceDisconnect(userID, reason string) bool {
	logger.Warnf("[ForceDisconnect] user=%s reason=%s", userID, reason)
	return m.Unregister(userID)
}

// ===== 查询 =====

func (m *Manager) Get(userID string) (*WsConn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.conns[userID]
	return w, ok
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Metrics 返回指标拷贝
func (m *Manager) Metrics(userID string) (ConnMetrics, bool) {
	m.metricsMu.Lock()
	defer m.metricsMu.Unlock()
	mt, ok := m.metrics[userID]
	if !ok {
		return ConnMetrics{}, false
	}
	return *mt, true
}

// ===== 指标记账 =====

func (m *Manager) noteInbound(w *WsConn, n int) {
	m.recvTotal.Add(1)
	m.metricsMu.Lock()
	if mt := m.metrics[w.UserID]; mt != nil {
		mt.MessagesReceived++
		mt.BytesReceived += int64(n)
	}
	m.metricsMu.Unlock()
	m.sessions.Touch(w.UserID)
}

func (m *Manager) noteOutbound(w *WsConn, n int) {
	m.sentTotal.Add(1)
	m.metricsMu.Lock()
	if mt := m.metrics[w.UserID]; mt != nil {
		mt.MessagesSent++
		mt.BytesSent += int64(n)
	}
	m.metricsMu.Unlock()
	m.sessions.Touch(w.UserID)
}

func (m *Manager) noteError(w *WsConn) {
	m.metricsMu.Lock()
	if mt := m.metrics[w.UserID]; mt != nil {
		mt.Errors++
	}
	m.metricsMu.Unlock()
}

// ===== 工具函数 =====

func closeQuiet(c *websocket.Conn) {
	if c != nil {
		_ = c.Close()
	}
}
