package collab

import (
	"context"
	"time"

	"DProject/logger"
	"DProject/tools/safe"
)

// ===== 存活监测：每条连接一个监测协程 =====
//
// 每个心跳周期向客户端写一条 ping envelope；同时独立检查会话的
// 最近活跃时间——"socket 还开着" 和 "对端还活着" 是两回事。
// 连续 HeartbeatMisses 个周期无任何出入活动即强制下线。
// 注册时启动，注销/重连顶替时随 cancel 退出。

func (m *Manager) startMonitor(w *WsConn) {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	safe.SafeGo("liveness-monitor", func() {
		m.monitorLoop(ctx, w)
	})
}

func (m *Manager) monitorLoop(ctx context.Context, w *WsConn) {
	interval := m.conf.HeartbeatInterval
	deadline := time.Duration(m.conf.HeartbeatMisses) * interval

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ping, err := BuildPing().Encode()
	if err != nil {
		logger.Errorf("[Monitor] encode ping failed: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			sess, ok := m.sessions.Get(w.UserID)
			if !ok || sess.Epoch != w.Epoch {
				// 会话已删除或已是新纪元，这个监测器没事可做了
				return
			}
			if m.conf.Clock().Sub(sess.LastActive) >= deadline {
				m.ForceDisconnect(w.UserID, "liveness timeout")
				return
			}
			// ping 不走限流/队列，也不刷新活跃时间（否则永远判不了死）
			if err := w.write(ping, m.conf.SendTimeout); err != nil {
				logger.Warnf("[Monitor] ping write failed user=%s conn=%s err=%v", w.UserID, w.ConnID, err)
				m.noteError(w)
				m.unregisterIfCurrent(w, "ping write failed")
				return
			}
		}
	}
}
