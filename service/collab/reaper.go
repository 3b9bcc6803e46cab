package collab

import (
	"time"

	"DProject/logger"
	"DProject/tools/safe"
)

// ===== Reaper：兜底清理 =====
//
// 传输层没干净关闭的僵尸连接靠它兜底：定期扫会话，空闲超过阈值的
// 强制下线；顺带清掉过期指标、无主限流窗口和死房间的历史缓冲，
// 防止内存被遗弃连接慢慢吃光。

func (m *Manager) startReaper() {
	safe.SafeGo("reaper", func() {
		t := time.NewTicker(m.conf.ReapEvery)
		defer t.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-t.C:
				m.reapOnce(m.conf.Clock())
			}
		}
	})
}

func (m *Manager) reapOnce(now time.Time) (evicted int) {
	// 1) 空闲会话强制下线
	for _, sess := range m.sessions.Snapshot() {
		if now.Sub(sess.LastActive) > m.conf.IdleTimeout {
			if m.ForceDisconnect(sess.UserID, "idle timeout") {
				evicted++
			}
		}
	}

	// 2) 断开超过保留期的指标清除（重连统计的宽限期到此为止）
	purgedMetrics := 0
	m.metricsMu.Lock()
	for userID, mt := range m.metrics {
		if mt.DisconnectedAt.IsZero() {
			continue
		}
		if now.Sub(mt.DisconnectedAt) > m.conf.MetricsRetention {
			delete(m.metrics, userID)
			m.limiter.Forget(userID)
			purgedMetrics++
		}
	}
	m.metricsMu.Unlock()

	// 3) 已不存在房间的历史缓冲
	purgedHistory := m.history.PurgeDead(m.rooms.LiveRoomKeys())

	if evicted > 0 || purgedMetrics > 0 || purgedHistory > 0 {
		logger.Infof("[Reaper] evicted=%d metrics_purged=%d history_purged=%d active=%d",
			evicted, purgedMetrics, purgedHistory, m.ActiveCount())
	}
	return evicted
}
