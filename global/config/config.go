package config

import (
	"os"
	"strconv"
	"time"

	"DProject/logger"
	redis "DProject/service/storage/redis"
	ids "DProject/tools/ids"
)

// AppConfig 协作网关的进程内配置（teacher 风格：代码内默认值 + 环境变量覆盖，不读 YAML）。
type AppConfig struct {
	NodeId   string // 节点ID
	Port     int    // HTTP/WS 端口
	NodeType string

	// 心跳/存活
	HeartbeatInterval time.Duration // 心跳周期（默认 30s）
	HeartbeatMisses   int           // 连续多少个周期无活动判定失活（默认 3）
	SendTimeout       time.Duration // 单次写超时（默认 5s）

	// 限流
	RateLimitMax    int           // 窗口内最大消息数（默认 100）
	RateLimitWindow time.Duration // 滑动窗口（默认 60s）

	// 离线队列 / 历史
	OfflineQueueCap int // 每用户离线队列容量（默认 1000）
	HistoryCap      int // 每房间历史环形缓冲容量（默认 100）

	// 清理
	ReapEvery        time.Duration // 清理周期（默认 5m）
	IdleTimeout      time.Duration // 会话空闲阈值（默认 30m）
	MetricsRetention time.Duration // 断开后指标保留（默认 10m）

	// 外部组件（可选）
	RedisAddr     string
	RedisPassword string
	KafkaBrokers  []string
	AuditTopic    string

	JwtSecret string
}

const NodeTypeCollabGateway = "collabGateway"

var Global = AppConfig{
	NodeType: NodeTypeCollabGateway,
	NodeId:   "collab_gw_1",
	Port:     8080,

	HeartbeatInterval: 30 * time.Second,
	HeartbeatMisses:   3,
	SendTimeout:       5 * time.Second,

	RateLimitMax:    100,
	RateLimitWindow: 60 * time.Second,

	OfflineQueueCap: 1000,
	HistoryCap:      100,

	ReapEvery:        5 * time.Minute,
	IdleTimeout:      30 * time.Minute,
	MetricsRetention: 10 * time.Minute,

	AuditTopic: "collab_broadcast_audit",
}

func ConfigAll() {
	ConfigEnv()
	ConfigIds()
	ConfigRedis()
}

// ConfigEnv 环境变量覆盖（部署时用）
func ConfigEnv() {
	if v := os.Getenv("COLLAB_NODE_ID"); v != "" {
		Global.NodeId = v
	}
	if v := os.Getenv("COLLAB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			Global.Port = p
		}
	}
	if v := os.Getenv("COLLAB_REDIS_ADDR"); v != "" {
		Global.RedisAddr = v
	}
	if v := os.Getenv("COLLAB_REDIS_PASSWORD"); v != "" {
		Global.RedisPassword = v
	}
	if v := os.Getenv("COLLAB_KAFKA_BROKERS"); v != "" {
		Global.KafkaBrokers = []string{v}
	}
	if v := os.Getenv("COLLAB_JWT_SECRET"); v != "" {
		Global.JwtSecret = v
	}
}

func ConfigIds() {
	logger.Infof("配置id生成 node=%s", Global.NodeId)
	ids.SetNodeID(100)
}

func GetJwtSecret() []byte {
	if Global.JwtSecret != "" {
		return []byte(Global.JwtSecret)
	}
	return []byte("mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o=")
}

// ConfigRedis 在线状态镜像用；未配置地址时跳过，网关单机也能跑
func ConfigRedis() {
	if Global.RedisAddr == "" {
		logger.Infof("redis 未配置，跳过 presence 镜像")
		return
	}
	cfg := redis.Config{
		Addr: Global.RedisAddr, Password: Global.RedisPassword, DB: 0,
	}
	if err := redis.InitRedis(cfg); err != nil {
		logger.Errorf("redis init failed: %v", err)
	}
}
