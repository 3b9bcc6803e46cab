package main

import (
	"fmt"

	config "DProject/global/config"
	"DProject/logger"
	mid "DProject/middleware"
	"DProject/service/collab"
	"DProject/service/collab/handlers"
	kafka "DProject/service/kafka"

	"github.com/gin-gonic/gin"
)

func main() {
	config.ConfigAll()

	mgr := collab.NewManager(collab.ManagerConf{
		NodeID:            config.Global.NodeId,
		HeartbeatInterval: config.Global.HeartbeatInterval,
		HeartbeatMisses:   config.Global.HeartbeatMisses,
		SendTimeout:       config.Global.SendTimeout,
		RateLimitMax:      config.Global.RateLimitMax,
		RateLimitWindow:   config.Global.RateLimitWindow,
		OfflineQueueCap:   config.Global.OfflineQueueCap,
		HistoryCap:        config.Global.HistoryCap,
		ReapEvery:         config.Global.ReapEvery,
		IdleTimeout:       config.Global.IdleTimeout,
		MetricsRetention:  config.Global.MetricsRetention,
	})
	defer mgr.Close()

	// 审计流水可选：没配 broker 就纯内存跑
	if len(config.Global.KafkaBrokers) > 0 {
		if err := kafka.InitKafkaClient(config.Global.KafkaBrokers); err != nil {
			logger.Errorf("kafka init failed, audit disabled: %v", err)
		} else if err := kafka.InitSyncProducerFromClient(); err != nil {
			logger.Errorf("kafka producer init failed, audit disabled: %v", err)
		} else {
			mgr.SetAuditSink(kafka.NewAuditSink(config.Global.AuditTopic))
			defer kafka.CloseKafka()
		}
	}

	srv := collab.NewServer(config.Global.NodeId, mgr)
	handlers.RegisterAll(srv.Disp())

	r := gin.Default()
	r.GET("/ws", srv.HandleWS)

	// 管理面只读 + 定向下发，都要鉴权
	mid.GET(r, "/admin/users", srv.HandleListUsers, mid.RouteOpt{IsAuth: true})
	mid.GET(r, "/admin/users/:user_id", srv.HandleUserDetail, mid.RouteOpt{IsAuth: true})
	mid.GET(r, "/admin/rooms/:kind/:room_id", srv.HandleRoomDetail, mid.RouteOpt{IsAuth: true})
	mid.GET(r, "/admin/stats", srv.HandleStats, mid.RouteOpt{IsAuth: true})
	mid.POST(r, "/admin/message", srv.HandleAdminMessage, mid.RouteOpt{IsAuth: true})

	addr := fmt.Sprintf(":%d", config.Global.Port)
	logger.Infof("collab gateway node=%s listening on %s", config.Global.NodeId, addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("server exited: %v", err)
	}
}
