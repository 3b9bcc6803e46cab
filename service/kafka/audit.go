package kafka

import (
	"encoding/json"
	"time"

	"DProject/logger"

	"github.com/Shopify/sarama"
)

// AuditSink 广播/连接事件的旁路审计。网关本体不依赖它：
// nil sink 全部为 no-op（跨进程扇出不在本服务职责内，这里只发事件流水）。
type AuditSink interface {
	BroadcastEvent(event string, key string, fields map[string]any)
}

type kafkaAuditSink struct {
	topic string
}

// NewAuditSink 需要先 InitKafkaClient + InitSyncProducerFromClient。
func NewAuditSink(topic string) AuditSink {
	return &kafkaAuditSink{topic: topic}
}

func (s *kafkaAuditSink) BroadcastEvent(event string, key string, fields map[string]any) {
	if Producer == nil {
		return
	}
	record := map[string]any{
		"event": event,
		"ts":    time.Now().UnixMilli(),
	}
	for k, v := range fields {
		record[k] = v
	}
	b, err := json.Marshal(record)
	if err != nil {
		logger.Errorf("[Kafka][audit] marshal failed: %v", err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(b),
	}
	if _, _, err := Producer.SendMessage(msg); err != nil {
		// 审计失败不影响投递链路
		logger.Warnf("[Kafka][audit] send failed topic=%s event=%s err=%v", s.topic, event, err)
	}
}
