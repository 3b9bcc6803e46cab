package collab

import (
	"encoding/json"
	"fmt"
	"time"
)

// ===== 入站消息类型（wire contract）=====
const (
	TypeJoinDocument    = "join_document"
	TypeLeaveDocument   = "leave_document"
	TypeDocumentComment = "document_comment"
	TypeDocumentAnnot   = "document_annotation"
	TypeAnalysisFeedbck = "analysis_feedback"
	TypeTypingIndicator = "typing_indicator"
	TypeCursorPosition  = "cursor_position"
	TypeJoinModel       = "join_financial_model"
	TypeLeaveModel      = "leave_financial_model"
	TypeModelUpdate     = "financial_model_update"
	TypeScenarioUpdate  = "scenario_update"
	TypePresenceUpdate  = "user_presence_update"
	TypePing            = "ping"
)

// ===== 出站消息类型 =====
const (
	TypeConnectionEstablished = "connection_established"
	TypeError                 = "error"
	TypePong                  = "pong"
	TypeQueuedMessage         = "queued_message"
	TypeUserConnected         = "user_connected"
	TypeUserDisconnected      = "user_disconnected"
	TypeUserJoinedDocument    = "user_joined_document"
	TypeUserLeftDocument      = "user_left_document"
	TypeUserJoinedModel       = "user_joined_financial_model"
	TypeUserLeftModel         = "user_left_financial_model"
	TypeCommentAdded          = "document_comment_added"
	TypeAnnotationAdded       = "document_annotation_added"
	TypeFeedbackReceived      = "analysis_feedback_received"
	TypeModelUpdated          = "financial_model_updated"
	TypeScenarioUpdated       = "scenario_updated"
)

// Envelope 一条 JSON 消息：type 判别字段 + 任意业务字段。
// 入站保留原始字节，未识别类型原样走 ProtocolError 路径。
type Envelope struct {
	Type   string
	Fields map[string]any
	Raw    []byte
}

func ParseEnvelope(raw []byte) (*Envelope, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal envelope failed: %w", err)
	}
	typ, _ := fields["type"].(string)
	if typ == "" {
		return nil, fmt.Errorf("envelope missing type field")
	}
	return &Envelope{Type: typ, Fields: fields, Raw: raw}, nil
}

func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e.Fields)
}

// Get 读取任意字段（动态场景用）
func (e *Envelope) Get(key string) (any, bool) {
	v, ok := e.Fields[key]
	return v, ok
}

// NewEnvelopeAt 构造出站消息；自动带上 type 与服务端时间戳。
// 时间由调用方给（Manager 路径统一走注入时钟）。
func NewEnvelopeAt(typ string, fields map[string]any, now time.Time) *Envelope {
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["type"] = typ
	m["timestamp"] = now.UTC().Format(time.RFC3339)
	return &Envelope{Type: typ, Fields: m}
}

// NewEnvelope 无 Manager 上下文时的便捷构造（真实时钟）。
func NewEnvelope(typ string, fields map[string]any) *Envelope {
	return NewEnvelopeAt(typ, fields, time.Now())
}

// NewEnvelope Manager 出站消息统一入口：时间戳走注入时钟
func (m *Manager) NewEnvelope(typ string, fields map[string]any) *Envelope {
	return NewEnvelopeAt(typ, fields, m.conf.Clock())
}

// ---- 构造若干服务端回执 ----

func BuildError(message string) *Envelope {
	return NewEnvelope(TypeError, map[string]any{"message": message})
}

func BuildPong() *Envelope {
	return NewEnvelope(TypePong, nil)
}

func BuildPing() *Envelope {
	return NewEnvelope(TypePing, nil)
}

// BuildConnectionEstablished 握手回执：epoch、服务端时间与功能开关。
func BuildConnectionEstablished(epoch int64, conf *ManagerConf) *Envelope {
	now := conf.Clock()
	return NewEnvelopeAt(TypeConnectionEstablished, map[string]any{
		"epoch":       epoch,
		"server_time": now.UTC().Format(time.RFC3339),
		"features": map[string]any{
			"heartbeat_enabled":     conf.HeartbeatInterval > 0,
			"queuing_enabled":       conf.OfflineQueueCap > 0,
			"rate_limiting_enabled": conf.RateLimitMax > 0,
		},
	}, now)
}

// BuildQueuedMessage 离线补投递包装：原始消息整体放在 message 字段里。
func BuildQueuedMessage(original *Envelope, queuedAt, now time.Time) *Envelope {
	return NewEnvelopeAt(TypeQueuedMessage, map[string]any{
		"message":   original.Fields,
		"queued_at": queuedAt.UTC().Format(time.RFC3339),
	}, now)
}
