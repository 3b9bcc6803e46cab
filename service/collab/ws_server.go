package collab

import (
	"net"
	"net/http"

	config "DProject/global/config"
	"DProject/logger"
	errs "DProject/tools/errs"
	security "DProject/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Server WebSocket 接入层：握手、读循环、分发
type Server struct {
	nodeID string
	mgr    *Manager
	disp   *Dispatcher
}

func NewServer(nodeID string, mgr *Manager) *Server {
	return &Server{
		nodeID: nodeID,
		mgr:    mgr,
		disp:   NewDispatcher(),
	}
}

func (s *Server) NodeID() string    { return s.nodeID }
func (s *Server) Mgr() *Manager     { return s.mgr }
func (s *Server) Disp() *Dispatcher { return s.disp }

var upgrader = websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(r *http.Request) bool { return true }}

// HandleWS ===== WebSocket 处理 =====
// 握手身份由上游签发（token 或已认证的 query 参数），这里只消费。
// 成功后：connection_established → 离线补投 → 组织房间 user_connected。
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	id, err := s.handshakeIdentity(c)
	if err != nil {
		logger.Infof("[HandleWS] handshake rejected: %v", err)
		if data, merr := BuildError("handshake: " + err.Error()).Encode(); merr == nil {
			_ = ws.WriteMessage(websocket.TextMessage, data)
		}
		_ = ws.Close()
		return
	}

	w, epoch, err := s.mgr.Register(id.UserID, ws, id.OrgID, id.DisplayName)
	if err != nil {
		logger.Errorf("[HandleWS] register failed user=%s err=%v", id.UserID, err)
		_ = ws.Close()
		return
	}

	if err := s.mgr.WriteEnvelope(w, BuildConnectionEstablished(epoch, s.mgr.Conf())); err != nil {
		logger.Infof("[HandleWS] handshake write failed user=%s err=%v", id.UserID, err)
		s.mgr.unregisterIfCurrent(w, "handshake write failed")
		return
	}

	s.mgr.DeliverQueued(w)

	s.mgr.BroadcastToRoom(RoomOrganization, id.OrgID, s.mgr.NewEnvelope(TypeUserConnected, map[string]any{
		"user_id":      w.UserID,
		"display_name": w.DisplayName,
		"epoch":        epoch,
	}), id.UserID, true)

	// ---- 读循环：只读，不写；出错即退出 ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed user=%s conn=%s err=%v", w.UserID, w.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout user=%s conn=%s err=%v", w.UserID, w.ConnID, rerr)
			} else {
				logger.Infof("[WS] read err user=%s conn=%s err=%v", w.UserID, w.ConnID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		s.mgr.noteInbound(w, len(data))

		env, perr := ParseEnvelope(data)
		if perr != nil {
			// ProtocolError：回 error envelope，连接保持
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] parse err user=%s err=%v sample=%q len=%d", w.UserID, perr, sample, len(data))
			_ = s.mgr.WriteEnvelope(w, BuildError("malformed message"))
			continue
		}

		h := s.disp.GetHandler(env.Type)
		if h == nil {
			_ = s.mgr.WriteEnvelope(w, BuildError("unknown message type: "+env.Type))
			continue
		}
		if herr := h.Handle(&Context{M: s.mgr}, env, w); herr != nil {
			logger.Infof("[WS] handler err user=%s type=%s err=%v", w.UserID, env.Type, herr)
			_ = s.mgr.WriteEnvelope(w, BuildError(herr.Error()))
		}
	}

	// ---- 退出阶段：只在自己仍是当前连接时注销（重连顶替不误杀新连接）----
	s.mgr.unregisterIfCurrent(w, "connection closed")
}

// handshakeIdentity 优先 token；没有就接受上游已认证的 query 参数
func (s *Server) handshakeIdentity(c *gin.Context) (*security.Identity, error) {
	if token := c.Query("token"); token != "" {
		return security.Parse(security.DefaultOptions(config.GetJwtSecret()), token)
	}
	userID := c.Query("user_id")
	orgID := c.Query("organization_id")
	if orgID == "" {
		orgID = c.Query("org_id")
	}
	if userID == "" || orgID == "" {
		return nil, errs.New("user_id/organization_id required")
	}
	return &security.Identity{
		UserID:      userID,
		OrgID:       orgID,
		DisplayName: c.Query("display_name"),
	}, nil
}
