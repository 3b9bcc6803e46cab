package collab

import (
	"net/http"

	decode "DProject/tools/decode"
	errs "DProject/tools/errs"

	"github.com/gin-gonic/gin"
)

// ===== 管理面 HTTP handler（gin）=====

// HandleListUsers GET /admin/users?organization_id=xx
func (s *Server) HandleListUsers(c *gin.Context) {
	users := s.mgr.ListActiveUsers(c.Query("organization_id"))
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": users})
}

// HandleRoomDetail GET /admin/rooms/:kind/:room_id
func (s *Server) HandleRoomDetail(c *gin.Context) {
	kind, ok := parseRoomKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"code": errs.ProtocolErrorCode, "msg": "unknown room kind: " + c.Param("kind")})
		return
	}
	detail, err := s.mgr.RoomDetailOf(kind, c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": errs.RecordNotFoundCode, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": detail})
}

// HandleStats GET /admin/stats
func (s *Server) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": s.mgr.Stats()})
}

// HandleUserDetail GET /admin/users/:user_id
func (s *Server) HandleUserDetail(c *gin.Context) {
	detail, err := s.mgr.UserSnapshot(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": errs.RecordNotFoundCode, "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": detail})
}

// HandleAdminMessage POST /admin/message
// body: {"user_id":"u1","message":{"type":"admin_notice", ...},"queue_if_offline":true}
func (s *Server) HandleAdminMessage(c *gin.Context) {
	var req struct {
		UserID         string         `json:"user_id"`
		Message        map[string]any `json:"message"`
		QueueIfOffline *bool          `json:"queue_if_offline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || len(req.Message) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": errs.ProtocolErrorCode, "msg": "user_id and message required"})
		return
	}
	typ, err := decode.ReadString(req.Message, "type")
	if err != nil {
		typ = "admin_message"
	}
	queue := true
	if req.QueueIfOffline != nil {
		queue = *req.QueueIfOffline
	}

	env := s.mgr.NewEnvelope(typ, req.Message)
	accepted := s.mgr.SendToUser(req.UserID, env, queue)
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"accepted": accepted}})
}

func parseRoomKind(v string) (RoomKind, bool) {
	switch v {
	case string(RoomDocument):
		return RoomDocument, true
	case string(RoomDeal):
		return RoomDeal, true
	case string(RoomOrganization):
		return RoomOrganization, true
	}
	return "", false
}
