package handlers

import (
	"DProject/service/collab"
	decode "DProject/tools/decode"
	errs "DProject/tools/errs"
)

// ===== 在线状态（组织房间）=====

type presencePayload struct {
	Status        string `json:"status"`
	CurrentModule string `json:"current_module"`
	Activity      string `json:"activity"`
}

type PresenceHandler struct{}

func NewPresenceHandler() collab.Handler { return &PresenceHandler{} }

func (h *PresenceHandler) Type() string { return collab.TypePresenceUpdate }

func (h *PresenceHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[presencePayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.Status == "" || p.CurrentModule == "" {
		return errs.ErrProtocol.WithDetail("status and current_module required")
	}

	out := ctx.M.NewEnvelope(collab.TypePresenceUpdate, map[string]any{
		"status":         p.Status,
		"current_module": p.CurrentModule,
		"activity":       p.Activity,
		"user_id":        conn.UserID,
		"display_name":   conn.DisplayName,
	})
	ctx.M.BroadcastToRoom(collab.RoomOrganization, conn.OrgID, out, conn.UserID, false)
	return nil
}
