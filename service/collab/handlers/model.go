package handlers

import (
	"DProject/service/collab"
	decode "DProject/tools/decode"
	errs "DProject/tools/errs"
)

// ===== 财务模型协作消息（走 deal 房间）=====

type modelUpdatePayload struct {
	ModelID    string `json:"model_id"`
	UpdateData any    `json:"update_data"`
	Version    int64  `json:"version"`
}

type ModelUpdateHandler struct{}

func NewModelUpdateHandler() collab.Handler { return &ModelUpdateHandler{} }

func (h *ModelUpdateHandler) Type() string { return collab.TypeModelUpdate }

func (h *ModelUpdateHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[modelUpdatePayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.ModelID == "" || p.UpdateData == nil {
		return errs.ErrProtocol.WithDetail("model_id and update_data required")
	}

	out := ctx.M.NewEnvelope(collab.TypeModelUpdated, map[string]any{
		"model_id":     p.ModelID,
		"update_data":  p.UpdateData,
		"version":      p.Version,
		"user_id":      conn.UserID,
		"display_name": conn.DisplayName,
	})
	ctx.M.BroadcastToRoom(collab.RoomDeal, modelRoomID(p.ModelID), out, conn.UserID, false)
	return nil
}

type scenarioUpdatePayload struct {
	ModelID      string `json:"model_id"`
	ScenarioData any    `json:"scenario_data"`
}

type ScenarioUpdateHandler struct{}

func NewScenarioUpdateHandler() collab.Handler { return &ScenarioUpdateHandler{} }

func (h *ScenarioUpdateHandler) Type() string { return collab.TypeScenarioUpdate }

func (h *ScenarioUpdateHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[scenarioUpdatePayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.ModelID == "" || p.ScenarioData == nil {
		return errs.ErrProtocol.WithDetail("model_id and scenario_data required")
	}

	out := ctx.M.NewEnvelope(collab.TypeScenarioUpdated, map[string]any{
		"model_id":      p.ModelID,
		"scenario_data": p.ScenarioData,
		"user_id":       conn.UserID,
		"display_name":  conn.DisplayName,
	})
	ctx.M.BroadcastToRoom(collab.RoomDeal, modelRoomID(p.ModelID), out, conn.UserID, false)
	return nil
}
