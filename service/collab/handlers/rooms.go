package handlers

import (
	"DProject/service/collab"
	decode "DProject/tools/decode"
	errs "DProject/tools/errs"
)

// ===== 房间进出：文档 / 财务模型（deal 房间）=====

type docRoomPayload struct {
	DocumentID string `json:"document_id"`
}

type modelRoomPayload struct {
	ModelID string `json:"model_id"`
}

// deal 房间的 key 约定：model_<id>
func modelRoomID(modelID string) string { return "model_" + modelID }

type JoinDocumentHandler struct{}

func NewJoinDocumentHandler() collab.Handler { return &JoinDocumentHandler{} }

func (h *JoinDocumentHandler) Type() string { return collab.TypeJoinDocument }

func (h *JoinDocumentHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[docRoomPayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.DocumentID == "" {
		return errs.ErrProtocol.WithDetail("document_id required")
	}

	n := ctx.M.Rooms().Join(collab.RoomDocument, p.DocumentID, conn.UserID)
	ctx.M.Sessions().SetCurrentDoc(conn.UserID, p.DocumentID)

	ctx.M.BroadcastToRoom(collab.RoomDocument, p.DocumentID, ctx.M.NewEnvelope(collab.TypeUserJoinedDocument, map[string]any{
		"document_id":  p.DocumentID,
		"user_id":      conn.UserID,
		"display_name": conn.DisplayName,
		"member_count": n,
	}), conn.UserID, false)
	return nil
}

type LeaveDocumentHandler struct{}

func NewLeaveDocumentHandler() collab.Handler { return &LeaveDocumentHandler{} }

func (h *LeaveDocumentHandler) Type() string { return collab.TypeLeaveDocument }

func (h *LeaveDocumentHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[docRoomPayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.DocumentID == "" {
		return errs.ErrProtocol.WithDetail("document_id required")
	}

	ctx.M.Rooms().Leave(collab.RoomDocument, p.DocumentID, conn.UserID)
	if sess, ok := ctx.M.Sessions().Get(conn.UserID); ok && sess.CurrentDocID == p.DocumentID {
		ctx.M.Sessions().SetCurrentDoc(conn.UserID, "")
	}

	ctx.M.BroadcastToRoom(collab.RoomDocument, p.DocumentID, ctx.M.NewEnvelope(collab.TypeUserLeftDocument, map[string]any{
		"document_id":  p.DocumentID,
		"user_id":      conn.UserID,
		"display_name": conn.DisplayName,
	}), conn.UserID, false)
	return nil
}

type JoinModelHandler struct{}

func NewJoinModelHandler() collab.Handler { return &JoinModelHandler{} }

func (h *JoinModelHandler) Type() string { return collab.TypeJoinModel }

func (h *JoinModelHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[modelRoomPayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.ModelID == "" {
		return errs.ErrProtocol.WithDetail("model_id required")
	}
	roomID := modelRoomID(p.ModelID)

	n := ctx.M.Rooms().Join(collab.RoomDeal, roomID, conn.UserID)
	ctx.M.Sessions().SetCurrentDeal(conn.UserID, roomID)

	ctx.M.BroadcastToRoom(collab.RoomDeal, roomID, ctx.M.NewEnvelope(collab.TypeUserJoinedModel, map[string]any{
		"model_id":     p.ModelID,
		"user_id":      conn.UserID,
		"display_name": conn.DisplayName,
		"member_count": n,
	}), conn.UserID, false)
	return nil
}

type LeaveModelHandler struct{}

func NewLeaveModelHandler() collab.Handler { return &LeaveModelHandler{} }

func (h *LeaveModelHandler) Type() string { return collab.TypeLeaveModel }

func (h *LeaveModelHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[modelRoomPayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.ModelID == "" {
		return errs.ErrProtocol.WithDetail("model_id required")
	}
	roomID := modelRoomID(p.ModelID)

	ctx.M.Rooms().Leave(collab.RoomDeal, roomID, conn.UserID)
	if sess, ok := ctx.M.Sessions().Get(conn.UserID); ok && sess.CurrentDealID == roomID {
		ctx.M.Sessions().SetCurrentDeal(conn.UserID, "")
	}

	ctx.M.BroadcastToRoom(collab.RoomDeal, roomID, ctx.M.NewEnvelope(collab.TypeUserLeftModel, map[string]any{
		"model_id":     p.ModelID,
		"user_id":      conn.UserID,
		"display_name": conn.DisplayName,
	}), conn.UserID, false)
	return nil
}
