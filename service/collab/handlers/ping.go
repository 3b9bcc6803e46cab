package handlers

import (
	"DProject/service/collab"
)

// PingHandler 客户端心跳：直接回 pong，不进限流、不记业务活跃之外的任何状态
type PingHandler struct{}

func NewPingHandler() collab.Handler { return &PingHandler{} }

func (h *PingHandler) Type() string { return collab.TypePing }

func (h *PingHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	return ctx.M.WriteEnvelope(conn, collab.BuildPong())
}
