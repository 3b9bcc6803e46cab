package handlers

import (
	"DProject/service/collab"
	decode "DProject/tools/decode"
	errs "DProject/tools/errs"
)

// ===== 文档协作消息 =====
//
// 回显规则（与前端契约一致，不要改）：
//   - document_comment / analysis_feedback 广播包含发送者本人
//     （发送者靠服务端回显确认落地）；
//   - annotation / typing / cursor 排除发送者（本地已即时渲染）。

type commentPayload struct {
	DocumentID string `json:"document_id"`
	Comment    string `json:"comment"`
	CommentID  string `json:"comment_id"`
	ParentID   string `json:"parent_id"`
	Selection  any    `json:"selection"`
}

type CommentHandler struct{}

func NewCommentHandler() collab.Handler { return &CommentHandler{} }

func (h *CommentHandler) Type() string { return collab.TypeDocumentComment }

func (h *CommentHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[commentPayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.DocumentID == "" || p.Comment == "" {
		return errs.ErrProtocol.WithDetail("document_id and comment required")
	}

	out := ctx.M.NewEnvelope(collab.TypeCommentAdded, map[string]any{
		"document_id":  p.DocumentID,
		"comment_id":   p.CommentID,
		"parent_id":    p.ParentID,
		"comment":      p.Comment,
		"selection":    p.Selection,
		"user_id":      conn.UserID,
		"display_name": conn.DisplayName,
	})
	// 包含发送者：excludeUserID 留空
	ctx.M.BroadcastToRoom(collab.RoomDocument, p.DocumentID, out, "", false)
	return nil
}

type annotationPayload struct {
	DocumentID     string `json:"document_id"`
	AnnotationType string `json:"annotation_type"`
	Annotation     any    `json:"annotation"`
}

type AnnotationHandler struct{}

func NewAnnotationHandler() collab.Handler { return &AnnotationHandler{} }

func (h *AnnotationHandler) Type() string { return collab.TypeDocumentAnnot }

func (h *AnnotationHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[annotationPayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.DocumentID == "" || p.AnnotationType == "" {
		return errs.ErrProtocol.WithDetail("document_id and annotation_type required")
	}

	out := ctx.M.NewEnvelope(collab.TypeAnnotationAdded, map[string]any{
		"document_id":     p.DocumentID,
		"annotation_type": p.AnnotationType,
		"annotation":      p.Annotation,
		"user_id":         conn.UserID,
		"display_name":    conn.DisplayName,
	})
	ctx.M.BroadcastToRoom(collab.RoomDocument, p.DocumentID, out, conn.UserID, false)
	return nil
}

type feedbackPayload struct {
	DocumentID   string `json:"document_id"`
	FeedbackType string `json:"feedback_type"`
	AnalysisID   string `json:"analysis_id"`
	Feedback     any    `json:"feedback"`
}

type FeedbackHandler struct{}

func NewFeedbackHandler() collab.Handler { return &FeedbackHandler{} }

func (h *FeedbackHandler) Type() string { return collab.TypeAnalysisFeedbck }

func (h *FeedbackHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[feedbackPayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.DocumentID == "" || p.FeedbackType == "" {
		return errs.ErrProtocol.WithDetail("document_id and feedback_type required")
	}

	out := ctx.M.NewEnvelope(collab.TypeFeedbackReceived, map[string]any{
		"document_id":   p.DocumentID,
		"feedback_type": p.FeedbackType,
		"analysis_id":   p.AnalysisID,
		"feedback":      p.Feedback,
		"user_id":       conn.UserID,
		"display_name":  conn.DisplayName,
	})
	// 同 comment：包含发送者
	ctx.M.BroadcastToRoom(collab.RoomDocument, p.DocumentID, out, "", false)
	return nil
}

type typingPayload struct {
	DocumentID string `json:"document_id"`
	IsTyping   *bool  `json:"is_typing"`
}

type TypingHandler struct{}

func NewTypingHandler() collab.Handler { return &TypingHandler{} }

func (h *TypingHandler) Type() string { return collab.TypeTypingIndicator }

func (h *TypingHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[typingPayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.DocumentID == "" || p.IsTyping == nil {
		return errs.ErrProtocol.WithDetail("document_id and is_typing required")
	}

	out := ctx.M.NewEnvelope(collab.TypeTypingIndicator, map[string]any{
		"document_id":  p.DocumentID,
		"is_typing":    *p.IsTyping,
		"user_id":      conn.UserID,
		"display_name": conn.DisplayName,
	})
	ctx.M.BroadcastToRoom(collab.RoomDocument, p.DocumentID, out, conn.UserID, false)
	return nil
}

type cursorPayload struct {
	DocumentID string `json:"document_id"`
	Position   any    `json:"position"`
}

type CursorHandler struct{}

func NewCursorHandler() collab.Handler { return &CursorHandler{} }

func (h *CursorHandler) Type() string { return collab.TypeCursorPosition }

func (h *CursorHandler) Handle(ctx *collab.Context, env *collab.Envelope, conn *collab.WsConn) error {
	p, err := decode.DecodeMap[cursorPayload](env.Fields)
	if err != nil {
		return errs.ErrProtocol.WithDetail(err.Error())
	}
	if p.DocumentID == "" || p.Position == nil {
		return errs.ErrProtocol.WithDetail("document_id and position required")
	}

	out := ctx.M.NewEnvelope(collab.TypeCursorPosition, map[string]any{
		"document_id":  p.DocumentID,
		"position":     p.Position,
		"user_id":      conn.UserID,
		"display_name": conn.DisplayName,
	})
	ctx.M.BroadcastToRoom(collab.RoomDocument, p.DocumentID, out, conn.UserID, false)
	return nil
}
