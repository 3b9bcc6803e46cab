package handlers

import (
	"DProject/service/collab"
)

// RegisterAll 把全部入站消息处理器挂到分发器上
func RegisterAll(d *collab.Dispatcher) {
	d.Register(NewPingHandler())
	d.Register(NewJoinDocumentHandler())
	d.Register(NewLeaveDocumentHandler())
	d.Register(NewJoinModelHandler())
	d.Register(NewLeaveModelHandler())
	d.Register(NewCommentHandler())
	d.Register(NewAnnotationHandler())
	d.Register(NewFeedbackHandler())
	d.Register(NewTypingHandler())
	d.Register(NewCursorHandler())
	d.Register(NewModelUpdateHandler())
	d.Register(NewScenarioUpdateHandler())
	d.Register(NewPresenceHandler())
}
