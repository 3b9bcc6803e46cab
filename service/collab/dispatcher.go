package collab

import (
	"fmt"

	"github.com/golang/glog"
)

// Context 传给 handler 的执行环境
type Context struct {
	M *Manager
}

// Handler 一类入站消息的处理器
type Handler interface {
	Handle(ctx *Context, env *Envelope, conn *WsConn) error
	Type() string
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Dispatch(ctx *Context, env *Envelope, conn *WsConn) error {
	h, ok := d.handlers[env.Type]
	if !ok {
		return fmt.Errorf("no handler for type=%s", env.Type)
	}
	return h.Handle(ctx, env, conn)
}

func (d *Dispatcher) GetHandler(typ string) Handler {
	h, ok := d.handlers[typ]
	if !ok {
		glog.Infof("no handler for type=%s", typ)
		return nil
	}
	return h
}
