package errs

import (
	"errors"
	"strconv"
	"strings"
)

// 错误码：协作网关内部统一使用
const (
	ServerInternalError = 500

	ProtocolErrorCode    = 40001 // 入站消息不可解析 / 未知类型
	TransportErrorCode   = 40002 // 连接写失败
	AdmissionDeniedCode  = 40003 // 限流拒绝
	CapacityExceededCode = 40004 // 离线队列淘汰
	RecordNotFoundCode   = 40401 // 管理面查询目标不存在
)

var (
	ErrProtocol         = NewCodeError(ProtocolErrorCode, "protocol error")
	ErrTransport        = NewCodeError(TransportErrorCode, "transport error")
	ErrAdmissionDenied  = NewCodeError(AdmissionDeniedCode, "admission denied")
	ErrCapacityExceeded = NewCodeError(CapacityExceededCode, "capacity exceeded")
	ErrRecordNotFound   = NewCodeError(RecordNotFoundCode, "record not found")
)

func New(msg string) error { return errors.New(msg) }

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: d,
	}
}

func (e *CodeError) Is(err error) bool {
	var codeErr *CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	return e.Code == codeErr.Code
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}
