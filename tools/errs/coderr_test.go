package errs

import (
	"testing"
)

func TestWithDetailKeepsCodeAndChains(t *testing.T) {
	e := ErrTransport.WithDetail("write tcp: broken pipe")
	if e.Code != TransportErrorCode {
		t.Fatalf("Code = %d, want %d", e.Code, TransportErrorCode)
	}
	if !ErrTransport.Is(e) {
		t.Fatal("detail copy no longer matches its sentinel")
	}
	// 原 sentinel 不被污染
	if ErrTransport.Detail != "" {
		t.Fatalf("sentinel mutated: %q", ErrTransport.Detail)
	}

	e2 := e.WithDetail("conn=c1")
	if e2.Detail != "write tcp: broken pipe, conn=c1" {
		t.Fatalf("Detail = %q", e2.Detail)
	}
}

func TestErrorStringIncludesCodeMsgDetail(t *testing.T) {
	e := ErrAdmissionDenied.WithDetail("user=u1")
	want := "40003 admission denied user=u1"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
	if ErrCapacityExceeded.Error() != "40004 capacity exceeded" {
		t.Fatalf("Error() = %q", ErrCapacityExceeded.Error())
	}
}

func TestIsDistinguishesCodes(t *testing.T) {
	if ErrProtocol.Is(ErrRecordNotFound) {
		t.Fatal("distinct codes reported equal")
	}
	if ErrProtocol.Is(New("plain")) {
		t.Fatal("plain error matched a code sentinel")
	}
}
