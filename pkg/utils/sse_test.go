package utils

import (
	"net/http/httptest"
	"testing"
)

func TestSendSSEChunk(t *testing.T) {
	rr := httptest.NewRecorder()
	SetupSSEHeaders(rr)

	if err := SendSSEChunk(rr, rr, map[string]string{"event": "delta", "content": "hi"}); err != nil {
		t.Fatalf("SendSSEChunk err: %v", err)
	}

	if got := rr.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	want := "data: {\"content\":\"hi\",\"event\":\"delta\"}\n\n"
	if rr.Body.String() != want {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
	if !rr.Flushed {
		t.Fatal("expected flush")
	}
}
