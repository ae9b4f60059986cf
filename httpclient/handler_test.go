package httpclient

import (
	"errors"
	"testing"
)

func TestJSONResponseHandler_Order(t *testing.T) {
	h := NewResponseHandler(nil)

	tests := []struct {
		name     string
		body     []byte
		resp     *WireResponse
		wantCode ErrorCode
		wantMsg  string
	}{
		{name: "no response", body: []byte(`{}`), resp: nil, wantCode: ErrCodeUnknown},
		{name: "zero status", body: []byte(`{}`), resp: &WireResponse{}, wantCode: ErrCodeUnknown},
		{name: "client error wins over body", body: []byte(`{"message":"not found"}`), resp: &WireResponse{StatusCode: 404}, wantCode: ErrCodeClient, wantMsg: "not found"},
		{name: "client error without body", body: nil, resp: &WireResponse{StatusCode: 403}, wantCode: ErrCodeClient, wantMsg: "Forbidden"},
		{name: "server error", body: []byte(`{"id":1}`), resp: &WireResponse{StatusCode: 502}, wantCode: ErrCodeServer, wantMsg: "Bad Gateway"},
		{name: "missing body", body: nil, resp: &WireResponse{StatusCode: 200}, wantCode: ErrCodeDecoding, wantMsg: "response body missing"},
		{name: "bad body", body: []byte(`{not json`), resp: &WireResponse{StatusCode: 200}, wantCode: ErrCodeDecoding},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var w widget
			err := h.HandleResponse(tc.body, tc.resp, &w)
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if e.Code != tc.wantCode {
				t.Errorf("code = %s, want %s", e.Code, tc.wantCode)
			}
			if tc.wantMsg != "" && e.Message != tc.wantMsg {
				t.Errorf("message = %q, want %q", e.Message, tc.wantMsg)
			}
		})
	}
}

func TestHandle_Decodes(t *testing.T) {
	h := NewResponseHandler(NewJSONCodec())
	got, err := Handle[widget](h, []byte(`{"id":3,"name":"gear"}`), &WireResponse{StatusCode: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (widget{ID: 3, Name: "gear"}) {
		t.Errorf("got %+v", got)
	}

	// Redirect statuses are not classified and fall through to decoding.
	got, err = Handle[widget](h, []byte(`{"id":4}`), &WireResponse{StatusCode: 304})
	if err != nil || got.ID != 4 {
		t.Errorf("got %+v, %v", got, err)
	}
}

type recordingCodec struct {
	calls int
}

func (c *recordingCodec) Encode(any) ([]byte, error) { return nil, nil }

func (c *recordingCodec) Decode([]byte, any) error {
	c.calls++
	return errors.New("refused")
}

func TestJSONResponseHandler_CodecNotCalledOnError(t *testing.T) {
	codec := &recordingCodec{}
	h := NewResponseHandler(codec)

	_ = h.HandleResponse([]byte(`{}`), &WireResponse{StatusCode: 500}, &widget{})
	if codec.calls != 0 {
		t.Errorf("codec called %d times for a server error", codec.calls)
	}

	err := h.HandleResponse([]byte(`{}`), &WireResponse{StatusCode: 200}, &widget{})
	if !IsDecoding(err) || codec.calls != 1 {
		t.Errorf("expected one decoding failure, got %v after %d calls", err, codec.calls)
	}
}
