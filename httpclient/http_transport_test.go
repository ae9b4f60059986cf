package httpclient

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/futurenet/httpclient/apitest"
)

func newLiveClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	log, _ := testLogger()
	c, err := New(cfg, WithLogger(log))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestHTTPTransport_GetUser(t *testing.T) {
	srv := apitest.New(t)
	c := newLiveClient(t, Config{})

	user, err := Request(context.Background(), c, NewEndpoint[apitest.User](srv.URL, "/users/7"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 7 || user.Name != "Alice" || user.CreatedAt != "2024-01-05" {
		t.Errorf("got %+v", user)
	}
}

func TestHTTPTransport_SnakeCaseDecoding(t *testing.T) {
	type user struct {
		ID        int
		Name      string
		CreatedAt time.Time
	}
	srv := apitest.New(t)
	c := newLiveClient(t, Config{Decoding: DecodingConfig{
		KeyStrategy:  KeysSnakeCase,
		DateStrategy: DatesByLength,
	}})

	got, err := Request(context.Background(), c, NewEndpoint[user](srv.URL, "/users/3"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 3 || !got.CreatedAt.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("got %+v", got)
	}
}

func TestHTTPTransport_EchoQueryAndAuth(t *testing.T) {
	srv := apitest.New(t)
	c := newLiveClient(t, Config{Headers: map[string]string{"X-Client": "futurenet"}})

	ep := NewEndpoint[apitest.Echo](srv.URL, "/echo",
		WithPlacement(Query{
			"page": Int(2),
			"tags": Array{String("a"), String("b")},
			"day":  Date(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)),
		}),
		WithAuthentication(BasicAuth("alice", "secret")),
	)
	echo, err := Request(context.Background(), c, ep, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if echo.Method != "GET" {
		t.Errorf("method = %q", echo.Method)
	}
	want := map[string]string{"page": "2", "tags": "a,b", "day": "2024-01-05"}
	for k, v := range want {
		if echo.Query[k] != v {
			t.Errorf("query %s = %q, want %q", k, echo.Query[k], v)
		}
	}
	if echo.Authorization != "Basic YWxpY2U6c2VjcmV0" {
		t.Errorf("authorization = %q", echo.Authorization)
	}
	if echo.Accept != "application/json" {
		t.Errorf("accept = %q", echo.Accept)
	}
	if echo.Headers["X-Client"] != "futurenet" {
		t.Errorf("default header missing: %v", echo.Headers)
	}
}

func TestHTTPTransport_EchoBody(t *testing.T) {
	srv := apitest.New(t)
	c := newLiveClient(t, Config{})

	ep := NewEndpoint[apitest.Echo](srv.URL, "/echo",
		WithMethod(MethodPost),
		WithPlacement(Body{"name": String("gear"), "count": Int(2), "skip": nil}),
		WithAuthentication(BearerAuth("tok-123")),
	)
	echo, err := Request(context.Background(), c, ep, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if echo.Method != "POST" || echo.ContentType != "application/json" {
		t.Errorf("got %+v", echo)
	}
	if echo.Body != `{"count":2,"name":"gear"}` {
		t.Errorf("body = %s", echo.Body)
	}
	if echo.Authorization != "Bearer tok-123" {
		t.Errorf("authorization = %q", echo.Authorization)
	}
}

func TestHTTPTransport_UploadProgress(t *testing.T) {
	srv := apitest.New(t)
	c := newLiveClient(t, Config{})

	payload := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x42}, 256<<10)...)
	var mu sync.Mutex
	var last Progress
	var sum int64

	ep := NewEndpoint[apitest.UploadReceipt](srv.URL, "/upload", WithMethod(MethodPost), WithPlacement(Upload(payload)))
	receipt, err := Request(context.Background(), c, ep, func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		sum += p.BytesSent
		last = p
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Size != len(payload) {
		t.Errorf("server received %d bytes, want %d", receipt.Size, len(payload))
	}
	if receipt.ContentType != "image/png" {
		t.Errorf("content type = %q", receipt.ContentType)
	}

	mu.Lock()
	defer mu.Unlock()
	total := int64(len(payload))
	if sum != total || last.TotalBytesSent != total || last.TotalExpected != total {
		t.Errorf("progress sum %d, last %+v, want %d", sum, last, total)
	}
	if uploads := srv.Uploads(); len(uploads) != 1 || !bytes.Equal(uploads[0], payload) {
		t.Error("server did not store the payload")
	}
}

func TestHTTPTransport_UploadKeepsContentType(t *testing.T) {
	srv := apitest.New(t)
	c := newLiveClient(t, Config{})

	ep := NewEndpoint[apitest.UploadReceipt](srv.URL, "/upload",
		WithMethod(MethodPut),
		WithPlacement(Upload("id,name\n1,gear\n")),
		WithHeader("Content-Type", "text/csv"),
	)
	receipt, err := Request(context.Background(), c, ep, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.ContentType != "text/csv" {
		t.Errorf("content type = %q", receipt.ContentType)
	}
}

func TestHTTPTransport_ErrorStatuses(t *testing.T) {
	srv := apitest.New(t)
	c := newLiveClient(t, Config{})

	tests := []struct {
		path     string
		wantCode ErrorCode
		wantMsg  string
	}{
		{"/users/0", ErrCodeClient, "not found"},
		{"/status/503?error=down", ErrCodeServer, "down"},
		{"/status/418", ErrCodeClient, "I'm a teapot"},
		{"/garbage", ErrCodeDecoding, ""},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			_, err := Request(context.Background(), c, NewEndpoint[apitest.User](srv.URL, tc.path), nil)
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

func TestHTTPTransport_EmptyBody(t *testing.T) {
	srv := apitest.New(t)
	c := newLiveClient(t, Config{})

	resp, err := c.Do(context.Background(), NewEndpoint[struct{}](srv.URL, "/empty"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 || len(resp.Body) != 0 {
		t.Errorf("got %d with %d bytes", resp.StatusCode, len(resp.Body))
	}
}

func TestHTTPTransport_ContextCancel(t *testing.T) {
	srv := apitest.New(t)
	c := newLiveClient(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := Request(ctx, c, NewEndpoint[struct{}](srv.URL, "/slow"), nil)
	if !IsCanceled(err) {
		t.Fatalf("expected canceled error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline cause, got %v", err)
	}
}

func TestHTTPTransport_RequestTimeout(t *testing.T) {
	srv := apitest.New(t)
	c := newLiveClient(t, Config{Timeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := Request(context.Background(), c, NewEndpoint[struct{}](srv.URL, "/slow"), nil)
	if !IsUnknown(err) {
		t.Fatalf("expected unknown error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout not applied, took %v", elapsed)
	}
}

func TestHTTPTransport_ConnectionRefused(t *testing.T) {
	srv := apitest.New(t)
	url := srv.URL
	srv.Close()

	c := newLiveClient(t, Config{})
	_, err := Request(context.Background(), c, NewEndpoint[struct{}](url, "/users/1"), nil)
	if !IsUnknown(err) {
		t.Fatalf("expected unknown error, got %v", err)
	}
}

func TestHTTPTask_CancelBeforeResume(t *testing.T) {
	srv := apitest.New(t)
	tr := NewHTTPTransport(Config{}, nil)

	req, err := NewEndpoint[struct{}](srv.URL, "/users/1").Build()
	if err != nil {
		t.Fatal(err)
	}
	errs := make(chan error, 2)
	task := tr.DataTask(req, func(_ []byte, _ *WireResponse, err error) { errs <- err })
	if task.ID() == "" {
		t.Error("task has no identifier")
	}
	task.Cancel()
	task.Resume()
	task.Resume()

	select {
	case err := <-errs:
		if !IsCanceled(err) {
			t.Errorf("expected canceled error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("task did not complete")
	}
	select {
	case err := <-errs:
		t.Errorf("task completed twice: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHTTPTask_SnapshotsRequest(t *testing.T) {
	srv := apitest.New(t)
	tr := NewHTTPTransport(Config{}, nil)

	req, err := NewEndpoint[struct{}](srv.URL, "/echo",
		WithMethod(MethodPost),
		WithPlacement(RawData([]byte("original"))),
	).Build()
	if err != nil {
		t.Fatal(err)
	}

	type result struct {
		body []byte
		err  error
	}
	done := make(chan result, 1)
	task := tr.DataTask(req, func(body []byte, _ *WireResponse, err error) { done <- result{body, err} })

	copy(req.Body, "mutated!")
	req.Header.Set("X-Late", "1")
	req.URL.Path = "/users/1"
	task.Resume()

	var r result
	select {
	case r = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not complete")
	}
	if r.err != nil {
		t.Fatalf("unexpected error: %v", r.err)
	}
	var echo apitest.Echo
	if err := NewJSONCodec().Decode(r.body, &echo); err != nil {
		t.Fatalf("decode echo: %v", err)
	}
	if echo.Body != "original" {
		t.Errorf("body = %q, want the body at task creation", echo.Body)
	}
	if _, ok := echo.Headers["X-Late"]; ok {
		t.Error("header added after task creation was sent")
	}
}

type closeCountingTransport struct {
	*HTTPTransport
	closed int
}

func (c *closeCountingTransport) CloseIdleConnections() {
	c.closed++
	c.HTTPTransport.CloseIdleConnections()
}

func TestClient_Close(t *testing.T) {
	srv := apitest.New(t)
	tr := &closeCountingTransport{HTTPTransport: NewHTTPTransport(Config{}, nil)}
	log, _ := testLogger()
	c, err := New(Config{}, WithTransport(tr), WithLogger(log))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Request(context.Background(), c, NewEndpoint[apitest.User](srv.URL, "/users/1"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Close()
	if tr.closed != 1 {
		t.Errorf("expected idle connections closed once, got %d", tr.closed)
	}

	if _, err := Request(context.Background(), c, NewEndpoint[apitest.User](srv.URL, "/users/2"), nil); err != nil {
		t.Errorf("client unusable after Close: %v", err)
	}
}
