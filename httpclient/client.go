package httpclient

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/futurenet/logger"
	"github.com/kbukum/futurenet/observability"
	"github.com/kbukum/futurenet/version"
)

// Client executes endpoints over a Transport. It is safe for concurrent use
// and holds the progress handlers of its in-flight tasks.
type Client struct {
	config    Config
	transport Transport
	handler   ResponseHandler
	trust     *TrustEvaluator
	progress  *progressRegistry
	metrics   *observability.ClientMetrics
	log       *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the net/http transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithResponseHandler replaces the JSON response handler.
func WithResponseHandler(h ResponseHandler) Option {
	return func(c *Client) { c.handler = h }
}

// WithLogger sets the logger. Defaults to the registered "httpclient"
// logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records request metrics on m.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client and binds it as its transport's delegate.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:   cfg,
		progress: newProgressRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get(defaultName)
	}
	c.log = c.log.WithFields(logger.Fields("client", cfg.Name))
	if c.handler == nil {
		c.handler = NewResponseHandler(NewJSONCodec(cfg.Decoding.CodecOptions()...))
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(cfg, c.log)
	}
	c.trust = NewTrustEvaluator(cfg.MutualTLS, c.log)
	c.transport.Bind(c)
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// TrustEvaluator returns the evaluator answering connection challenges.
func (c *Client) TrustEvaluator() *TrustEvaluator {
	return c.trust
}

// Close releases idle connections held by the transport. In-flight
// requests are not affected.
func (c *Client) Close() {
	if t, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
}

// DidSendBodyData forwards an upload tick to the task's progress handler.
func (c *Client) DidSendBodyData(id TaskID, bytesSent, totalBytesSent, totalExpected int64) {
	c.progress.dispatch(id, Progress{
		BytesSent:      bytesSent,
		TotalBytesSent: totalBytesSent,
		TotalExpected:  totalExpected,
	})
	c.metrics.RecordUpload(context.Background(), bytesSent)
}

// HandleChallenge answers a connection challenge with the trust evaluator.
func (c *Client) HandleChallenge(ch Challenge) (Disposition, *Credential) {
	_, span := observability.StartSpan(context.Background(), observability.SpanTrustChallenge)
	defer span.End()

	disposition, cred := c.trust.HandleChallenge(ch)
	span.SetAttributes(
		attribute.String(observability.AttrChallenge, ch.Type.String()),
		attribute.String(observability.AttrDisposition, disposition.String()),
	)
	c.log.Debug("challenge answered", logger.Fields(
		logger.FieldChallenge, ch.Type.String(),
		logger.FieldHost, ch.Host,
		"disposition", disposition.String(),
	))
	return disposition, cred
}

// Do executes b and returns the raw response. 4xx and 5xx responses are
// returned together with their classified error.
func (c *Client) Do(ctx context.Context, b Builder) (*WireResponse, error) {
	return c.DoWithProgress(ctx, b, nil)
}

// DoWithProgress is Do with upload progress reported to progress.
func (c *Client) DoWithProgress(ctx context.Context, b Builder, progress ProgressFunc) (*WireResponse, error) {
	var out *WireResponse
	err := c.execute(ctx, b, progress, func(body []byte, resp *WireResponse) error {
		out = resp
		return classify(body, resp)
	})
	return out, err
}

// Request executes ep and decodes the response into T. progress, if
// non-nil, receives upload ticks for this request only.
func Request[T any](ctx context.Context, c *Client, ep *Endpoint[T], progress ProgressFunc) (T, error) {
	var out T
	err := c.execute(ctx, ep, progress, func(body []byte, resp *WireResponse) (err error) {
		out, err = Handle[T](c.handler, body, resp)
		return err
	})
	return out, err
}

// RequestAsync runs Request on its own goroutine and passes the result to
// callback.
func RequestAsync[T any](ctx context.Context, c *Client, ep *Endpoint[T], progress ProgressFunc, callback func(T, error)) {
	go func() {
		callback(Request(ctx, c, ep, progress))
	}()
}

// execute builds the request, runs one transport task and hands a
// successful completion to handle.
func (c *Client) execute(ctx context.Context, b Builder, progress ProgressFunc, handle func([]byte, *WireResponse) error) (err error) {
	req, err := b.Build()
	if err != nil {
		return err
	}
	req.Timeout = c.config.Timeout
	for k, v := range c.config.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	if req.Header.Get(headerUserAgent) == "" {
		req.Header.Set(headerUserAgent, version.UserAgent())
	}

	ctx, scope := observability.StartRequest(ctx, c.metrics, req.Method, req.URL.Host)
	log := c.log.WithContext(ctx)
	status := 0
	defer func() {
		code := ""
		if err != nil {
			code = CodeOf(err).String()
		}
		scope.End(ctx, status, code, err)
		fields := logger.DurationFields("request", scope.Duration())
		fields[logger.FieldMethod] = req.Method
		fields[logger.FieldURL] = req.URL.Redacted()
		fields[logger.FieldStatusCode] = status
		if err != nil {
			fields[logger.FieldErrorCode] = code
			fields[logger.FieldError] = err.Error()
		}
		log.Debug("request finished", fields)
	}()

	slot := newCompletionSlot()
	var id atomic.Value
	done := func(body []byte, resp *WireResponse, err error) {
		if !slot.resolve(outcome{body: body, resp: resp, err: err}) {
			c.log.Error("transport completed a task twice, ignoring", logger.Fields(logger.FieldTaskID, id.Load()))
		}
	}

	var task Task
	if payload, ok := b.UploadPayload(); ok {
		task = c.transport.UploadTask(req, payload, done)
	} else {
		task = c.transport.DataTask(req, done)
	}
	id.Store(task.ID())
	scope.SetTaskID(string(task.ID()))

	if progress != nil {
		c.progress.register(task.ID(), progress)
	}
	defer c.progress.remove(task.ID())

	log.Debug("request started", logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldURL, req.URL.Redacted(),
		logger.FieldTaskID, string(task.ID()),
	))
	task.Resume()

	select {
	case o := <-slot.ch:
		if o.resp != nil {
			status = o.resp.StatusCode
		}
		if o.err != nil {
			return transportError(o.err)
		}
		return handle(o.body, o.resp)
	case <-ctx.Done():
		task.Cancel()
		return NewCanceledError(ctx.Err())
	}
}

// transportError keeps a classification the transport already made and
// files everything else as unknown.
func transportError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewUnknownError(err)
}
