package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/kbukum/futurenet/logger"
)

// HTTPTransport runs tasks on net/http. When mutual TLS is configured the
// TLS handshake is driven through the bound Delegate's challenges.
type HTTPTransport struct {
	client   *http.Client
	log      *logger.Logger
	mu       sync.RWMutex
	delegate Delegate
}

// NewHTTPTransport creates a transport from cfg.
func NewHTTPTransport(cfg Config, log *logger.Logger) *HTTPTransport {
	if log == nil {
		log = logger.Nop()
	}
	t := &HTTPTransport{log: log}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.Proxy = cfg.Proxy.proxyFunc()

	if cfg.MutualTLS.IsEnabled() {
		tlsCfg := cfg.MutualTLS.BaseTLSConfig()
		// Chain verification happens in verifyServer through the delegate.
		tlsCfg.InsecureSkipVerify = true
		tlsCfg.GetClientCertificate = t.clientCertificate
		tlsCfg.VerifyConnection = func(cs tls.ConnectionState) error {
			return t.verifyServer(cs, cs.ServerName)
		}
		base.TLSClientConfig = tlsCfg
		base.DialTLSContext = t.dialTLS(tlsCfg, base.TLSHandshakeTimeout)
		base.ForceAttemptHTTP2 = false
	}

	t.client = &http.Client{Transport: base}
	return t
}

// Bind installs the delegate.
func (t *HTTPTransport) Bind(d Delegate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delegate = d
}

func (t *HTTPTransport) boundDelegate() Delegate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.delegate
}

// DataTask creates a task that sends req.Body.
func (t *HTTPTransport) DataTask(req *WireRequest, done Completion) Task {
	return t.newTask(req, nil, false, done)
}

// UploadTask creates a task that sends payload. A missing Content-Type is
// sniffed from the payload.
func (t *HTTPTransport) UploadTask(req *WireRequest, payload []byte, done Completion) Task {
	return t.newTask(req, payload, true, done)
}

// CloseIdleConnections closes pooled connections.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

// newTask snapshots req so the caller may reuse it once the task exists.
func (t *HTTPTransport) newTask(req *WireRequest, body []byte, upload bool, done Completion) *httpTask {
	snapshot := req.Clone()
	if !upload {
		body = snapshot.Body
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &httpTask{
		id:        TaskID(uuid.NewString()),
		transport: t,
		req:       snapshot,
		body:      body,
		upload:    upload,
		done:      done,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// dialTLS handshakes direct connections itself so the verified server name
// is the dialed host, IP literals included.
func (t *HTTPTransport) dialTLS(base *tls.Config, timeout time.Duration) func(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		cfg := base.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}
		serverName := cfg.ServerName
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			return t.verifyServer(cs, serverName)
		}

		raw, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		conn := tls.Client(raw, cfg)
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, err
		}
		return conn, nil
	}
}

// verifyServer raises a server-trust challenge for the presented chain.
func (t *HTTPTransport) verifyServer(cs tls.ConnectionState, serverName string) error {
	d := t.boundDelegate()
	if d == nil {
		return verifySystem(cs.PeerCertificates, serverName)
	}
	disposition, _ := d.HandleChallenge(Challenge{
		Type:  ChallengeServerTrust,
		Host:  serverName,
		Chain: cs.PeerCertificates,
	})
	switch disposition {
	case UseCredential:
		return nil
	case PerformDefaultHandling:
		return verifySystem(cs.PeerCertificates, serverName)
	default:
		return NewTrustError(fmt.Errorf("server trust for %q: %s", serverName, disposition))
	}
}

// verifySystem is the default handling: the platform root store.
func verifySystem(chain []*x509.Certificate, serverName string) error {
	if len(chain) == 0 {
		return NewTrustError(errors.New("server presented no certificate"))
	}
	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}
	if _, err := chain[0].Verify(x509.VerifyOptions{
		DNSName:       serverName,
		Intermediates: intermediates,
	}); err != nil {
		return NewTrustError(err)
	}
	return nil
}

// clientCertificate raises a client-certificate challenge.
func (t *HTTPTransport) clientCertificate(cri *tls.CertificateRequestInfo) (*tls.Certificate, error) {
	d := t.boundDelegate()
	if d == nil {
		return &tls.Certificate{}, nil
	}
	disposition, cred := d.HandleChallenge(Challenge{Type: ChallengeClientCertificate})
	switch {
	case disposition == UseCredential && cred != nil && cred.Certificate != nil:
		if err := cri.SupportsCertificate(cred.Certificate); err != nil {
			t.log.Warn("server may not accept client certificate", logger.Fields(logger.FieldError, err.Error()))
		}
		return cred.Certificate, nil
	case disposition == PerformDefaultHandling:
		return &tls.Certificate{}, nil
	default:
		return nil, NewTrustError(fmt.Errorf("client certificate challenge: %s", disposition))
	}
}

type httpTask struct {
	id        TaskID
	transport *HTTPTransport
	req       *WireRequest
	body      []byte
	upload    bool
	done      Completion

	ctx     context.Context
	cancel  context.CancelFunc
	resumed atomic.Bool
}

func (k *httpTask) ID() TaskID { return k.id }

// Resume starts the task. Only the first call has an effect.
func (k *httpTask) Resume() {
	if k.resumed.CompareAndSwap(false, true) {
		go k.run()
	}
}

// Cancel aborts the task. A task canceled before Resume completes with a
// canceled error once resumed.
func (k *httpTask) Cancel() {
	k.cancel()
}

func (k *httpTask) run() {
	defer k.cancel()
	body, resp, err := k.roundTrip()
	if err != nil {
		var classified *Error
		switch {
		case errors.As(err, &classified):
			err = classified
		case errors.Is(k.ctx.Err(), context.Canceled):
			err = NewCanceledError(err)
		}
		k.done(nil, nil, err)
		return
	}
	k.done(body, resp, nil)
}

func (k *httpTask) roundTrip() ([]byte, *WireResponse, error) {
	ctx := k.ctx
	if k.req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.req.Timeout)
		defer cancel()
	}

	var reader io.Reader
	if len(k.body) > 0 {
		reader = &countingReader{
			r:        bytes.NewReader(k.body),
			expected: int64(len(k.body)),
			report:   k.reportProgress,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, k.req.Method, k.req.URL.String(), reader)
	if err != nil {
		return nil, nil, NewUnknownError(err)
	}
	httpReq.Header = k.req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = make(http.Header)
	}
	if reader != nil {
		httpReq.ContentLength = int64(len(k.body))
	}
	if k.upload && len(k.body) > 0 && httpReq.Header.Get(headerContentType) == "" {
		httpReq.Header.Set(headerContentType, mimetype.Detect(k.body).String())
	}
	if k.upload {
		k.transport.log.Debug("upload started", logger.Fields(
			logger.FieldTaskID, string(k.id),
			logger.FieldBytes, len(k.body),
			"content_type", httpReq.Header.Get(headerContentType),
		))
	}

	resp, err := k.transport.client.Do(httpReq)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}
	return data, &WireResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (k *httpTask) reportProgress(n, total, expected int64) {
	if d := k.transport.boundDelegate(); d != nil {
		d.DidSendBodyData(k.id, n, total, expected)
	}
}

// countingReader reports every chunk read from r.
type countingReader struct {
	r        io.Reader
	total    int64
	expected int64
	report   func(n, total, expected int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.total += int64(n)
		c.report(int64(n), c.total, c.expected)
	}
	return n, err
}
