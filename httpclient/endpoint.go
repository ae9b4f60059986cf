package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Method is an HTTP request method.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

const (
	headerAccept        = "Accept"
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	headerUserAgent     = "User-Agent"
	mimeJSON            = "application/json"
)

// Placement says where an endpoint's parameters travel. Exactly one of
// Query, Body, RawData or Upload; nil for none.
type Placement interface {
	placement()
}

type (
	// Query appends the present parameters to the URL.
	Query Parameters
	// Body sends the present parameters as a JSON object.
	Body Parameters
	// RawData sends the bytes verbatim as the request body.
	RawData []byte
	// Upload sends the bytes through the transport's upload path.
	Upload []byte
)

func (Query) placement()   {}
func (Body) placement()    {}
func (RawData) placement() {}
func (Upload) placement()  {}

// WireRequest is a transport-ready request.
type WireRequest struct {
	Method  string
	URL     *url.URL
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// Clone returns a deep copy of r.
func (r *WireRequest) Clone() *WireRequest {
	c := *r
	if r.URL != nil {
		u := *r.URL
		c.URL = &u
	}
	c.Header = r.Header.Clone()
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

// WireResponse is what the transport received.
type WireResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Builder is anything the client can turn into a wire request.
type Builder interface {
	Build() (*WireRequest, error)
	UploadPayload() ([]byte, bool)
}

// endpointSpec is the type-independent part of an Endpoint.
type endpointSpec struct {
	host      string
	path      string
	method    Method
	placement Placement
	auth      AuthenticationProvider
	header    http.Header
}

// EndpointOption configures an Endpoint.
type EndpointOption func(*endpointSpec)

// WithMethod sets the request method. Defaults to GET.
func WithMethod(m Method) EndpointOption {
	return func(s *endpointSpec) { s.method = m }
}

// WithPlacement sets where parameters travel.
func WithPlacement(p Placement) EndpointOption {
	return func(s *endpointSpec) { s.placement = p }
}

// WithAuthentication attaches a credential provider. The build fails if the
// provider cannot supply a usable credential.
func WithAuthentication(p AuthenticationProvider) EndpointOption {
	return func(s *endpointSpec) { s.auth = p }
}

// WithHeader adds a request header. Accept is always application/json, and
// Content-Type is forced to application/json unless the placement is RawData
// or Upload, where a caller-supplied value is kept.
func WithHeader(key, value string) EndpointOption {
	return func(s *endpointSpec) {
		if s.header == nil {
			s.header = make(http.Header)
		}
		s.header.Add(key, value)
	}
}

// Endpoint describes one API call whose successful response decodes into T.
// It is immutable once created.
type Endpoint[T any] struct {
	endpointSpec
}

// NewEndpoint creates an endpoint for host+path.
func NewEndpoint[T any](host, path string, opts ...EndpointOption) *Endpoint[T] {
	ep := &Endpoint[T]{endpointSpec{host: host, path: path, method: MethodGet}}
	for _, opt := range opts {
		opt(&ep.endpointSpec)
	}
	return ep
}

func (s *endpointSpec) Host() string         { return s.host }
func (s *endpointSpec) Path() string         { return s.path }
func (s *endpointSpec) Method() Method       { return s.method }
func (s *endpointSpec) Placement() Placement { return s.placement }

// UploadPayload returns the bytes of an Upload placement.
func (s *endpointSpec) UploadPayload() ([]byte, bool) {
	u, ok := s.placement.(Upload)
	return []byte(u), ok
}

// Build produces the wire request. It fails with an authentication error
// when a provider is attached but yields no usable credential, and with an
// unknown error when host+path is not an absolute URL.
func (s *endpointSpec) Build() (*WireRequest, error) {
	u, err := url.Parse(s.host + s.path)
	if err != nil {
		return nil, NewUnknownError(fmt.Errorf("invalid endpoint URL: %w", err))
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, NewUnknownError(errors.New("endpoint URL is not absolute: " + s.host + s.path))
	}

	if q, ok := s.placement.(Query); ok {
		values := u.Query()
		for k, v := range EncodeQuery(Parameters(q)) {
			values[k] = v
		}
		u.RawQuery = values.Encode()
	}

	req := &WireRequest{
		Method: string(s.method),
		URL:    u,
		Header: s.header.Clone(),
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	if s.auth != nil {
		value, err := authorizationHeader(s.auth)
		if err != nil {
			return nil, err
		}
		req.Header.Set(headerAuthorization, value)
	}

	switch p := s.placement.(type) {
	case Body:
		body, err := EncodeBody(Parameters(p))
		if err != nil {
			return nil, NewUnknownError(fmt.Errorf("encode body: %w", err))
		}
		req.Body = body
	case RawData:
		req.Body = []byte(p)
	}

	req.Header.Set(headerAccept, mimeJSON)
	switch s.placement.(type) {
	case RawData, Upload:
	default:
		req.Header.Set(headerContentType, mimeJSON)
	}
	return req, nil
}
