package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"

	"github.com/kbukum/futurenet/security"
	"github.com/kbukum/futurenet/validation"
)

// DefaultTimeout bounds every request unless Config.Timeout overrides it.
const DefaultTimeout = 20 * time.Second

const defaultName = "httpclient"

// Config configures the HTTP client.
type Config struct {
	// Name labels the client in logs and metrics.
	Name string `yaml:"name" mapstructure:"name"`

	// Timeout is applied to every request. Defaults to 20s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"min=0"`

	// Headers are default headers added to every request unless the
	// endpoint sets them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// MutualTLS enables client-certificate authentication against a pinned
	// server certificate. Nil keeps the platform's default TLS handling.
	MutualTLS *security.MutualTLSConfig `yaml:"mtls" mapstructure:"mtls"`

	// Proxy overrides the proxy environment variables.
	Proxy ProxyConfig `yaml:"proxy" mapstructure:"proxy"`

	// Decoding selects the response codec strategies.
	Decoding DecodingConfig `yaml:"decoding" mapstructure:"decoding"`
}

// ProxyConfig mirrors the HTTP_PROXY family of variables. When every field
// is empty the environment is used.
type ProxyConfig struct {
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy" validate:"omitempty,url"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy" validate:"omitempty,url"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

func (p ProxyConfig) isSet() bool {
	return p.HTTPProxy != "" || p.HTTPSProxy != "" || p.NoProxy != ""
}

// proxyFunc returns the http.Transport proxy hook.
func (p ProxyConfig) proxyFunc() func(*http.Request) (*url.URL, error) {
	cfg := httpproxy.FromEnvironment()
	if p.isSet() {
		cfg = &httpproxy.Config{
			HTTPProxy:  p.HTTPProxy,
			HTTPSProxy: p.HTTPSProxy,
			NoProxy:    p.NoProxy,
		}
	}
	fn := cfg.ProxyFunc()
	return func(r *http.Request) (*url.URL, error) {
		return fn(r.URL)
	}
}

// Decoding strategy names.
const (
	KeysDeclared  = "declared"
	KeysSnakeCase = "snake_case"

	DatesDefault  = "default"
	DatesFixed    = "fixed"
	DatesByLength = "by_length"
)

// DecodingConfig selects key and date strategies for the default codec.
type DecodingConfig struct {
	KeyStrategy  string `yaml:"key_strategy" mapstructure:"key_strategy" validate:"omitempty,oneof=declared snake_case"`
	DateStrategy string `yaml:"date_strategy" mapstructure:"date_strategy" validate:"omitempty,oneof=default fixed by_length"`
	// DateLayout is the time layout used by the fixed strategy.
	DateLayout string `yaml:"date_layout" mapstructure:"date_layout" validate:"required_if=DateStrategy fixed"`
}

// CodecOptions translates the configuration into codec options.
func (d DecodingConfig) CodecOptions() []CodecOption {
	var opts []CodecOption
	if d.KeyStrategy == KeysSnakeCase {
		opts = append(opts, WithKeyStrategy(KeysFromSnakeCase))
	}
	switch d.DateStrategy {
	case DatesFixed:
		opts = append(opts, WithDateStrategy(FixedDateLayout(d.DateLayout)))
	case DatesByLength:
		opts = append(opts, WithDateStrategy(DateLayoutsByLength))
	}
	return opts
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
