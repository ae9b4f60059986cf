package jwtauth

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported JWT signing algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
	RS256 SigningMethod = "RS256"
	ES256 SigningMethod = "ES256"
)

// Config configures token minting.
type Config struct {
	// Secret is the HMAC key (HS* methods).
	Secret string `yaml:"secret" mapstructure:"secret"`

	// PrivateKey is the RSA or ECDSA key (RS256 / ES256).
	PrivateKey any `yaml:"-" mapstructure:"-"`

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `yaml:"method" mapstructure:"method"`

	Issuer   string   `yaml:"issuer" mapstructure:"issuer"`
	Subject  string   `yaml:"subject" mapstructure:"subject"`
	Audience []string `yaml:"audience" mapstructure:"audience"`

	// TTL is the lifetime of each minted token (default: 5m).
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// RenewBefore is how long before expiry a cached token is replaced
	// (default: 30s).
	RenewBefore time.Duration `yaml:"renew_before" mapstructure:"renew_before"`

	// Claims are added to every token next to the registered claims.
	Claims map[string]any `yaml:"claims" mapstructure:"claims"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.RenewBefore <= 0 {
		c.RenewBefore = 30 * time.Second
	}
	if c.RenewBefore >= c.TTL {
		c.RenewBefore = c.TTL / 2
	}
}

// Validate checks that the key matches the signing method.
func (c *Config) Validate() error {
	switch c.Method {
	case HS256, HS384, HS512:
		if c.Secret == "" {
			return errors.New("jwtauth: secret is required for HMAC signing methods")
		}
	case RS256:
		if _, ok := c.PrivateKey.(*rsa.PrivateKey); !ok {
			return errors.New("jwtauth: RS256 requires an *rsa.PrivateKey")
		}
	case ES256:
		if _, ok := c.PrivateKey.(*ecdsa.PrivateKey); !ok {
			return errors.New("jwtauth: ES256 requires an *ecdsa.PrivateKey")
		}
	default:
		return errors.New("jwtauth: unsupported signing method: " + string(c.Method))
	}
	for _, reserved := range []string{"iss", "sub", "aud", "exp", "iat", "nbf", "jti"} {
		if _, ok := c.Claims[reserved]; ok {
			return errors.New("jwtauth: claim " + reserved + " is set from the config fields")
		}
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	case RS256:
		return gojwt.SigningMethodRS256
	case ES256:
		return gojwt.SigningMethodES256
	default:
		return gojwt.SigningMethodHS256
	}
}

func (c *Config) signKey() any {
	switch c.Method {
	case HS256, HS384, HS512:
		return []byte(c.Secret)
	default:
		return c.PrivateKey
	}
}
