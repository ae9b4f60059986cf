// Package jwtauth mints signed JWTs and presents them as bearer credentials.
//
//	p, err := jwtauth.New(jwtauth.Config{Secret: key, Issuer: "billing", Subject: "svc-reports"})
//	ep := httpclient.NewEndpoint[Report](host, "/reports", httpclient.WithAuthentication(p))
//
// Tokens are cached and re-minted shortly before they expire.
package jwtauth

import (
	"fmt"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/futurenet/httpclient"
)

// Provider is an httpclient.AuthenticationProvider backed by a JWT signer.
// It is safe for concurrent use.
type Provider struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// New creates a provider.
func New(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, now: time.Now}, nil
}

// Authentication returns the current token as a bearer credential.
func (p *Provider) Authentication() (httpclient.Authentication, error) {
	token, err := p.Token()
	if err != nil {
		return nil, err
	}
	return httpclient.Bearer{Token: token}, nil
}

// Token returns a valid signed token, minting a new one when the cached
// token is within RenewBefore of expiry.
func (p *Provider) Token() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.token != "" && now.Add(p.cfg.RenewBefore).Before(p.expires) {
		return p.token, nil
	}

	token, expires, err := p.mint(now)
	if err != nil {
		return "", err
	}
	p.token, p.expires = token, expires
	return token, nil
}

func (p *Provider) mint(now time.Time) (string, time.Time, error) {
	expires := now.Add(p.cfg.TTL)
	claims := gojwt.MapClaims{
		"iat": gojwt.NewNumericDate(now),
		"nbf": gojwt.NewNumericDate(now),
		"exp": gojwt.NewNumericDate(expires),
		"jti": uuid.NewString(),
	}
	if p.cfg.Issuer != "" {
		claims["iss"] = p.cfg.Issuer
	}
	if p.cfg.Subject != "" {
		claims["sub"] = p.cfg.Subject
	}
	if len(p.cfg.Audience) > 0 {
		claims["aud"] = gojwt.ClaimStrings(p.cfg.Audience)
	}
	for k, v := range p.cfg.Claims {
		claims[k] = v
	}

	signed, err := gojwt.NewWithClaims(p.cfg.signingMethod(), claims).SignedString(p.cfg.signKey())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwtauth: sign token: %w", err)
	}
	return signed, expires, nil
}
