package httpclient

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrNoCredential is returned when a provider yields no credential.
	ErrNoCredential = errors.New("authentication provider supplied no credential")
	// ErrUnsupportedCredential is returned for credential variants the
	// endpoint cannot encode.
	ErrUnsupportedCredential = errors.New("unsupported credential variant")
	// ErrUnencodableCredential is returned when a credential holds
	// characters that cannot be placed in an Authorization header.
	ErrUnencodableCredential = errors.New("credential cannot be encoded")
)

// Authentication is a credential an endpoint can attach to a request. The
// set of variants is closed: Basic and Bearer.
type Authentication interface {
	authorization() (string, error)
}

// Basic is an HTTP Basic credential.
type Basic struct {
	Username string
	Password string
}

func (b Basic) authorization() (string, error) {
	if strings.ContainsRune(b.Username, ':') {
		return "", fmt.Errorf("%w: username contains ':'", ErrUnencodableCredential)
	}
	if !headerSafe(b.Username) || !headerSafe(b.Password) {
		return "", fmt.Errorf("%w: basic credential is not printable UTF-8", ErrUnencodableCredential)
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(b.Username+":"+b.Password)), nil
}

// Bearer is a bearer token credential.
type Bearer struct {
	Token string
}

func (b Bearer) authorization() (string, error) {
	if strings.TrimSpace(b.Token) == "" {
		return "", fmt.Errorf("%w: empty bearer token", ErrUnencodableCredential)
	}
	if !headerSafe(b.Token) || strings.ContainsAny(b.Token, " \t") {
		return "", fmt.Errorf("%w: bearer token is not a single printable token", ErrUnencodableCredential)
	}
	return "Bearer " + b.Token, nil
}

func headerSafe(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// AuthenticationProvider supplies the credential for an endpoint. A nil
// credential with a nil error means none is available, which fails the
// build.
type AuthenticationProvider interface {
	Authentication() (Authentication, error)
}

// AuthenticationProviderFunc adapts a function to AuthenticationProvider.
type AuthenticationProviderFunc func() (Authentication, error)

// Authentication calls f.
func (f AuthenticationProviderFunc) Authentication() (Authentication, error) {
	return f()
}

// StaticAuthentication returns a provider that always yields a.
func StaticAuthentication(a Authentication) AuthenticationProvider {
	return AuthenticationProviderFunc(func() (Authentication, error) { return a, nil })
}

// BasicAuth returns a provider for a fixed Basic credential.
func BasicAuth(username, password string) AuthenticationProvider {
	return StaticAuthentication(Basic{Username: username, Password: password})
}

// BearerAuth returns a provider for a fixed bearer token.
func BearerAuth(token string) AuthenticationProvider {
	return StaticAuthentication(Bearer{Token: token})
}

// authorizationHeader resolves the provider into an Authorization value.
func authorizationHeader(p AuthenticationProvider) (string, error) {
	cred, err := p.Authentication()
	if err != nil {
		return "", NewAuthenticationError(err)
	}

	var value string
	switch c := cred.(type) {
	case nil:
		err = ErrNoCredential
	case Basic, Bearer:
		value, err = c.authorization()
	case *Basic:
		if c == nil {
			err = ErrNoCredential
		} else {
			value, err = c.authorization()
		}
	case *Bearer:
		if c == nil {
			err = ErrNoCredential
		} else {
			value, err = c.authorization()
		}
	default:
		err = fmt.Errorf("%w: %T", ErrUnsupportedCredential, cred)
	}
	if err != nil {
		return "", NewAuthenticationError(err)
	}
	return value, nil
}
