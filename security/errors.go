package security

import "errors"

var (
	// ErrIncorrectPassword is returned when a PKCS#12 bundle cannot be
	// opened with the supplied password.
	ErrIncorrectPassword = errors.New("security: bundle password incorrect")

	// ErrImport is returned when a PKCS#12 bundle cannot be parsed or does
	// not hold exactly one identity.
	ErrImport = errors.New("security: bundle import failed")

	// ErrNoIdentity is returned when a bundle carries no private key.
	ErrNoIdentity = errors.New("security: bundle contains no identity")

	// ErrNoCertificate is returned when an identity has no certificate, or
	// its certificate does not match the private key.
	ErrNoCertificate = errors.New("security: identity has no usable certificate")

	// ErrAnchorLoad is returned when the pinned certificate cannot be read
	// or parsed.
	ErrAnchorLoad = errors.New("security: pinned certificate could not be loaded")

	// ErrUntrusted is returned when a presented chain does not verify
	// against the pinned anchor.
	ErrUntrusted = errors.New("security: server chain not trusted")
)
