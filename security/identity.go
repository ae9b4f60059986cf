package security

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Identity is a private key paired with its certificate. Chain holds any
// CA certificates shipped in the same bundle, leaf issuer first.
type Identity struct {
	Key         crypto.Signer
	Certificate *x509.Certificate
	Chain       []*x509.Certificate
}

// TLSCertificate returns the identity in the form crypto/tls presents to a
// server: the leaf followed by the bundled CA certificates.
func (id *Identity) TLSCertificate() tls.Certificate {
	der := make([][]byte, 0, 1+len(id.Chain))
	der = append(der, id.Certificate.Raw)
	for _, c := range id.Chain {
		der = append(der, c.Raw)
	}
	return tls.Certificate{
		Certificate: der,
		PrivateKey:  id.Key,
		Leaf:        id.Certificate,
	}
}

// ImportPKCS12 extracts the single identity held in a PKCS#12 bundle. Both
// legacy (3DES/RC2, SHA-1) and PBES2 (AES-256, SHA-256) bundles are read;
// CA certificates in the bundle become the identity's chain.
func ImportPKCS12(data []byte, password string) (*Identity, error) {
	key, cert, cas, err := gopkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, classifyDecodeError(err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok || signer == nil {
		return nil, ErrNoIdentity
	}

	// The leaf is the certificate matching the key, wherever the bundle
	// placed it.
	all := append([]*x509.Certificate{cert}, cas...)
	leaf := -1
	for i, c := range all {
		if publicKeysEqual(signer.Public(), c.PublicKey) {
			leaf = i
			break
		}
	}
	if leaf < 0 {
		return nil, fmt.Errorf("%w: certificate does not match private key", ErrNoCertificate)
	}

	chain := make([]*x509.Certificate, 0, len(all)-1)
	for i, c := range all {
		if i != leaf {
			chain = append(chain, c)
		}
	}
	return &Identity{Key: signer, Certificate: all[leaf], Chain: chain}, nil
}

// classifyDecodeError maps decoder failures onto the package sentinels.
// The decoder reports a missing key or certificate with plain errors.
func classifyDecodeError(err error) error {
	switch {
	case errors.Is(err, gopkcs12.ErrIncorrectPassword), errors.Is(err, gopkcs12.ErrDecryption):
		return ErrIncorrectPassword
	case strings.Contains(err.Error(), "private key missing"):
		return ErrNoIdentity
	case strings.Contains(err.Error(), "certificate missing"):
		return ErrNoCertificate
	default:
		return fmt.Errorf("%w: %w", ErrImport, err)
	}
}

func publicKeysEqual(a, b crypto.PublicKey) bool {
	k, ok := a.(interface{ Equal(crypto.PublicKey) bool })
	return ok && k.Equal(b)
}
