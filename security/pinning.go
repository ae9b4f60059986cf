package security

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

// LoadCertificate reads a single certificate from a PEM or DER file.
func LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnchorLoad, err)
	}
	return ParseCertificate(data)
}

// ParseCertificate accepts PEM or raw DER input.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrAnchorLoad, block.Type)
		}
		der = block.Bytes
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnchorLoad, err)
	}
	return cert, nil
}

// VerifyPinned verifies a presented server chain using anchor as the only
// root. The leaf must be valid for serverName when it is non-empty.
func VerifyPinned(anchor *x509.Certificate, chain []*x509.Certificate, serverName string, now time.Time) ([][]*x509.Certificate, error) {
	if anchor == nil {
		return nil, ErrAnchorLoad
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: empty chain", ErrUntrusted)
	}

	roots := x509.NewCertPool()
	roots.AddCert(anchor)
	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}

	chains, err := chain[0].Verify(x509.VerifyOptions{
		DNSName:       serverName,
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUntrusted, err)
	}
	return chains, nil
}
