package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/kbukum/futurenet/validation"
)

// MutualTLSConfig configures client-certificate authentication and server
// certificate pinning.
type MutualTLSConfig struct {
	// BundlePath is the PKCS#12 file holding the client identity.
	BundlePath string `yaml:"bundle_path" mapstructure:"bundle_path" validate:"required"`

	// BundlePassword unlocks the bundle. May be empty.
	BundlePassword string `yaml:"bundle_password" mapstructure:"bundle_password"`

	// PinnedCertificatePath is a PEM or DER certificate used as the sole
	// trust anchor for the server.
	PinnedCertificatePath string `yaml:"pinned_certificate_path" mapstructure:"pinned_certificate_path" validate:"required"`

	// StrictServerTrust cancels the handshake when the server chain does
	// not verify against the pinned certificate. When false the connection
	// falls back to the system roots.
	StrictServerTrust bool `yaml:"strict_server_trust" mapstructure:"strict_server_trust"`

	// ServerName overrides the host name checked against the server chain.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion is the minimum TLS version. Defaults to TLS 1.2.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version" validate:"omitempty,min=769,max=772"`
}

// IsEnabled reports whether a client bundle is configured.
func (c *MutualTLSConfig) IsEnabled() bool {
	return c != nil && c.BundlePath != ""
}

// Validate checks that both files are named.
func (c *MutualTLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	return validation.Validate(c)
}

// LoadIdentity reads and imports the client bundle.
func (c *MutualTLSConfig) LoadIdentity() (*Identity, error) {
	data, err := os.ReadFile(c.BundlePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImport, err)
	}
	return ImportPKCS12(data, c.BundlePassword)
}

// LoadAnchor reads the pinned server certificate.
func (c *MutualTLSConfig) LoadAnchor() (*x509.Certificate, error) {
	return LoadCertificate(c.PinnedCertificatePath)
}

// BaseTLSConfig returns the tls.Config fields that do not depend on the
// handshake callbacks. Trust and identity hooks are installed by the caller.
func (c *MutualTLSConfig) BaseTLSConfig() *tls.Config {
	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	return &tls.Config{
		ServerName: c.ServerName,
		MinVersion: minVersion,
	}
}
