// Package tlstest generates certificate material for mutual-TLS tests: a
// throwaway CA, a localhost server certificate, and a client identity
// packaged as a password-protected PKCS#12 bundle.
//
// Files are written to t.TempDir() and removed when the test ends.
//
//	func TestPinned(t *testing.T) {
//	    certs := tlstest.Generate(t)
//	    // certs.BundleFile unlocks with certs.BundlePassword
//	    // certs.CAFile is a suitable pinned anchor for certs.ServerTLS
//	}
package tlstest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// DefaultPassword protects the generated client bundle.
const DefaultPassword = "futurenet-test"

var serial atomic.Int64

// Certs holds generated files and their parsed forms.
type Certs struct {
	// CAFile is the CA certificate as PEM.
	CAFile string
	// CADERFile is the CA certificate as raw DER.
	CADERFile string
	CACert    *x509.Certificate
	CAKey     *ecdsa.PrivateKey
	// CertPool holds the CA only.
	CertPool *x509.CertPool

	// ServerCertFile is the localhost leaf as PEM.
	ServerCertFile string
	ServerCert     *x509.Certificate
	ServerTLS      tls.Certificate

	// BundleFile is the client identity as PKCS#12.
	BundleFile     string
	BundlePassword string
	ClientCert     *x509.Certificate
	ClientKey      *ecdsa.PrivateKey
}

// Generate creates a CA, a server certificate valid for localhost,
// 127.0.0.1 and [::1], and a client identity bundle.
func Generate(t testing.TB) *Certs {
	t.Helper()
	dir := t.TempDir()

	caKey := newKey(t)
	caTemplate := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{Organization: []string{"FutureNet Test CA"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caCert := sign(t, caTemplate, caTemplate, caKey, caKey)

	caFile := filepath.Join(dir, "ca.pem")
	writePEM(t, caFile, "CERTIFICATE", caCert.Raw)
	caDERFile := filepath.Join(dir, "ca.der")
	writeFile(t, caDERFile, caCert.Raw)

	serverKey := newKey(t)
	serverCert := sign(t, &x509.Certificate{
		SerialNumber: nextSerial(),
		Subject:      pkix.Name{Organization: []string{"FutureNet Test"}, CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}, caCert, serverKey, caKey)

	serverCertFile := filepath.Join(dir, "server.pem")
	writePEM(t, serverCertFile, "CERTIFICATE", serverCert.Raw)

	clientKey := newKey(t)
	clientCert := sign(t, &x509.Certificate{
		SerialNumber: nextSerial(),
		Subject:      pkix.Name{Organization: []string{"FutureNet Test"}, CommonName: "client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}, caCert, clientKey, caKey)

	pool := x509.NewCertPool()
	pool.AddCert(caCert)

	return &Certs{
		CAFile:         caFile,
		CADERFile:      caDERFile,
		CACert:         caCert,
		CAKey:          caKey,
		CertPool:       pool,
		ServerCertFile: serverCertFile,
		ServerCert:     serverCert,
		ServerTLS: tls.Certificate{
			Certificate: [][]byte{serverCert.Raw, caCert.Raw},
			PrivateKey:  serverKey,
			Leaf:        serverCert,
		},
		BundleFile:     WriteBundle(t, clientKey, clientCert, []*x509.Certificate{caCert}, DefaultPassword),
		BundlePassword: DefaultPassword,
		ClientCert:     clientCert,
		ClientKey:      clientKey,
	}
}

// ServerTLSConfig returns a server config presenting the localhost
// certificate and requiring a client certificate issued by the CA.
func (c *Certs) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{c.ServerTLS},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    c.CertPool,
		MinVersion:   tls.VersionTLS12,
	}
}

// EncodeBundle packages an identity as PKCS#12 with the modern
// PBES2/AES-256/SHA-256 profile, the default of OpenSSL 3.
func EncodeBundle(t testing.TB, key crypto.PrivateKey, cert *x509.Certificate, cas []*x509.Certificate, password string) []byte {
	t.Helper()
	return EncodeBundleWith(t, gopkcs12.Modern2023, key, cert, cas, password)
}

// EncodeBundleWith packages an identity with the given encoder, e.g.
// gopkcs12.LegacyDES for bundles from older tooling.
func EncodeBundleWith(t testing.TB, enc *gopkcs12.Encoder, key crypto.PrivateKey, cert *x509.Certificate, cas []*x509.Certificate, password string) []byte {
	t.Helper()
	data, err := enc.Encode(key, cert, cas, password)
	if err != nil {
		t.Fatalf("tlstest: encode bundle: %v", err)
	}
	return data
}

// WriteBundle writes EncodeBundle's output to a temporary .p12 file.
func WriteBundle(t testing.TB, key crypto.PrivateKey, cert *x509.Certificate, cas []*x509.Certificate, password string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.p12")
	writeFile(t, path, EncodeBundle(t, key, cert, cas, password))
	return path
}

// WriteInvalidPEM writes a file with content that looks like PEM but isn't a valid certificate.
func WriteInvalidPEM(t testing.TB, filename string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	writeFile(t, path, []byte("-----BEGIN CERTIFICATE-----\nnot-valid-base64-data\n-----END CERTIFICATE-----\n"))
	return path
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("tlstest: generate key: %v", err)
	}
	return key
}

func nextSerial() *big.Int {
	return big.NewInt(serial.Add(1))
}

func sign(t testing.TB, tmpl, parent *x509.Certificate, key, parentKey *ecdsa.PrivateKey) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, &key.PublicKey, parentKey)
	if err != nil {
		t.Fatalf("tlstest: create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("tlstest: parse certificate: %v", err)
	}
	return cert
}

func writeFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("tlstest: write %s: %v", path, err)
	}
}

func writePEM(t testing.TB, path, blockType string, data []byte) {
	t.Helper()
	writeFile(t, path, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: data}))
}
