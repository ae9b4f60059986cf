package security

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gopkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/kbukum/futurenet/security/tlstest"
	"github.com/kbukum/futurenet/validation"
)

func TestMutualTLSConfig_IsEnabled(t *testing.T) {
	var nilCfg *MutualTLSConfig
	if nilCfg.IsEnabled() {
		t.Error("nil config should not be enabled")
	}
	if (&MutualTLSConfig{}).IsEnabled() {
		t.Error("zero config should not be enabled")
	}
	if !(&MutualTLSConfig{BundlePath: "x.p12"}).IsEnabled() {
		t.Error("config with bundle should be enabled")
	}
}

func TestMutualTLSConfig_Validate(t *testing.T) {
	var nilCfg *MutualTLSConfig
	if err := nilCfg.Validate(); err != nil {
		t.Fatalf("nil config: %v", err)
	}

	err := (&MutualTLSConfig{BundlePath: "client.p12"}).Validate()
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validation.Error, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "pinned_certificate_path" {
		t.Errorf("unexpected fields: %+v", verr.Fields)
	}

	ok := &MutualTLSConfig{BundlePath: "client.p12", PinnedCertificatePath: "server.pem"}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMutualTLSConfig_BaseTLSConfig(t *testing.T) {
	cfg := (&MutualTLSConfig{ServerName: "api.example.com"}).BaseTLSConfig()
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("expected TLS12 default, got %d", cfg.MinVersion)
	}
	if cfg.ServerName != "api.example.com" {
		t.Errorf("expected server name, got %q", cfg.ServerName)
	}

	cfg = (&MutualTLSConfig{MinVersion: tls.VersionTLS13}).BaseTLSConfig()
	if cfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("expected TLS13, got %d", cfg.MinVersion)
	}
}

func TestLoadIdentity(t *testing.T) {
	certs := tlstest.Generate(t)
	cfg := &MutualTLSConfig{BundlePath: certs.BundleFile, BundlePassword: certs.BundlePassword}

	id, err := cfg.LoadIdentity()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !id.Certificate.Equal(certs.ClientCert) {
		t.Error("imported certificate does not match the client certificate")
	}
	if len(id.Chain) != 1 || !id.Chain[0].Equal(certs.CACert) {
		t.Fatalf("expected the CA as chain, got %d certificates", len(id.Chain))
	}
	tc := id.TLSCertificate()
	if len(tc.Certificate) != 2 || tc.Leaf != id.Certificate {
		t.Fatalf("unexpected tls certificate: %d entries", len(tc.Certificate))
	}
	if !bytes.Equal(tc.Certificate[0], certs.ClientCert.Raw) || !bytes.Equal(tc.Certificate[1], certs.CACert.Raw) {
		t.Error("tls certificate should hold the leaf then the CA")
	}
}

func TestLoadIdentity_MissingFile(t *testing.T) {
	cfg := &MutualTLSConfig{BundlePath: "/nonexistent/client.p12"}
	_, err := cfg.LoadIdentity()
	if !errors.Is(err, ErrImport) {
		t.Fatalf("expected ErrImport, got %v", err)
	}
}

func TestImportPKCS12_WrongPassword(t *testing.T) {
	certs := tlstest.Generate(t)
	data, err := os.ReadFile(certs.BundleFile)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ImportPKCS12(data, "not-the-password")
	if !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
}

func TestImportPKCS12_Garbage(t *testing.T) {
	_, err := ImportPKCS12([]byte("definitely not a pfx"), "")
	if !errors.Is(err, ErrImport) {
		t.Fatalf("expected ErrImport, got %v", err)
	}
}

func TestImportPKCS12_Profiles(t *testing.T) {
	certs := tlstest.Generate(t)
	chain := []*x509.Certificate{certs.CACert}

	tests := []struct {
		name      string
		enc       *gopkcs12.Encoder
		cas       []*x509.Certificate
		wantChain int
	}{
		{"modern 2023", gopkcs12.Modern2023, nil, 0},
		{"modern 2023 with chain", gopkcs12.Modern2023, chain, 1},
		{"legacy DES", gopkcs12.LegacyDES, nil, 0},
		{"legacy DES with chain", gopkcs12.LegacyDES, chain, 1},
		{"legacy RC2 with chain", gopkcs12.LegacyRC2, chain, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := tlstest.EncodeBundleWith(t, tc.enc, certs.ClientKey, certs.ClientCert, tc.cas, "pw")
			id, err := ImportPKCS12(data, "pw")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !id.Certificate.Equal(certs.ClientCert) {
				t.Error("leaf is not the client certificate")
			}
			if len(id.Chain) != tc.wantChain {
				t.Errorf("expected %d chain certificates, got %d", tc.wantChain, len(id.Chain))
			}
			if got := len(id.TLSCertificate().Certificate); got != 1+tc.wantChain {
				t.Errorf("expected %d DER entries, got %d", 1+tc.wantChain, got)
			}

			if _, err := ImportPKCS12(data, "wrong"); !errors.Is(err, ErrIncorrectPassword) {
				t.Errorf("expected ErrIncorrectPassword, got %v", err)
			}
		})
	}
}

func TestImportPKCS12_LeafAfterCA(t *testing.T) {
	certs := tlstest.Generate(t)
	data := tlstest.EncodeBundle(t, certs.ClientKey, certs.CACert, []*x509.Certificate{certs.ClientCert}, "pw")

	id, err := ImportPKCS12(data, "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !id.Certificate.Equal(certs.ClientCert) {
		t.Error("leaf should be the certificate matching the key")
	}
	if len(id.Chain) != 1 || !id.Chain[0].Equal(certs.CACert) {
		t.Error("CA should be moved to the chain")
	}
}

func TestImportPKCS12_KeyWithoutMatchingCertificate(t *testing.T) {
	certs := tlstest.Generate(t)
	data := tlstest.EncodeBundle(t, certs.ClientKey, certs.ServerCert, nil, "pw")

	_, err := ImportPKCS12(data, "pw")
	if !errors.Is(err, ErrNoCertificate) {
		t.Fatalf("expected ErrNoCertificate, got %v", err)
	}
}

func TestImportPKCS12_TrustStoreHasNoIdentity(t *testing.T) {
	certs := tlstest.Generate(t)
	data, err := gopkcs12.Modern2023.EncodeTrustStore([]*x509.Certificate{certs.CACert}, "pw")
	if err != nil {
		t.Fatal(err)
	}

	_, err = ImportPKCS12(data, "pw")
	if !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestLoadCertificate_PEMAndDER(t *testing.T) {
	certs := tlstest.Generate(t)
	for _, path := range []string{certs.CAFile, certs.CADERFile} {
		cert, err := LoadCertificate(path)
		if err != nil {
			t.Fatalf("%s: %v", filepath.Base(path), err)
		}
		if !cert.Equal(certs.CACert) {
			t.Errorf("%s: parsed certificate differs from CA", filepath.Base(path))
		}
	}
}

func TestLoadCertificate_Errors(t *testing.T) {
	if _, err := LoadCertificate("/nonexistent/ca.pem"); !errors.Is(err, ErrAnchorLoad) {
		t.Errorf("missing file: expected ErrAnchorLoad, got %v", err)
	}
	bad := tlstest.WriteInvalidPEM(t, "bad.pem")
	if _, err := LoadCertificate(bad); !errors.Is(err, ErrAnchorLoad) {
		t.Errorf("invalid PEM: expected ErrAnchorLoad, got %v", err)
	}
}

func TestVerifyPinned(t *testing.T) {
	certs := tlstest.Generate(t)
	presented := []*x509.Certificate{certs.ServerCert, certs.CACert}
	now := time.Now()

	t.Run("pinned CA", func(t *testing.T) {
		chains, err := VerifyPinned(certs.CACert, presented, "localhost", now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chains) == 0 {
			t.Fatal("expected at least one chain")
		}
	})

	t.Run("pinned leaf", func(t *testing.T) {
		if _, err := VerifyPinned(certs.ServerCert, presented[:1], "localhost", now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("wrong host", func(t *testing.T) {
		_, err := VerifyPinned(certs.CACert, presented, "api.example.com", now)
		if !errors.Is(err, ErrUntrusted) {
			t.Fatalf("expected ErrUntrusted, got %v", err)
		}
	})

	t.Run("different anchor", func(t *testing.T) {
		other := tlstest.Generate(t)
		_, err := VerifyPinned(other.CACert, presented, "localhost", now)
		if !errors.Is(err, ErrUntrusted) {
			t.Fatalf("expected ErrUntrusted, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		_, err := VerifyPinned(certs.CACert, presented, "localhost", now.Add(48*time.Hour))
		if !errors.Is(err, ErrUntrusted) {
			t.Fatalf("expected ErrUntrusted, got %v", err)
		}
	})

	t.Run("empty chain", func(t *testing.T) {
		if _, err := VerifyPinned(certs.CACert, nil, "localhost", now); !errors.Is(err, ErrUntrusted) {
			t.Fatalf("expected ErrUntrusted, got %v", err)
		}
	})

	t.Run("no anchor", func(t *testing.T) {
		if _, err := VerifyPinned(nil, presented, "localhost", now); !errors.Is(err, ErrAnchorLoad) {
			t.Fatalf("expected ErrAnchorLoad, got %v", err)
		}
	})
}
