// Package security holds the mutual-TLS primitives used by the HTTP client:
// the configuration of a client identity bundle and a pinned server anchor,
// PKCS#12 identity import, and verification of a presented server chain
// against the pinned anchor.
//
// # Mutual TLS
//
//	cfg := security.MutualTLSConfig{
//	    BundlePath:            "/etc/futurenet/client.p12",
//	    BundlePassword:        os.Getenv("BUNDLE_PASSWORD"),
//	    PinnedCertificatePath: "/etc/futurenet/server.pem",
//	}
//
//	id, err := cfg.LoadIdentity()
//	anchor, err := cfg.LoadAnchor()
//	chains, err := security.VerifyPinned(anchor, presented, "api.example.com", time.Now())
package security
